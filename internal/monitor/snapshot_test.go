package monitor

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/client"
	"github.com/fyrsmithlabs/managerd/internal/config"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	api "github.com/fyrsmithlabs/managerd/internal/http"
	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/services"
	"github.com/fyrsmithlabs/managerd/internal/session"
)

func TestClientSource_Snapshot(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Backend = config.StorageMemory
	cfg.Provider.APIKey = config.Secret("sk-test")
	cfg.Notify.TTL = time.Hour

	reg, cleanup, err := services.Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	srv, err := api.NewServer(reg, zap.NewNop(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := client.New(ts.URL)
	src := NewClientSource(c)
	assert.Equal(t, ts.URL, src.Describe())

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Authenticated)
	assert.True(t, snap.ProviderReady)
	assert.Zero(t, snap.Stats.Total)
	assert.Empty(t, snap.Notifications)

	_, err = c.Login(ctx, session.DefaultPassphrase)
	require.NoError(t, err)

	task, err := reg.Entities().AddTask(ctx, intent.Result{IsTask: true, TaskName: "Send invoice", Priority: intent.PriorityHigh})
	require.NoError(t, err)
	_, err = reg.Entities().AddTask(ctx, intent.Result{IsTask: true, TaskName: "Water plants", Priority: intent.PriorityLow})
	require.NoError(t, err)
	require.NoError(t, reg.Entities().UpdateTaskStatus(ctx, task.ID, entity.StatusCompleted))
	_, err = c.AddTransaction(ctx, entity.TransactionInput{Amount: 500, Kind: intent.Income, Description: "Retainer"})
	require.NoError(t, err)

	snap, err = src.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Authenticated)
	assert.Equal(t, 2, snap.Stats.Total)
	assert.Equal(t, 1, snap.Open())
	assert.Equal(t, 50, snap.Stats.CompletionRate)
	assert.Zero(t, snap.Overdue)
	assert.Equal(t, 1, snap.Transactions)
	assert.InDelta(t, 500, snap.Totals.Balance, 1e-9)
	assert.NotEmpty(t, snap.Notifications)
}

func TestClientSource_Unreachable(t *testing.T) {
	src := NewClientSource(client.New("http://127.0.0.1:1"))
	_, err := src.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")
}
