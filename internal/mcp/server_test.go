package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/chat"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
	"github.com/fyrsmithlabs/managerd/internal/kvstore"
	"github.com/fyrsmithlabs/managerd/internal/notify"
	"github.com/fyrsmithlabs/managerd/internal/services"
)

// stubProvider answers every completion with a fixed body.
type stubProvider struct {
	completion string
}

func (p *stubProvider) Name() string        { return "stub" }
func (p *stubProvider) HasCredential() bool { return true }

func (p *stubProvider) Complete(context.Context, string, string) (string, error) {
	return p.completion, nil
}

func (p *stubProvider) Search(context.Context, string) (gateway.SearchResult, error) {
	return gateway.SearchResult{Text: "Rates are up.", Sources: []gateway.Source{{URI: "https://example.com/rates", Title: "Rates"}}}, nil
}

func (p *stubProvider) GenerateImage(context.Context, string, gateway.ImageOptions) (gateway.Image, error) {
	return "", gateway.ErrUnsupported
}

func (p *stubProvider) EditImage(context.Context, gateway.Image, string) (gateway.Image, error) {
	return "", gateway.ErrUnsupported
}

func (p *stubProvider) Transcribe(context.Context, gateway.Audio) (string, error) {
	return "", gateway.ErrUnsupported
}

type testEnv struct {
	server   *Server
	provider *stubProvider
	reg      services.Registry
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	provider := &stubProvider{completion: `{"IsTask": false, "TaskName": "Hello"}`}
	gw, err := gateway.NewService(provider, logger)
	require.NoError(t, err)

	kv := kvstore.NewMemory()
	notifier := notify.New(logger, notify.WithTTL(time.Hour))
	push := notify.NewPushChannel(nil, kv, logger)
	store, err := entity.NewStore(kv, logger)
	require.NoError(t, err)
	orchestrator, err := chat.New(chat.Deps{
		Gateway: gw, Entities: store, Alerter: notifier, Pusher: push, Store: kv, Logger: logger,
	})
	require.NoError(t, err)

	reg := services.NewRegistry(services.Options{
		Store:      kv,
		Gateway:    gw,
		Notifier:   notifier,
		Push:       push,
		Entities:   store,
		Chat:       orchestrator,
		AgencyName: "Nikto IT",
		Location:   time.UTC,
	})

	server, err := NewServer(&Config{Name: "managerd-test", Version: "test", Logger: logger}, reg)
	require.NoError(t, err)
	return &testEnv{server: server, provider: provider, reg: reg}
}

func TestNewServer(t *testing.T) {
	t.Run("nil registry", func(t *testing.T) {
		_, err := NewServer(nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service registry is required")
	})

	t.Run("registry without services", func(t *testing.T) {
		_, err := NewServer(nil, services.NewRegistry(services.Options{}))
		require.Error(t, err)
	})

	t.Run("registers catalogue", func(t *testing.T) {
		env := setupTestServer(t)
		tools := env.server.Tools()
		assert.Equal(t, 8, tools.Count())
		for _, name := range []string{toolSubmit, toolTasks, toolSetStatus, toolLedger, toolAddTransaction} {
			_, ok := tools.Get(name)
			assert.True(t, ok, name)
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "managerd", cfg.Name)
	assert.NotEmpty(t, cfg.Version)
	assert.NotNil(t, cfg.Logger)
}
