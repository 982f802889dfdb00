package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded JetStream-enabled NATS server.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFile(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	srv := startTestNATSServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	kv, err := ConnectNATS(ctx, srv.ClientURL(), "managerd_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"nats":   kv,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, KeyTasks)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, KeyTasks, []byte(`[{"id":"1"}]`)))
			got, err := store.Get(ctx, KeyTasks)
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"1"}]`, string(got))

			// Wholesale overwrite.
			require.NoError(t, store.Set(ctx, KeyTasks, []byte(`[]`)))
			got, err = store.Get(ctx, KeyTasks)
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			// Keys are independent.
			require.NoError(t, store.Set(ctx, KeyPushRecipient, []byte(`"12345"`)))
			got, err = store.Get(ctx, KeyTasks)
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			require.NoError(t, store.Delete(ctx, KeyTasks))
			_, err = store.Get(ctx, KeyTasks)
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting a missing key is a no-op.
			assert.NoError(t, store.Delete(ctx, KeyTransactions))

			assert.ErrorIs(t, store.Set(ctx, "../escape", []byte("x")), ErrInvalidKey)
			_, err = store.Get(ctx, "Bad Key")
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")

	first, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyAuthenticated, []byte("true")))

	info, err := os.Stat(filepath.Join(dir, KeyAuthenticated+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, err := NewFile(dir)
	require.NoError(t, err)
	got, err := second.Get(ctx, KeyAuthenticated)
	require.NoError(t, err)
	assert.Equal(t, "true", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestNewFile_EmptyDir(t *testing.T) {
	_, err := NewFile("")
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	type item struct {
		ID     string `json:"id"`
		Amount int    `json:"amount"`
	}

	var out []item
	found, err := LoadJSON(ctx, s, KeyTransactions, &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SaveJSON(ctx, s, KeyTransactions, []item{{ID: "a", Amount: 50}}))
	found, err = LoadJSON(ctx, s, KeyTransactions, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []item{{ID: "a", Amount: 50}}, out)

	require.NoError(t, s.Set(ctx, KeyTasks, []byte("{not json")))
	_, err = LoadJSON(ctx, s, KeyTasks, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode tasks")
}
