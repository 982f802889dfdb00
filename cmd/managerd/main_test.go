package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testEnv(t *testing.T) int {
	t.Helper()
	port := freePort(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MANAGERD_STORAGE_BACKEND", "memory")
	t.Setenv("MANAGERD_SERVER_HTTP_HOST", "127.0.0.1")
	t.Setenv("MANAGERD_SERVER_HTTP_PORT", strconv.Itoa(port))
	t.Setenv("MANAGERD_SERVER_SHUTDOWN_TIMEOUT", "2s")
	return port
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "managerd by Fyrsmith Labs")
	assert.Contains(t, buf.String(), "Version:    dev")
}

func TestInitDependencies_InvalidLogLevel(t *testing.T) {
	testEnv(t)
	_, err := initDependencies(context.Background(), options{logLevel: "loud", logFormat: "json"})
	require.Error(t, err)
}

func TestInitDependencies_InvalidConfig(t *testing.T) {
	testEnv(t)
	t.Setenv("MANAGERD_STORAGE_BACKEND", "floppy")
	_, err := initDependencies(context.Background(), options{logLevel: "info", logFormat: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRunDaemon(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	port := testEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- runDaemon(ctx, options{logLevel: "error", logFormat: "json"})
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
