package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/managerd/internal/config"
)

// captureStdout redirects logger output to a buffer for the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_WritesJSONWithConstantFields(t *testing.T) {
	buf := captureStdout(t)

	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info(context.Background(), "task created", zap.String("task_id", "1700000000000"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "task created", lines[0]["msg"])
	assert.Equal(t, "managerd", lines[0]["service"])
	assert.Equal(t, "1700000000000", lines[0]["task_id"])
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be")
}

func TestNewLogger_RedactsSensitiveFields(t *testing.T) {
	buf := captureStdout(t)

	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info(context.Background(), "push configured",
		zap.String("bot_token", "123456:ABCDEF"),
		zap.String("note", "Authorization: Bearer abc.def"),
		Secret("api_key_len", config.Secret("sk-12345")),
	)

	out := buf.String()
	assert.NotContains(t, out, "123456:ABCDEF")
	assert.NotContains(t, out, "abc.def")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "[REDACTED]", lines[0]["bot_token"])
	assert.Equal(t, "[REDACTED:pattern]", lines[0]["note"])
	assert.Equal(t, "[REDACTED:8]", lines[0]["api_key_len"])
}

func TestNewLogger_ErrorsBypassSampling(t *testing.T) {
	buf := captureStdout(t)

	cfg := NewDefaultConfig()
	cfg.Sampling.Initial = 1
	cfg.Sampling.Thereafter = 0
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		logger.Info(ctx, "tick")
		logger.Error(ctx, "push failed")
	}

	var infos, errs int
	for _, line := range decodeLines(t, buf) {
		switch line["msg"] {
		case "tick":
			infos++
		case "push failed":
			errs++
		}
	}
	assert.Equal(t, 1, infos)
	assert.Equal(t, 5, errs)
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)

	lvl, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = LevelFromString("loud")
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithChannel(ctx, ChannelHTTP)
	ctx = WithSessionID(ctx, "operator-1")
	ctx = WithRequestID(ctx, "req_42")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx = trace.ContextWithSpanContext(ctx, sc)

	keys := map[string]string{}
	for _, f := range ContextFields(ctx) {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "http", keys["channel"])
	assert.Equal(t, "operator-1", keys["session.id"])
	assert.Equal(t, "req_42", keys["request.id"])
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", keys["trace_id"])
}

func TestWithRequestID_DropsInvalid(t *testing.T) {
	ctx := WithRequestID(context.Background(), "bad id with spaces")
	assert.Empty(t, RequestIDFromContext(ctx))
}

func TestWithSessionID_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { WithSessionID(context.Background(), "") })
}

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithChannel(context.Background(), ChannelMonitor)

	tl.Warn(ctx, "deadline approaching", zap.String("task_id", "t1"), zap.Int("hours", 3))
	tl.Trace(ctx, "raw payload")

	tl.AssertLogged(t, zapcore.WarnLevel, "deadline")
	tl.AssertLogged(t, TraceLevel, "raw payload")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "deadline")
	tl.AssertField(t, "deadline approaching", "task_id", "t1")
	tl.AssertField(t, "deadline approaching", "hours", int64(3))
	tl.AssertField(t, "deadline approaching", "channel", "monitor")

	assert.Len(t, tl.All(), 2)
	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestLogger_WithAndNamed(t *testing.T) {
	tl := NewTestLogger()
	child := tl.Named("chat").With(zap.String("component", "orchestrator"))

	child.Info(context.Background(), "turn complete")

	entries := tl.FilterMessage("turn complete").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "chat", entries[0].LoggerName)
	assert.Equal(t, "orchestrator", entries[0].ContextMap()["component"])
}

func TestNewLogger_StderrOutput(t *testing.T) {
	out := captureStdout(t)
	var errBuf bytes.Buffer
	orig := stderr
	stderr = &errBuf
	t.Cleanup(func() { stderr = orig })

	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false
	cfg.Output = OutputConfig{Stderr: true}
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info(context.Background(), "serving mcp")

	assert.Empty(t, out.String())
	lines := decodeLines(t, &errBuf)
	require.Len(t, lines, 1)
	assert.Equal(t, "serving mcp", lines[0]["msg"])
}
