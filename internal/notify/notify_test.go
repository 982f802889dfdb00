package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/managerd/internal/kvstore"
	"github.com/fyrsmithlabs/managerd/internal/logging"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type mockPusher struct{ mock.Mock }

func (m *mockPusher) Send(ctx context.Context, recipientID, text string) error {
	return m.Called(ctx, recipientID, text).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, n Notification) error {
	return m.Called(ctx, n).Error(0)
}

func TestNotifier_ExpiresAfterTTL(t *testing.T) {
	c := &clock{t: time.Date(2025, 12, 17, 12, 0, 0, 0, time.UTC)}
	n := New(nil, WithClock(c.now))

	first := n.Notify(context.Background(), "Task Created", "Fix website", KindInfo)
	c.t = c.t.Add(3 * time.Second)
	second := n.Notify(context.Background(), "Deadline Approaching", `Task "Fix website" is due soon!`, KindWarning)

	live := n.List()
	require.Len(t, live, 2)
	assert.Equal(t, first.ID, live[0].ID)
	assert.NotEqual(t, first.ID, second.ID)

	c.t = c.t.Add(2 * time.Second)
	live = n.List()
	require.Len(t, live, 1, "first entry reaches its 5s TTL")
	assert.Equal(t, second.ID, live[0].ID)

	c.t = c.t.Add(3 * time.Second)
	assert.Empty(t, n.List())
}

func TestNotifier_Dismiss(t *testing.T) {
	n := New(nil, WithTTL(time.Minute))
	note := n.Notify(context.Background(), "Bulk Update", "Updated 2 tasks (status)", KindInfo)

	assert.True(t, n.Dismiss(note.ID))
	assert.False(t, n.Dismiss(note.ID))
	assert.Empty(t, n.List())
}

func TestNotifier_PublishFailureIsLogged(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("no responders"))
	logger := logging.NewTestLogger()

	n := New(logger.Underlying(), WithPublisher(pub))
	n.Notify(context.Background(), "System Access", "Welcome back, Commander.", KindInfo)

	assert.Len(t, n.List(), 1)
	pub.AssertExpectations(t)
	logger.AssertLogged(t, zapcore.WarnLevel, "failed to publish notification")
}

func TestPushChannel(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	pusher := &mockPusher{}
	ch := NewPushChannel(pusher, kv, nil)

	// No recipient: suppressed without calling the pusher.
	assert.False(t, ch.Push(ctx, "hello"))

	require.NoError(t, ch.SetRecipient(ctx, " 12345 "))
	assert.Equal(t, "12345", ch.Recipient())

	pusher.On("Send", mock.Anything, "12345", "hello").Return(nil).Once()
	assert.True(t, ch.Push(ctx, "hello"))

	pusher.On("Send", mock.Anything, "12345", "again").Return(errors.New("blocked")).Once()
	assert.False(t, ch.Push(ctx, "again"))
	pusher.AssertExpectations(t)

	reloaded := NewPushChannel(pusher, kv, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, "12345", reloaded.Recipient())
}

func TestTelegram_Send(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{BotToken: "123:abc", BaseURL: srv.URL})
	require.NoError(t, tg.Send(context.Background(), "42", "*hi*"))
	assert.Equal(t, sendMessageRequest{ChatID: "42", Text: "*hi*", ParseMode: "Markdown"}, got)

	assert.NoError(t, tg.Send(context.Background(), "", "ignored"))
}

func TestTelegram_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	err := NewTelegram(TelegramConfig{BotToken: "123:abc", BaseURL: srv.URL}).Send(context.Background(), "42", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")

	err = NewTelegram(TelegramConfig{}).Send(context.Background(), "42", "x")
	assert.ErrorIs(t, err, ErrNoBotToken)
}

func TestMessageFormatting(t *testing.T) {
	alert := TaskAlertText("Nikto IT", "Fix website", "", "High")
	assert.True(t, strings.HasPrefix(alert, "*Nikto IT Manager Alert* 🚨"))
	assert.Contains(t, alert, "*Deadline:* Not specified")
	assert.Contains(t, TaskAlertText("Nikto IT", "x", "", "Medium"), "🟡")
	assert.Contains(t, TaskAlertText("Nikto IT", "x", "", ""), "*Priority:* Normal")
	assert.Contains(t, TaskAlertText("Nikto IT", "x", "", ""), "🟢")

	assert.Equal(t, "⚠️ *Deadline Warning*: Task *Fix website* is due in less than 24 hours!",
		DeadlineWarningText("Fix website"))
}

func TestNATSPublisher(t *testing.T) {
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go srv.Start()
	require.True(t, srv.ReadyForConnections(5*time.Second))
	t.Cleanup(srv.Shutdown)

	sub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("managerd.notifications.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := ConnectNATSPublisher(srv.ClientURL(), "managerd.notifications")
	require.NoError(t, err)
	defer pub.Close()

	n := New(nil, WithPublisher(pub))
	note := n.Notify(context.Background(), "Transaction Added", "$50 expense", KindInfo)

	select {
	case msg := <-msgs:
		assert.Equal(t, "managerd.notifications.info", msg.Subject)
		var got Notification
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, note.ID, got.ID)
		assert.Equal(t, "$50 expense", got.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered")
	}
}
