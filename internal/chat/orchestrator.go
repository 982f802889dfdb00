// Package chat owns the conversation. It routes each utterance to web
// search or classification, applies the side effects of the result, and
// appends the rendered reply.
//
// Ordering within one submission is strict: the user message is appended
// before the provider call and the reply after every side effect. Across
// submissions ordering is best effort. The history lock is not held while
// the provider is working, so replies to overlapping submissions land in
// completion order.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/kvstore"
	"github.com/fyrsmithlabs/managerd/internal/notify"
)

// ErrEmptyUtterance is returned by Submit for blank input.
var ErrEmptyUtterance = errors.New("utterance is empty")

// TurnsTotal counts completed chat turns.
// Labels: kind (text, task_card, document_card, transaction_card, search, error)
var TurnsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "managerd",
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "Total number of chat turns by reply kind",
	},
	[]string{"kind"},
)

// Gateway is the provider surface the orchestrator needs.
type Gateway interface {
	Classify(ctx context.Context, utterance string) intent.Result
	Search(ctx context.Context, query string) (gateway.SearchResult, error)
}

// Entities receives task and transaction side effects.
type Entities interface {
	AddTask(ctx context.Context, r intent.Result) (entity.Task, error)
	AddTransaction(ctx context.Context, in entity.TransactionInput) (entity.Transaction, error)
}

// Alerter raises in-process notifications.
type Alerter interface {
	Notify(ctx context.Context, title, message string, kind notify.Kind) notify.Notification
}

// Pusher sends best-effort out-of-process messages.
type Pusher interface {
	Push(ctx context.Context, text string) bool
}

// Deps are the collaborators of an Orchestrator. Pusher may be nil.
type Deps struct {
	Gateway  Gateway
	Entities Entities
	Alerter  Alerter
	Pusher   Pusher
	Store    kvstore.Store
	Logger   *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAgencyName sets the name used in the welcome message and push alerts.
func WithAgencyName(name string) Option {
	return func(o *Orchestrator) { o.agency = name }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Turn is the outcome of one submission.
type Turn struct {
	User        Message             `json:"user"`
	Reply       Message             `json:"reply"`
	Task        *entity.Task        `json:"task,omitempty"`
	Transaction *entity.Transaction `json:"transaction,omitempty"`
}

// Orchestrator owns the chat history.
type Orchestrator struct {
	gw       Gateway
	entities Entities
	alerter  Alerter
	pusher   Pusher
	kv       kvstore.Store
	logger   *zap.Logger
	agency   string
	now      func() time.Time

	mu      sync.Mutex
	history []Message
}

// New creates an orchestrator holding only the welcome message. Call
// Load to restore a persisted conversation.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if deps.Entities == nil {
		return nil, errors.New("entity store is required")
	}
	if deps.Alerter == nil {
		return nil, errors.New("alerter is required")
	}
	if deps.Store == nil {
		return nil, errors.New("key-value store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	o := &Orchestrator{
		gw:       deps.Gateway,
		entities: deps.Entities,
		alerter:  deps.Alerter,
		pusher:   deps.Pusher,
		kv:       deps.Store,
		logger:   deps.Logger,
		agency:   "Nikto IT",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.history = []Message{Welcome(o.agency, o.now())}
	return o, nil
}

// Load restores the persisted history. An absent or empty history starts
// from the welcome message.
func (o *Orchestrator) Load(ctx context.Context) error {
	var history []Message
	if _, err := kvstore.LoadJSON(ctx, o.kv, kvstore.KeyChatHistory, &history); err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}
	if len(history) == 0 {
		history = []Message{Welcome(o.agency, o.now())}
	}

	o.mu.Lock()
	o.history = history
	o.mu.Unlock()
	return nil
}

// History returns the conversation, oldest first.
func (o *Orchestrator) History() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.history...)
}

// Clear discards every message and leaves only the welcome message.
func (o *Orchestrator) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := []Message{Welcome(o.agency, o.now())}
	if err := kvstore.SaveJSON(ctx, o.kv, kvstore.KeyChatHistory, next); err != nil {
		return fmt.Errorf("persist chat history: %w", err)
	}
	o.history = next
	o.logger.Info("chat history cleared")
	return nil
}

// Submit runs one chat turn. Provider failures never surface as errors:
// they become plain-text replies. Errors are returned only for blank
// input or a failed history write.
func (o *Orchestrator) Submit(ctx context.Context, utterance string) (Turn, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Turn{}, ErrEmptyUtterance
	}

	turn := Turn{User: newMessage(RoleUser, utterance, KindText, o.now())}
	if err := o.append(ctx, turn.User); err != nil {
		return turn, err
	}

	label := ""
	if IsSearch(utterance) {
		turn.Reply, label = o.search(ctx, utterance)
	} else {
		label = o.classify(ctx, utterance, &turn)
	}

	TurnsTotal.WithLabelValues(label).Inc()
	if err := o.append(ctx, turn.Reply); err != nil {
		return turn, err
	}
	return turn, nil
}

func (o *Orchestrator) search(ctx context.Context, query string) (Message, string) {
	result, err := o.gw.Search(ctx, query)
	if err != nil {
		o.logger.Warn("search failed", zap.Error(err))
		return newMessage(RoleAI, "Search failed: "+err.Error(), KindText, o.now()), "error"
	}
	// Search answers always render as text, even when they look like JSON.
	msg := newMessage(RoleAI, result.Text, KindText, o.now())
	msg.Sources = result.Sources
	return msg, "search"
}

// classify fills turn.Reply and the side-effect fields and returns the
// metric label.
func (o *Orchestrator) classify(ctx context.Context, utterance string, turn *Turn) string {
	result := o.gw.Classify(ctx, utterance)
	kind := intent.Classify(result)

	// Task and transaction effects are checked independently; one reply
	// can create both even though it renders as a single card.
	if result.IsTask {
		task, err := o.entities.AddTask(ctx, result)
		if err != nil {
			return o.systemError(turn, err)
		}
		turn.Task = &task
		o.announceTask(ctx, task)
	}
	if result.TransactionData != nil {
		tx, err := o.entities.AddTransaction(ctx, entity.FromIntent(*result.TransactionData))
		if err != nil {
			return o.systemError(turn, err)
		}
		turn.Transaction = &tx
		o.alerter.Notify(ctx, "Transaction Added", fmt.Sprintf("$%s %s", formatAmount(tx.Amount), tx.Kind), notify.KindInfo)
	}
	if kind == intent.KindDocument {
		o.alerter.Notify(ctx, "Document Generated", "Draft created: "+result.DocumentTitle, notify.KindInfo)
	}

	card := CardKind(kind)
	turn.Reply = newMessage(RoleAI, result.TaskName, card, o.now())
	turn.Reply.Intent = &result
	return string(card)
}

func (o *Orchestrator) announceTask(ctx context.Context, task entity.Task) {
	if task.Priority != intent.PriorityHigh {
		o.alerter.Notify(ctx, "Task Created", task.TaskName, notify.KindInfo)
		return
	}
	o.alerter.Notify(ctx, "High Priority Task", "New task assigned: "+task.TaskName, notify.KindAlert)
	if o.pusher != nil {
		o.pusher.Push(ctx, notify.TaskAlertText(o.agency, task.TaskName, task.Deadline, string(task.Priority)))
	}
}

func (o *Orchestrator) systemError(turn *Turn, err error) string {
	o.logger.Error("chat side effect failed", zap.Error(err))
	text := "System Error: " + err.Error()
	if turn.Task != nil {
		text += fmt.Sprintf("\nTask %q was created.", turn.Task.TaskName)
	}
	turn.Reply = newMessage(RoleAI, text, KindText, o.now())
	return "error"
}

func (o *Orchestrator) append(ctx context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := make([]Message, len(o.history), len(o.history)+1)
	copy(next, o.history)
	next = append(next, msg)
	if err := kvstore.SaveJSON(ctx, o.kv, kvstore.KeyChatHistory, next); err != nil {
		o.logger.Error("failed to persist chat history", zap.Error(err))
		return fmt.Errorf("persist chat history: %w", err)
	}
	o.history = next
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
