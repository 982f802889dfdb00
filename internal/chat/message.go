package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/managerd/internal/gateway"
	"github.com/fyrsmithlabs/managerd/internal/intent"
)

// Role of a message author.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// MessageKind selects how a message renders.
type MessageKind string

const (
	KindText            MessageKind = "text"
	KindTaskCard        MessageKind = "task_card"
	KindDocumentCard    MessageKind = "document_card"
	KindTransactionCard MessageKind = "transaction_card"
)

// CardKind maps an intent discriminant onto its card.
func CardKind(k intent.Kind) MessageKind {
	switch k {
	case intent.KindTask:
		return KindTaskCard
	case intent.KindDocument:
		return KindDocumentCard
	case intent.KindTransaction:
		return KindTransactionCard
	default:
		return KindText
	}
}

// Message is one entry of the conversation.
type Message struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Kind      MessageKind      `json:"type"`
	Intent    *intent.Result   `json:"intent,omitempty"`
	Sources   []gateway.Source `json:"sources,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// WelcomeID identifies the greeting that starts every conversation.
const WelcomeID = "welcome"

// Welcome is the greeting a fresh or cleared history holds.
func Welcome(agency string, now time.Time) Message {
	return Message{
		ID:   WelcomeID,
		Role: RoleAI,
		Content: fmt.Sprintf("Hello. I am the %s Central AI Manager. Assign me a task, ask a strategic question, "+
			"or ask me to generate a document (e.g., 'Create a proposal').", agency),
		Kind:      KindText,
		Timestamp: now,
	}
}

func newMessage(role Role, content string, kind MessageKind, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Kind:      kind,
		Timestamp: now,
	}
}

// IsSearch reports whether an utterance asks for a web search: it
// contains "search for" or starts with "google ", case-insensitively.
func IsSearch(utterance string) bool {
	lower := strings.ToLower(utterance)
	return strings.Contains(lower, "search for") || strings.HasPrefix(lower, "google ")
}
