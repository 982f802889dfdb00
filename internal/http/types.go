package http

import (
	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// LoginRequest is the request body for POST /api/v1/session/login.
type LoginRequest struct {
	Passphrase string `json:"passphrase"`
}

// SessionResponse is the response body for the session endpoints.
type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Provider      string        `json:"provider,omitempty"`
	ProviderReady bool          `json:"provider_ready"`
	Agency        string        `json:"agency,omitempty"`
	Monitoring    bool          `json:"monitoring"`
	Counts        *StatusCounts `json:"counts,omitempty"`
}

// StatusCounts contains count information for the stored collections.
type StatusCounts struct {
	Messages      int `json:"messages"`
	Tasks         int `json:"tasks"`
	Transactions  int `json:"transactions"`
	Notifications int `json:"notifications"`
}

// SubmitRequest is the request body for POST /api/v1/chat/messages.
type SubmitRequest struct {
	Content string `json:"content"`
}

// TaskListResponse is the response body for GET /api/v1/tasks.
type TaskListResponse struct {
	Tasks     []entity.Task    `json:"tasks"`
	Stats     dashboard.Stats  `json:"stats"`
	Assignees []string         `json:"assignees"`
	Filter    dashboard.Filter `json:"filter"`
	Selected  []string         `json:"selected"`
}

// StatusRequest is the request body for PATCH /api/v1/tasks/:id/status.
type StatusRequest struct {
	Status entity.Status `json:"status"`
}

// SelectionRequest is the request body for POST /api/v1/tasks/selection.
type SelectionRequest struct {
	ID string `json:"id"`
}

// SelectionResponse lists the selected task ids.
type SelectionResponse struct {
	Selected    []string `json:"selected"`
	AllSelected bool     `json:"all_selected"`
}

// BulkRequest is the request body for POST /api/v1/tasks/bulk. When IDs
// is empty the server-side selection is used and then cleared.
type BulkRequest struct {
	IDs []string `json:"ids,omitempty"`
	entity.Patch
}

// BulkResponse reports how many tasks a bulk edit touched.
type BulkResponse struct {
	Updated int    `json:"updated"`
	Field   string `json:"field"`
}

// PushRecipient is the body of the push-recipient settings endpoints.
type PushRecipient struct {
	RecipientID string `json:"recipient_id"`
}

// ImageRequest is the request body for POST /api/v1/images/generate.
type ImageRequest struct {
	Prompt string `json:"prompt"`
	gateway.ImageOptions
}

// EditImageRequest is the request body for POST /api/v1/images/edit.
type EditImageRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

// ImageResponse carries a data URL.
type ImageResponse struct {
	Image gateway.Image `json:"image"`
}

// TranscribeRequest is the request body for POST /api/v1/audio/transcribe.
// Audio is a data URL or bare base64.
type TranscribeRequest struct {
	Audio string `json:"audio"`
}

// TranscribeResponse is the response body for POST /api/v1/audio/transcribe.
type TranscribeResponse struct {
	Text string `json:"text"`
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
}

// DocumentRequest is the request body for POST /api/v1/documents/export.
type DocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
