// Package client is a typed client for the managerd HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/managerd/internal/chat"
	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
	api "github.com/fyrsmithlabs/managerd/internal/http"
	"github.com/fyrsmithlabs/managerd/internal/notify"
)

// DefaultServer is the daemon address used when none is given.
const DefaultServer = "http://localhost:9191"

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one managerd daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the daemon at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultServer
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the daemon address.
func (c *Client) BaseURL() string { return c.baseURL }

// Attachment is a downloaded file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", c.baseURL, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
		apiErr.Message = msg.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return nil, apiErr
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, method, path string, query url.Values, body interface{}) (Attachment, error) {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return Attachment{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	a := Attachment{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		a.Filename = params["filename"]
	}
	return a, nil
}

func confirm() url.Values {
	return url.Values{"confirm": []string{"true"}}
}

// Health checks the daemon liveness endpoint.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
	return out, err
}

// Login opens the operator session.
func (c *Client) Login(ctx context.Context, passphrase string) (api.SessionResponse, error) {
	var out api.SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/session/login", nil, api.LoginRequest{Passphrase: passphrase}, &out)
	return out, err
}

// Session reports the gate state.
func (c *Client) Session(ctx context.Context) (api.SessionResponse, error) {
	var out api.SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/session", nil, nil, &out)
	return out, err
}

// Logout closes the session.
func (c *Client) Logout(ctx context.Context) (api.SessionResponse, error) {
	var out api.SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/session/logout", confirm(), nil, &out)
	return out, err
}

// Submit sends one chat utterance.
func (c *Client) Submit(ctx context.Context, content string) (chat.Turn, error) {
	var out chat.Turn
	err := c.do(ctx, http.MethodPost, "/api/v1/chat/messages", nil, api.SubmitRequest{Content: content}, &out)
	return out, err
}

// History returns the conversation.
func (c *Client) History(ctx context.Context) ([]chat.Message, error) {
	var out []chat.Message
	err := c.do(ctx, http.MethodGet, "/api/v1/chat/history", nil, nil, &out)
	return out, err
}

// ClearHistory resets the conversation to the greeting.
func (c *Client) ClearHistory(ctx context.Context) ([]chat.Message, error) {
	var out []chat.Message
	err := c.do(ctx, http.MethodDelete, "/api/v1/chat/history", confirm(), nil, &out)
	return out, err
}

// ExportChat downloads the conversation log as PDF.
func (c *Client) ExportChat(ctx context.Context) (Attachment, error) {
	return c.download(ctx, http.MethodGet, "/api/v1/chat/export", nil, nil)
}

// Tasks returns the filtered dashboard view.
func (c *Client) Tasks(ctx context.Context, f dashboard.Filter) (api.TaskListResponse, error) {
	q := url.Values{}
	if f.Priority != "" {
		q.Set("priority", string(f.Priority))
	}
	if f.Assignee != "" {
		q.Set("assignee", f.Assignee)
	}
	if f.Bucket != "" {
		q.Set("bucket", string(f.Bucket))
	}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	var out api.TaskListResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/tasks", q, nil, &out)
	return out, err
}

// SetStatus changes one task's status.
func (c *Client) SetStatus(ctx context.Context, id string, status entity.Status) (entity.Task, error) {
	var out entity.Task
	err := c.do(ctx, http.MethodPatch, "/api/v1/tasks/"+url.PathEscape(id)+"/status", nil, api.StatusRequest{Status: status}, &out)
	return out, err
}

// Bulk applies a single-field patch to ids.
func (c *Client) Bulk(ctx context.Context, ids []string, patch entity.Patch) (api.BulkResponse, error) {
	var out api.BulkResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/tasks/bulk", nil, api.BulkRequest{IDs: ids, Patch: patch}, &out)
	return out, err
}

// Ledger returns totals and transactions newest first.
func (c *Client) Ledger(ctx context.Context) (dashboard.Ledger, error) {
	var out dashboard.Ledger
	err := c.do(ctx, http.MethodGet, "/api/v1/transactions", nil, nil, &out)
	return out, err
}

// AddTransaction records a ledger entry.
func (c *Client) AddTransaction(ctx context.Context, in entity.TransactionInput) (entity.Transaction, error) {
	var out entity.Transaction
	err := c.do(ctx, http.MethodPost, "/api/v1/transactions", nil, in, &out)
	return out, err
}

// DeleteTransaction removes a ledger entry.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/transactions/"+url.PathEscape(id), confirm(), nil, nil)
}

// Notifications lists live notifications.
func (c *Client) Notifications(ctx context.Context) ([]notify.Notification, error) {
	var out []notify.Notification
	err := c.do(ctx, http.MethodGet, "/api/v1/notifications", nil, nil, &out)
	return out, err
}

// Dismiss removes a notification.
func (c *Client) Dismiss(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(id), nil, nil, nil)
}

// PushRecipient returns the Telegram chat id alerts go to.
func (c *Client) PushRecipient(ctx context.Context) (string, error) {
	var out api.PushRecipient
	err := c.do(ctx, http.MethodGet, "/api/v1/settings/push-recipient", nil, nil, &out)
	return out.RecipientID, err
}

// SetPushRecipient stores the Telegram chat id.
func (c *Client) SetPushRecipient(ctx context.Context, id string) (string, error) {
	var out api.PushRecipient
	err := c.do(ctx, http.MethodPut, "/api/v1/settings/push-recipient", nil, api.PushRecipient{RecipientID: id}, &out)
	return out.RecipientID, err
}

// GenerateImage renders an image from a prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string, opts gateway.ImageOptions) (gateway.Image, error) {
	var out api.ImageResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/images/generate", nil, api.ImageRequest{Prompt: prompt, ImageOptions: opts}, &out)
	return out.Image, err
}

// EditImage applies a prompt to an existing image.
func (c *Client) EditImage(ctx context.Context, img gateway.Image, prompt string) (gateway.Image, error) {
	var out api.ImageResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/images/edit", nil, api.EditImageRequest{Image: string(img), Prompt: prompt}, &out)
	return out.Image, err
}

// Transcribe converts base64 or data-URL audio to text.
func (c *Client) Transcribe(ctx context.Context, audio string) (string, error) {
	var out api.TranscribeResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/audio/transcribe", nil, api.TranscribeRequest{Audio: audio}, &out)
	return out.Text, err
}

// Search runs a grounded web search.
func (c *Client) Search(ctx context.Context, query string) (gateway.SearchResult, error) {
	var out gateway.SearchResult
	err := c.do(ctx, http.MethodPost, "/api/v1/search", nil, api.SearchRequest{Query: query}, &out)
	return out, err
}

// ExportDocument renders a document as pdf or doc.
func (c *Client) ExportDocument(ctx context.Context, title, content, format string) (Attachment, error) {
	q := url.Values{}
	if format != "" {
		q.Set("format", format)
	}
	return c.download(ctx, http.MethodPost, "/api/v1/documents/export", q, api.DocumentRequest{Title: title, Content: content})
}
