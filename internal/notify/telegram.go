package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// ErrNoBotToken is returned when sending without a configured bot token.
var ErrNoBotToken = errors.New("telegram bot token is not configured")

// Pusher delivers a text message to a recipient.
type Pusher interface {
	Send(ctx context.Context, recipientID, text string) error
}

// TelegramConfig configures the Telegram Bot API client.
type TelegramConfig struct {
	BotToken   string
	BaseURL    string
	HTTPClient *http.Client
}

// Telegram sends Markdown messages through the Bot API.
type Telegram struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Pusher = (*Telegram)(nil)

// NewTelegram creates a Telegram client. Bot API allows roughly one
// message per second per chat, which the limiter enforces.
func NewTelegram(cfg TelegramConfig) *Telegram {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Telegram{
		token:      cfg.BotToken,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts text to chatID. An empty chatID is a silent no-op.
func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return nil
	}
	if t.token == "" {
		return ErrNoBotToken
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL embeds the token; never surface it.
		return fmt.Errorf("telegram request failed: %w", errors.Unwrap(err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var tr telegramResponse
	_ = json.Unmarshal(body, &tr)
	if resp.StatusCode != http.StatusOK || !tr.OK {
		if tr.Description != "" {
			return fmt.Errorf("telegram API error (%d): %s", resp.StatusCode, tr.Description)
		}
		return fmt.Errorf("telegram API error (%d)", resp.StatusCode)
	}
	return nil
}

// TaskAlertText formats the push message for a newly assigned task.
func TaskAlertText(agency, taskName, deadline, priority string) string {
	icon := "🟢"
	switch priority {
	case "High":
		icon = "🚨"
	case "Medium":
		icon = "🟡"
	}
	if deadline == "" {
		deadline = "Not specified"
	}
	if priority == "" {
		priority = "Normal"
	}
	return fmt.Sprintf("*%s Manager Alert* %s\n\n*Task:* %s\n*Deadline:* %s\n*Priority:* %s\n\n_Please check the dashboard for details._",
		agency, icon, taskName, deadline, priority)
}

// DeadlineWarningText formats the push message for an approaching deadline.
func DeadlineWarningText(taskName string) string {
	return fmt.Sprintf("⚠️ *Deadline Warning*: Task *%s* is due in less than 24 hours!", taskName)
}
