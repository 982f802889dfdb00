package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.1"
)

// OllamaConfig configures OllamaProvider.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OllamaProvider classifies with a local Ollama model. It offers no web
// search, image or audio capabilities.
type OllamaProvider struct {
	client *api.Client
	model  string
}

var _ Provider = (*OllamaProvider)(nil)

// NewOllamaProvider creates a provider for the Ollama server at cfg.BaseURL.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", cfg.BaseURL, err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 300 * time.Second}
	}
	return &OllamaProvider{
		client: api.NewClient(base, httpClient),
		model:  cfg.Model,
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// HasCredential is always true; a local server needs no key.
func (p *OllamaProvider) HasCredential() bool { return true }

// Complete runs a single non-streaming chat in JSON format.
func (p *OllamaProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}

	var out strings.Builder
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", &TransportError{Op: "classify", StatusCode: statusErr.StatusCode, Err: errors.New(statusErr.ErrorMessage)}
		}
		return "", &TransportError{Op: "classify", Err: err}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedResponse)
	}
	return out.String(), nil
}

func (p *OllamaProvider) Search(context.Context, string) (SearchResult, error) {
	return SearchResult{}, fmt.Errorf("%w: ollama search", ErrUnsupported)
}

func (p *OllamaProvider) GenerateImage(context.Context, string, ImageOptions) (Image, error) {
	return "", fmt.Errorf("%w: ollama image generation", ErrUnsupported)
}

func (p *OllamaProvider) EditImage(context.Context, Image, string) (Image, error) {
	return "", fmt.Errorf("%w: ollama image editing", ErrUnsupported)
}

func (p *OllamaProvider) Transcribe(context.Context, Audio) (string, error) {
	return "", fmt.Errorf("%w: ollama transcription", ErrUnsupported)
}
