package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

const (
	defaultOpenAIBaseURL         = "https://api.openai.com/v1"
	defaultOpenAIModel           = "gpt-4o-mini"
	defaultOpenAISearchModel     = "gpt-4o-mini-search-preview"
	defaultOpenAIImageModel      = "gpt-image-1"
	defaultOpenAITranscribeModel = "whisper-1"
	defaultRateLimit             = 5.0
	defaultBurst                 = 2
	maxResponseBytes             = 32 << 20
)

// OpenAIConfig configures OpenAIProvider. Empty fields take defaults.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	SearchModel     string
	ImageModel      string
	TranscribeModel string
	RateLimit       float64

	// HTTPClient is used for search, image and transcription calls.
	HTTPClient *http.Client
}

// OpenAIProvider talks to an OpenAI-compatible API. Classification goes
// through langchaingo in JSON mode; the endpoints langchaingo does not
// cover are called directly.
type OpenAIProvider struct {
	cfg        OpenAIConfig
	llm        *openai.LLM
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider builds the provider. A missing API key is not an
// error here: the provider reports HasCredential false and the Service
// turns every call into ErrMissingCredential.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.SearchModel == "" {
		cfg.SearchModel = defaultOpenAISearchModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultOpenAIImageModel
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = defaultOpenAITranscribeModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}

	p := &OpenAIProvider{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), defaultBurst),
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	if cfg.APIKey != "" {
		llm, err := openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
			openai.WithBaseURL(cfg.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		p.llm = llm
	}
	return p, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) HasCredential() bool { return p.cfg.APIKey != "" }

// Complete runs one JSON-mode chat completion.
func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	if p.llm == nil {
		return "", ErrMissingCredential
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithJSONMode())
	if err != nil {
		return "", &TransportError{Op: "classify", Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedResponse)
	}
	return resp.Choices[0].Content, nil
}

type searchRequest struct {
	Model            string          `json:"model"`
	WebSearchOptions struct{}        `json:"web_search_options"`
	Messages         []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchResponse struct {
	Choices []struct {
		Message struct {
			Content     string `json:"content"`
			Annotations []struct {
				Type        string `json:"type"`
				URLCitation struct {
					URL   string `json:"url"`
					Title string `json:"title"`
				} `json:"url_citation"`
			} `json:"annotations"`
		} `json:"message"`
	} `json:"choices"`
}

// Search asks a search-enabled model and collects its URL citations.
func (p *OpenAIProvider) Search(ctx context.Context, query string) (SearchResult, error) {
	req := searchRequest{
		Model:    p.cfg.SearchModel,
		Messages: []openAIMessage{{Role: "user", Content: query}},
	}
	var resp searchResponse
	if err := p.doJSON(ctx, "search", "/chat/completions", req, &resp); err != nil {
		return SearchResult{}, err
	}
	if len(resp.Choices) == 0 {
		return SearchResult{}, fmt.Errorf("%w: no choices in search response", ErrMalformedResponse)
	}

	msg := resp.Choices[0].Message
	result := SearchResult{Text: msg.Content}
	seen := make(map[string]bool)
	for _, a := range msg.Annotations {
		if a.Type != "url_citation" || a.URLCitation.URL == "" || seen[a.URLCitation.URL] {
			continue
		}
		seen[a.URLCitation.URL] = true
		result.Sources = append(result.Sources, Source{URI: a.URLCitation.URL, Title: a.URLCitation.Title})
	}
	return result, nil
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (r imageResponse) image() (Image, error) {
	for _, d := range r.Data {
		if d.B64JSON != "" {
			return NewImage(d.B64JSON), nil
		}
	}
	return "", ErrNoImage
}

// openAIImageSize maps an aspect ratio onto the closest supported canvas.
func openAIImageSize(ratio AspectRatio) string {
	switch ratio {
	case Aspect16x9, Aspect4x3:
		return "1536x1024"
	case Aspect9x16, Aspect3x4:
		return "1024x1536"
	default:
		return "1024x1024"
	}
}

// openAIImageQuality maps a resolution tier onto a quality level.
func openAIImageQuality(size ImageSize) string {
	switch size {
	case Size4K:
		return "high"
	case Size2K:
		return "medium"
	default:
		return "low"
	}
}

// GenerateImage calls the image generation endpoint.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error) {
	opts = opts.withDefaults()
	req := imageRequest{
		Model:   p.cfg.ImageModel,
		Prompt:  prompt,
		N:       1,
		Size:    openAIImageSize(opts.AspectRatio),
		Quality: openAIImageQuality(opts.Size),
	}
	var resp imageResponse
	if err := p.doJSON(ctx, "generate_image", "/images/generations", req, &resp); err != nil {
		return "", err
	}
	return resp.image()
}

// EditImage uploads img with prompt to the image edit endpoint.
func (p *OpenAIProvider) EditImage(ctx context.Context, img Image, prompt string) (Image, error) {
	data, err := img.Bytes()
	if err != nil {
		return "", err
	}
	form := multipartForm{
		fields:    map[string]string{"model": p.cfg.ImageModel, "prompt": prompt},
		fileField: "image",
		filename:  "image.png",
		mimeType:  "image/png",
		data:      data,
	}
	var resp imageResponse
	if err := p.doMultipart(ctx, "edit_image", "/images/edits", form, &resp); err != nil {
		return "", err
	}
	return resp.image()
}

// Transcribe uploads audio to the transcription endpoint.
func (p *OpenAIProvider) Transcribe(ctx context.Context, audio Audio) (string, error) {
	form := multipartForm{
		fields:    map[string]string{"model": p.cfg.TranscribeModel},
		fileField: "file",
		filename:  "audio." + audio.Format,
		mimeType:  "audio/" + audio.Format,
		data:      audio.Data,
	}
	var resp struct {
		Text string `json:"text"`
	}
	if err := p.doMultipart(ctx, "transcribe", "/audio/transcriptions", form, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

type multipartForm struct {
	fields    map[string]string
	fileField string
	filename  string
	mimeType  string
	data      []byte
}

func (f multipartForm) encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range f.fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.fileField, f.filename))
	h.Set("Content-Type", f.mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func (p *OpenAIProvider) doJSON(ctx context.Context, op, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return p.do(ctx, op, path, "application/json", bytes.NewReader(payload), out)
}

func (p *OpenAIProvider) doMultipart(ctx context.Context, op, path string, form multipartForm, out interface{}) error {
	body, contentType, err := form.encode()
	if err != nil {
		return fmt.Errorf("failed to encode form: %w", err)
	}
	return p.do(ctx, op, path, contentType, body, out)
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// do performs a single request. There is no retry: failures surface to
// the Service, which applies the capability's policy.
func (p *OpenAIProvider) do(ctx context.Context, op, path, contentType string, body io.Reader, out interface{}) error {
	if !p.HasCredential() {
		return ErrMissingCredential
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr openAIError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", apiErr.Error.Message)}
		}
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(data)))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	return nil
}
