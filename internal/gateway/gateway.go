// Package gateway wraps the external LLM provider behind the capabilities
// the manager needs: classification, web search, image generation and
// editing, and audio transcription.
//
// Failure policy differs per capability. Classify never fails: provider,
// credential and parsing errors become a degraded answer-shaped result so
// the conversation is never interrupted. Transcribe degrades to a fixed
// string. Search and the image operations return typed errors to the
// caller. Every call is a single attempt; there is no retry layer.
package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMissingCredential means no provider API key is configured.
	ErrMissingCredential = errors.New("API Key is missing. Set provider.api_key (MANAGERD_PROVIDER_API_KEY) and restart")

	// ErrMalformedResponse means the provider answered with something unusable.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrUnsupported means the selected provider does not offer a capability.
	ErrUnsupported = errors.New("capability not supported by provider")

	// ErrNoImage means an image call succeeded but returned no image data.
	ErrNoImage = errors.New("provider returned no image")

	// ErrInvalidInput is returned for requests rejected before any provider call.
	ErrInvalidInput = errors.New("invalid input")
)

// TranscriptionFailed is what Transcribe returns instead of an error.
const TranscriptionFailed = "Audio transcription failed."

// noResults replaces an empty search answer.
const noResults = "No results found."

// TransportError wraps a failed provider exchange.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: provider returned %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Source is one web citation backing a search answer.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// SearchResult is a grounded answer plus its citations.
type SearchResult struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// AspectRatio of a generated image.
type AspectRatio string

const (
	Aspect1x1  AspectRatio = "1:1"
	Aspect16x9 AspectRatio = "16:9"
	Aspect9x16 AspectRatio = "9:16"
	Aspect4x3  AspectRatio = "4:3"
	Aspect3x4  AspectRatio = "3:4"
)

// ImageSize is the requested resolution tier.
type ImageSize string

const (
	Size1K ImageSize = "1K"
	Size2K ImageSize = "2K"
	Size4K ImageSize = "4K"
)

// ImageOptions configures GenerateImage. Zero values mean 1:1 at 1K.
type ImageOptions struct {
	AspectRatio AspectRatio `json:"aspectRatio"`
	Size        ImageSize   `json:"size"`
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.AspectRatio == "" {
		o.AspectRatio = Aspect1x1
	}
	if o.Size == "" {
		o.Size = Size1K
	}
	return o
}

// Validate rejects unknown ratios and sizes.
func (o ImageOptions) Validate() error {
	switch o.AspectRatio {
	case "", Aspect1x1, Aspect16x9, Aspect9x16, Aspect4x3, Aspect3x4:
	default:
		return fmt.Errorf("%w: aspect ratio %q", ErrInvalidInput, o.AspectRatio)
	}
	switch o.Size {
	case "", Size1K, Size2K, Size4K:
	default:
		return fmt.Errorf("%w: image size %q", ErrInvalidInput, o.Size)
	}
	return nil
}

var (
	imagePrefix = regexp.MustCompile(`^data:image/(png|jpeg|jpg|webp);base64,`)
	audioPrefix = regexp.MustCompile(`^data:audio/([a-z0-9.+-]+);base64,`)
)

// Image is a data URL (data:image/png;base64,...).
type Image string

// NewImage wraps raw base64 PNG data as a data URL.
func NewImage(b64 string) Image {
	return Image("data:image/png;base64," + b64)
}

// Base64 returns the payload with any data URL prefix stripped.
func (i Image) Base64() string {
	return imagePrefix.ReplaceAllString(strings.TrimSpace(string(i)), "")
}

// Bytes decodes the image payload.
func (i Image) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(i.Base64())
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64: %v", ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}
	return data, nil
}

// Audio is a decoded recording.
type Audio struct {
	Data   []byte
	Format string // file extension, e.g. "webm" or "mp3"
}

// ParseAudio decodes a base64 recording, with or without a data URL prefix.
func ParseAudio(s string) (Audio, error) {
	s = strings.TrimSpace(s)
	format := "mp3"
	if m := audioPrefix.FindStringSubmatch(s); m != nil {
		format = m[1]
		if format == "mpeg" {
			format = "mp3"
		}
		s = s[len(m[0]):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: audio is not valid base64: %v", ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return Audio{}, fmt.Errorf("%w: audio is empty", ErrInvalidInput)
	}
	return Audio{Data: data, Format: format}, nil
}

// Provider is one LLM backend. Complete returns the raw text of a single
// JSON-mode completion; the Service owns decoding and failure policy.
type Provider interface {
	Name() string
	HasCredential() bool
	Complete(ctx context.Context, system, prompt string) (string, error)
	Search(ctx context.Context, query string) (SearchResult, error)
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error)
	EditImage(ctx context.Context, img Image, prompt string) (Image, error)
	Transcribe(ctx context.Context, audio Audio) (string, error)
}
