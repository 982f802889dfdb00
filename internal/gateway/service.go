package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/intent"
)

const instrumentationName = "github.com/fyrsmithlabs/managerd/internal/gateway"

// Option configures a Service.
type Option func(*Service)

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithAgencyName sets the agency named in the classifier instruction.
func WithAgencyName(name string) Option {
	return func(s *Service) { s.agency = name }
}

// WithClock overrides the time source used for the injected current date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone the current date is rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// Service applies the per-capability failure policy over a Provider.
type Service struct {
	provider Provider
	logger   *zap.Logger
	tracer   trace.Tracer
	agency   string
	now      func() time.Time
	loc      *time.Location
}

// NewService wraps provider.
func NewService(provider Provider, logger *zap.Logger, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		provider: provider,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		agency:   "Nikto IT",
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProviderName reports the backing provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Ready returns ErrMissingCredential when the provider cannot be called.
func (s *Service) Ready() error {
	if !s.provider.HasCredential() {
		return ErrMissingCredential
	}
	return nil
}

// Classify turns an utterance into an intent result. It never fails.
func (s *Service) Classify(ctx context.Context, utterance string) intent.Result {
	ctx, span, done := s.begin(ctx, "classify")
	defer span.End()

	result, err := s.classify(ctx, utterance)
	if err != nil {
		done("degraded")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("classification degraded", zap.String("provider", s.provider.Name()), zap.Error(err))
		return intent.Degraded(err)
	}

	kind := intent.Classify(result)
	span.SetAttributes(attribute.String("intent.kind", kind.String()))
	done("ok")
	return result
}

func (s *Service) classify(ctx context.Context, utterance string) (intent.Result, error) {
	if err := s.Ready(); err != nil {
		return intent.Result{}, err
	}
	system := SystemInstruction(s.agency, s.now().In(s.loc))
	raw, err := s.provider.Complete(ctx, system, utterance)
	if err != nil {
		return intent.Result{}, err
	}
	result, err := intent.Decode(raw)
	if err != nil {
		return intent.Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result, nil
}

// Search answers query from the web with citations.
func (s *Service) Search(ctx context.Context, query string) (SearchResult, error) {
	ctx, span, done := s.begin(ctx, "search")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return SearchResult{}, s.fail(span, done, fmt.Errorf("%w: empty query", ErrInvalidInput))
	}
	if err := s.Ready(); err != nil {
		return SearchResult{}, s.fail(span, done, err)
	}

	result, err := s.provider.Search(ctx, query)
	if err != nil {
		return SearchResult{}, s.fail(span, done, err)
	}
	if strings.TrimSpace(result.Text) == "" {
		result.Text = noResults
	}
	span.SetAttributes(attribute.Int("search.sources", len(result.Sources)))
	done("ok")
	return result, nil
}

// GenerateImage renders prompt into a PNG data URL.
func (s *Service) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error) {
	ctx, span, done := s.begin(ctx, "generate_image")
	defer span.End()

	if strings.TrimSpace(prompt) == "" {
		return "", s.fail(span, done, fmt.Errorf("%w: empty prompt", ErrInvalidInput))
	}
	if err := opts.Validate(); err != nil {
		return "", s.fail(span, done, err)
	}
	if err := s.Ready(); err != nil {
		return "", s.fail(span, done, err)
	}

	opts = opts.withDefaults()
	span.SetAttributes(
		attribute.String("image.aspect_ratio", string(opts.AspectRatio)),
		attribute.String("image.size", string(opts.Size)),
	)
	img, err := s.provider.GenerateImage(ctx, prompt, opts)
	if err != nil {
		return "", s.fail(span, done, err)
	}
	done("ok")
	return img, nil
}

// EditImage applies prompt to img and returns the edited PNG data URL.
func (s *Service) EditImage(ctx context.Context, img Image, prompt string) (Image, error) {
	ctx, span, done := s.begin(ctx, "edit_image")
	defer span.End()

	if strings.TrimSpace(prompt) == "" {
		return "", s.fail(span, done, fmt.Errorf("%w: empty prompt", ErrInvalidInput))
	}
	if _, err := img.Bytes(); err != nil {
		return "", s.fail(span, done, err)
	}
	if err := s.Ready(); err != nil {
		return "", s.fail(span, done, err)
	}

	out, err := s.provider.EditImage(ctx, img, prompt)
	if err != nil {
		return "", s.fail(span, done, err)
	}
	done("ok")
	return out, nil
}

// Transcribe returns the text of audio, or TranscriptionFailed.
func (s *Service) Transcribe(ctx context.Context, audio Audio) string {
	ctx, span, done := s.begin(ctx, "transcribe")
	defer span.End()

	text, err := s.transcribe(ctx, audio)
	if err != nil {
		done("degraded")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("transcription failed", zap.String("provider", s.provider.Name()), zap.Error(err))
		return TranscriptionFailed
	}
	done("ok")
	return text
}

func (s *Service) transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}
	if err := s.Ready(); err != nil {
		return "", err
	}
	text, err := s.provider.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// begin starts a span and returns a completion func recording metrics.
func (s *Service) begin(ctx context.Context, capability string) (context.Context, trace.Span, func(outcome string)) {
	ctx, span := s.tracer.Start(ctx, "gateway."+capability,
		trace.WithAttributes(
			attribute.String("gateway.capability", capability),
			attribute.String("gateway.provider", s.provider.Name()),
		))
	start := time.Now()
	return ctx, span, func(outcome string) {
		CallsTotal.WithLabelValues(capability, outcome).Inc()
		CallDuration.WithLabelValues(capability).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("gateway.outcome", outcome))
	}
}

func (s *Service) fail(span trace.Span, done func(string), err error) error {
	done("error")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
