package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/managerd/internal/intent"
	"github.com/fyrsmithlabs/managerd/internal/telemetry"
)

type mockProvider struct {
	mock.Mock
	credential bool
}

func (m *mockProvider) Name() string        { return "mock" }
func (m *mockProvider) HasCredential() bool { return m.credential }

func (m *mockProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Search(ctx context.Context, query string) (SearchResult, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(SearchResult), args.Error(1)
}

func (m *mockProvider) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error) {
	args := m.Called(ctx, prompt, opts)
	return args.Get(0).(Image), args.Error(1)
}

func (m *mockProvider) EditImage(ctx context.Context, img Image, prompt string) (Image, error) {
	args := m.Called(ctx, img, prompt)
	return args.Get(0).(Image), args.Error(1)
}

func (m *mockProvider) Transcribe(ctx context.Context, audio Audio) (string, error) {
	args := m.Called(ctx, audio)
	return args.String(0), args.Error(1)
}

func newTestService(t *testing.T, p Provider) (*Service, *telemetry.TestTelemetry) {
	t.Helper()
	tel := telemetry.NewTestTelemetry()
	clock := func() time.Time { return time.Date(2025, 12, 17, 9, 0, 0, 0, time.UTC) }
	s, err := NewService(p, nil,
		WithTracer(tel.Tracer(instrumentationName)),
		WithClock(clock),
		WithLocation(time.UTC),
		WithAgencyName("Nikto IT"),
	)
	require.NoError(t, err)
	return s, tel
}

func TestNewService_RequiresProvider(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}

func TestClassify_Success(t *testing.T) {
	p := &mockProvider{credential: true}
	p.On("Complete", mock.Anything, mock.MatchedBy(func(system string) bool {
		return strings.Contains(system, "Current Date: 2025-12-17.") && strings.Contains(system, "Nikto IT")
	}), "Add expense $50 for hosting").Return(
		`{"IsTask":false,"TaskName":"Recorded transaction: Hosting - $50",
		  "TransactionData":{"amount":50,"type":"expense","category":"Software/Tools","description":"Hosting"}}`, nil)

	s, tel := newTestService(t, p)
	r := s.Classify(context.Background(), "Add expense $50 for hosting")

	assert.Equal(t, intent.KindTransaction, intent.Classify(r))
	require.NotNil(t, r.TransactionData)
	assert.Equal(t, 50.0, r.TransactionData.Amount)
	p.AssertExpectations(t)

	tel.AssertSpanExists(t, "gateway.classify")
	tel.AssertSpanAttribute(t, "gateway.classify", "intent.kind", "transaction")
	tel.AssertSpanAttribute(t, "gateway.classify", "gateway.outcome", "ok")
}

func TestClassify_DegradesOnEveryFailure(t *testing.T) {
	tests := []struct {
		name       string
		credential bool
		raw        string
		err        error
		wantInName string
	}{
		{"missing credential", false, "", nil, "API Key is missing"},
		{"transport failure", true, "", &TransportError{Op: "classify", StatusCode: 503, Err: errors.New("overloaded")}, "provider returned 503"},
		{"non-JSON output", true, "I cannot help with that", nil, "malformed provider response"},
		{"JSON without TaskName", true, `{"IsTask": true}`, nil, "malformed provider response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{credential: tt.credential}
			if tt.credential {
				p.On("Complete", mock.Anything, mock.Anything, "hello").Return(tt.raw, tt.err)
			}
			s, tel := newTestService(t, p)

			r := s.Classify(context.Background(), "hello")
			assert.False(t, r.IsTask)
			assert.True(t, strings.HasPrefix(r.TaskName, "Error: "), r.TaskName)
			assert.Contains(t, r.TaskName, tt.wantInName)
			assert.NotEmpty(t, r.Description)
			assert.Equal(t, intent.KindAnswer, intent.Classify(r))
			tel.AssertSpanAttribute(t, "gateway.classify", "gateway.outcome", "degraded")
		})
	}
}

func TestSearch_PropagatesErrors(t *testing.T) {
	p := &mockProvider{credential: true}
	p.On("Search", mock.Anything, "USD to BDT").Return(SearchResult{}, &TransportError{Op: "search", StatusCode: 500, Err: errors.New("boom")})
	s, _ := newTestService(t, p)

	_, err := s.Search(context.Background(), "USD to BDT")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 500, te.StatusCode)

	_, err = s.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	noKey, _ := newTestService(t, &mockProvider{})
	_, err = noKey.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestSearch_EmptyAnswer(t *testing.T) {
	p := &mockProvider{credential: true}
	p.On("Search", mock.Anything, "q").Return(SearchResult{Sources: []Source{{URI: "https://example.com"}}}, nil)
	s, _ := newTestService(t, p)

	res, err := s.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "No results found.", res.Text)
	assert.Len(t, res.Sources, 1)
}

func TestGenerateImage_ValidatesAndDefaults(t *testing.T) {
	p := &mockProvider{credential: true}
	p.On("GenerateImage", mock.Anything, "a logo", ImageOptions{AspectRatio: Aspect1x1, Size: Size1K}).
		Return(NewImage("aGVsbG8="), nil)
	s, _ := newTestService(t, p)

	img, err := s.GenerateImage(context.Background(), "a logo", ImageOptions{})
	require.NoError(t, err)
	assert.Equal(t, Image("data:image/png;base64,aGVsbG8="), img)

	_, err = s.GenerateImage(context.Background(), "a logo", ImageOptions{AspectRatio: "2:1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.GenerateImage(context.Background(), "a logo", ImageOptions{Size: "8K"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	p.AssertNumberOfCalls(t, "GenerateImage", 1)
}

func TestEditImage(t *testing.T) {
	p := &mockProvider{credential: true}
	p.On("EditImage", mock.Anything, Image("data:image/jpeg;base64,aGVsbG8="), "make it blue").
		Return(Image(""), ErrNoImage)
	s, _ := newTestService(t, p)

	_, err := s.EditImage(context.Background(), Image("data:image/jpeg;base64,aGVsbG8="), "make it blue")
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = s.EditImage(context.Background(), Image("not base64!"), "make it blue")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTranscribe_DegradesToFixedString(t *testing.T) {
	p := &mockProvider{credential: true}
	p.On("Transcribe", mock.Anything, mock.Anything).Return("", errors.New("codec")).Once()
	p.On("Transcribe", mock.Anything, mock.Anything).Return("  hello there \n", nil).Once()
	s, _ := newTestService(t, p)

	audio := Audio{Data: []byte("abc"), Format: "webm"}
	assert.Equal(t, TranscriptionFailed, s.Transcribe(context.Background(), audio))
	assert.Equal(t, "hello there", s.Transcribe(context.Background(), audio))
	assert.Equal(t, TranscriptionFailed, s.Transcribe(context.Background(), Audio{}))
}

func TestImageAndAudioParsing(t *testing.T) {
	assert.Equal(t, "aGVsbG8=", Image("data:image/webp;base64,aGVsbG8=").Base64())
	assert.Equal(t, "aGVsbG8=", Image("aGVsbG8=").Base64())

	data, err := Image("data:image/png;base64,aGVsbG8=").Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	audio, err := ParseAudio("data:audio/webm;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "webm", audio.Format)
	assert.Equal(t, "hello", string(audio.Data))

	audio, err = ParseAudio("data:audio/mpeg;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "mp3", audio.Format)

	_, err = ParseAudio("")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Op: "search", Err: cause}
	assert.Equal(t, "search: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	err = &TransportError{Op: "search", StatusCode: 429, Err: errors.New("slow down")}
	assert.Equal(t, "search: provider returned 429: slow down", err.Error())
}
