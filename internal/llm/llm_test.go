package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/schmogen/protocol-converter-mvp/internal/config"
)

// scripted fails with errs in order, then answers with reply.
type scripted struct {
	mu    sync.Mutex
	errs  []error
	reply string
	calls int
	parts []llms.ContentPart
}

func (s *scripted) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.parts = msgs[0].Parts
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "  " + s.reply + "\n"}}}, nil
}

func testClient(text, vision Generator, retries int) (*Client, *[]time.Duration) {
	c := NewWithModels(text, vision, config.LLM{MaxRetries: retries, RetryBaseDelay: time.Second, MaxInputChars: 50})
	var waits []time.Duration
	c.retry.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestRetryBacksOffAndSucceeds(t *testing.T) {
	boom := errors.New("503 service unavailable")
	model := &scripted{errs: []error{boom, boom}, reply: "## Protocol"}
	c, waits := testClient(model, model, 5)

	out, err := c.Rewrite(context.Background(), "contract", "text")
	require.NoError(t, err)
	assert.Equal(t, "## Protocol", out)
	assert.Equal(t, 3, model.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestRetryExhausted(t *testing.T) {
	boom := errors.New("rate limited")
	model := &scripted{errs: []error{boom, boom, boom, boom}}
	c, waits := testClient(model, model, 3)

	_, err := c.Flag(context.Background(), "src", "protocol")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "flag", exhausted.Op)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, model.calls)
	assert.Len(t, *waits, 2)
}

func TestRetryStopsOnContextError(t *testing.T) {
	model := &scripted{errs: []error{context.DeadlineExceeded, errors.New("never reached")}}
	c, waits := testClient(model, model, 5)
	_, err := c.Rewrite(context.Background(), "", "text")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, model.calls)
	assert.Empty(t, *waits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model = &scripted{errs: []error{errors.New("transport closed")}}
	c, _ = testClient(model, model, 5)
	_, err = c.Rewrite(ctx, "", "text")
	assert.ErrorIs(t, err, context.Canceled)
	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestEmptyResponseIsRetried(t *testing.T) {
	c, _ := testClient(&emptyModel{}, nil, 2)
	_, err := c.Rewrite(context.Background(), "", "x")
	assert.ErrorIs(t, err, errEmptyResponse)
}

type emptyModel struct{}

func (emptyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func TestExtractTablesSendsImage(t *testing.T) {
	text := &scripted{}
	vision := &scripted{reply: "| A | B |\n| --- | --- |\n| 1 | 2 |"}
	c, _ := testClient(text, vision, 1)

	out, err := c.ExtractTables(context.Background(), []byte{0xFF, 0xD8})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "| A | B |"))
	assert.Zero(t, text.calls)
	require.Len(t, vision.parts, 2)
	img, ok := vision.parts[0].(llms.ImageURLContent)
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", img.URL)
	assert.Equal(t, llms.TextContent{Text: visionPrompt}, vision.parts[1])
}

func TestRewritePrompt(t *testing.T) {
	model := &scripted{reply: "ok"}
	c, _ := testClient(model, model, 1)
	long := strings.Repeat("é", 80)
	_, err := c.Rewrite(context.Background(), "  Use SI units.  ", long)
	require.NoError(t, err)

	prompt := model.parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "--- CONTRACT ---\nUse SI units.\n")
	assert.Contains(t, prompt, "TABLE_PLACEHOLDER_N exactly as written")
	assert.Contains(t, prompt, strings.Repeat("é", 50)+"\n\n[TRUNCATED: input exceeded MAX_INPUT_CHARS]\n")
	assert.NotContains(t, prompt, strings.Repeat("é", 51))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"abcdefghijk", 10, "abcdefghij[cut]"},
		{"µµµ", 2, "µµ[cut]"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.limit, "[cut]"), tt.in)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
