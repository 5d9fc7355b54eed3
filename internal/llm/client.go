package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/schmogen/protocol-converter-mvp/internal/config"
	"github.com/schmogen/protocol-converter-mvp/internal/logger"
)

var Logger = logger.GetLogger("llm")

var errEmptyResponse = errors.New("model returned no choices")

// Generator is the part of a langchaingo model the client calls.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Client talks to a text model for rewriting and flagging and to a vision model
// for table extraction. It is safe for concurrent use.
type Client struct {
	text     Generator
	vision   Generator
	retry    retryPolicy
	maxInput int
}

func New(cfg config.LLM) (*Client, error) {
	text, err := newOpenAI(cfg, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("create text model: %w", err)
	}
	vision, err := newOpenAI(cfg, cfg.VisionModel)
	if err != nil {
		return nil, fmt.Errorf("create vision model: %w", err)
	}
	return NewWithModels(text, vision, cfg), nil
}

// NewWithModels builds a client over already constructed models.
func NewWithModels(text, vision Generator, cfg config.LLM) *Client {
	return &Client{
		text:     text,
		vision:   vision,
		retry:    retryPolicy{attempts: cfg.MaxRetries, baseDelay: cfg.RetryBaseDelay},
		maxInput: cfg.MaxInputChars,
	}
}

func newOpenAI(cfg config.LLM, model string) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

// Rewrite turns cleaned extraction text into protocol markdown following ruleset.
func (c *Client) Rewrite(ctx context.Context, ruleset, cleaned string) (string, error) {
	prompt := rewritePrompt(ruleset, cleaned, c.maxInput)
	Logger.Debug("rewrite request", "prompt_chars", len(prompt))
	return c.retry.do(ctx, "rewrite", func(ctx context.Context) (string, error) {
		return generate(ctx, c.text, llms.TextPart(prompt))
	})
}

// ExtractTables asks the vision model for every table on a rendered page.
func (c *Client) ExtractTables(ctx context.Context, jpeg []byte) (string, error) {
	image := llms.ImageURLPart("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg))
	return c.retry.do(ctx, "vision", func(ctx context.Context) (string, error) {
		return generate(ctx, c.vision, image, llms.TextPart(visionPrompt))
	})
}

// Flag produces a QA report comparing the source text with the generated protocol.
func (c *Client) Flag(ctx context.Context, cleaned, protocol string) (string, error) {
	prompt := flagPrompt(cleaned, protocol)
	return c.retry.do(ctx, "flag", func(ctx context.Context) (string, error) {
		return generate(ctx, c.text, llms.TextPart(prompt))
	})
}

func generate(ctx context.Context, model Generator, parts ...llms.ContentPart) (string, error) {
	resp, err := model.GenerateContent(ctx, []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
