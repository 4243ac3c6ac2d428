// Package gemini wraps the google.golang.org/genai SDK behind a small text
// generation interface. The background Thinker is the only Gemini consumer;
// it needs long-form single-shot generation with a system instruction.
package gemini

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-pro"

// Client defines the Gemini operations used by the engine.
type Client interface {
	GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is our own request type for GenerateText.
type GenerateRequest struct {
	Model           string
	System          string
	Prompt          string
	Temperature     *float32
	MaxOutputTokens int32
}

// GenerateResponse is our own response type from GenerateText.
type GenerateResponse struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage reports token consumption for one generation.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		c.model = model
	}
}

// WithUsageFunc registers a callback invoked with the model and token usage
// of every successful generation. It must be safe for concurrent use.
func WithUsageFunc(fn func(model string, usage TokenUsage)) Option {
	return func(c *sdkClient) {
		c.usageFn = fn
	}
}

type sdkClient struct {
	client  *genai.Client
	model   string
	usageFn func(model string, usage TokenUsage)
}

// NewClient creates a Gemini client backed by the genai SDK.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	c := &sdkClient{
		client: client,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *sdkClient) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	text := resp.Text()
	if text == "" {
		return nil, eris.New("gemini: empty response")
	}

	var usage TokenUsage
	if resp.UsageMetadata != nil {
		usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		}
	}
	if c.usageFn != nil {
		c.usageFn(model, usage)
	}

	return &GenerateResponse{Text: text, Usage: usage}, nil
}
