package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/jackpot-predict/pkg/anthropic"
	"github.com/sells-group/jackpot-predict/pkg/gemini"
	"github.com/sells-group/jackpot-predict/pkg/openaichat"
)

// mockChatClient implements openaichat.Client for testing.
type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) ChatCompletion(ctx context.Context, req openaichat.ChatCompletionRequest) (*openaichat.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openaichat.ChatCompletionResponse), args.Error(1)
}

// mockAnthropicClient implements anthropic.Client for testing.
type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// mockGeminiClient implements gemini.Client for testing.
type mockGeminiClient struct {
	mock.Mock
}

func (m *mockGeminiClient) GenerateText(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.GenerateResponse), args.Error(1)
}

// Interface compliance.
var (
	_ openaichat.Client = (*mockChatClient)(nil)
	_ anthropic.Client  = (*mockAnthropicClient)(nil)
	_ gemini.Client     = (*mockGeminiClient)(nil)
)

func chatResponse(content string) *openaichat.ChatCompletionResponse {
	return &openaichat.ChatCompletionResponse{
		ID: "chatcmpl-test",
		Choices: []openaichat.Choice{
			{Message: openaichat.Message{Role: "assistant", Content: content}},
		},
	}
}

func anthropicResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}
