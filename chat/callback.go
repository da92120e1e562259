package chat

import (
	"context"

	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/tools"
)

//go:generate mockgen -source=callback.go -destination=../mocks/mockchat/chat_mock.gen.go -package mockchat

// Callback receives session lifecycle notifications.
type Callback interface {
	tools.Callback

	OnChatStart(ctx context.Context, input string)
	OnChatEnd(ctx context.Context, input string, resp *llms.ContentResponse, messages []llms.Message)
	OnChatError(ctx context.Context, input string, err error, messages []llms.Message)

	OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse)

	OnToolNotFound(ctx context.Context, name string)
}
