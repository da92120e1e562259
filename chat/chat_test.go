package chat_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/codriver-ai/codriver/chat"
	"github.com/codriver-ai/codriver/chatmodel"
	"github.com/codriver-ai/codriver/mocks/mockllms"
	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/store"
	"github.com/codriver-ai/codriver/tools"
)

const systemPrompt = "You are a coding assistant."

type echoTool struct {
	name string
	err  error
}

func (t *echoTool) Name() string                   { return t.name }
func (t *echoTool) Description() string            { return "echoes its input" }
func (t *echoTool) Permissions() tools.Permissions { return "r" }
func (t *echoTool) Parameters() *jsonschema.Schema { return nil }
func (t *echoTool) Call(_ context.Context, input string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return `{"success":true,"echo":` + input + `}`, nil
}

func newMockLLM(t *testing.T) *mockllms.MockModel {
	ctrl := gomock.NewController(t)
	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("test-model").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderAnthropic).AnyTimes()
	return mockLLM
}

func newRegistry(t *testing.T, its ...tools.ITool) *tools.Registry {
	reg := tools.NewRegistry()
	for _, it := range its {
		require.NoError(t, reg.Register(it))
	}
	return reg
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}},
	}
}

func toolCallResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{StopReason: "tool_calls", ToolCalls: calls}},
	}
}

func TestAsk_FinalAnswer(t *testing.T) {
	mockLLM := newMockLLM(t)
	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse("The answer is 42."), nil)

	sess := chat.NewSession(mockLLM, newRegistry(t), chat.WithSystemPrompt(systemPrompt))
	res, err := sess.Ask(t.Context(), "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", res.Content)
	assert.Equal(t, 1, res.Turns)
	assert.Equal(t, 0, res.ToolCalls)

	history := sess.History()
	require.Len(t, history, 3)
	assert.Equal(t, llms.RoleSystem, history[0].Role)
	assert.Equal(t, llms.RoleHuman, history[1].Role)
	assert.Equal(t, llms.RoleAI, history[2].Role)
}

func TestAsk_ToolCalls(t *testing.T) {
	mockLLM := newMockLLM(t)

	first := mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(
			llms.ToolCall{
				ID:           "call_1",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: `{"a":1}`},
			},
			llms.ToolCall{
				ID:           "call_2",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: `{"b":2}`},
			},
		), nil)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		After(first).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// system, human, assistant tool calls, two tool responses
			require.Len(t, messages, 5)
			assert.Equal(t, llms.RoleAI, messages[2].Role)
			require.Len(t, messages[2].GetToolCalls(), 2)

			for i, id := range []string{"call_1", "call_2"} {
				msg := messages[3+i]
				assert.Equal(t, llms.RoleTool, msg.Role)
				resp, ok := msg.Parts[0].(llms.ToolCallResponse)
				require.True(t, ok)
				assert.Equal(t, id, resp.ToolCallID)
				assert.Equal(t, "echo", resp.Name)
				assert.Contains(t, resp.Content, `"success":true`)
			}
			return textResponse("done"), nil
		})

	sess := chat.NewSession(mockLLM, newRegistry(t, &echoTool{name: "echo"}),
		chat.WithSystemPrompt(systemPrompt))
	res, err := sess.Ask(t.Context(), "run it twice")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Content)
	assert.Equal(t, 2, res.Turns)
	assert.Equal(t, 2, res.ToolCalls)
}

func TestAsk_ToolNotFound(t *testing.T) {
	mockLLM := newMockLLM(t)

	first := mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "no_such_tool", Arguments: `{}`},
		}), nil)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		After(first).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			resp, ok := messages[len(messages)-1].Parts[0].(llms.ToolCallResponse)
			require.True(t, ok)

			var failure struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(resp.Content), &failure))
			assert.False(t, failure.Success)
			assert.Contains(t, failure.Error, `tool "no_such_tool" not found`)
			assert.Contains(t, failure.Error, "echo")
			return textResponse("recovered"), nil
		})

	sess := chat.NewSession(mockLLM, newRegistry(t, &echoTool{name: "echo"}),
		chat.WithSystemPrompt(systemPrompt))
	res, err := sess.Ask(t.Context(), "use the wrong tool")
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Content)
}

func TestAsk_ToolError(t *testing.T) {
	mockLLM := newMockLLM(t)

	first := mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "broken", Arguments: `{}`},
		}), nil)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		After(first).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			resp := messages[len(messages)-1].Parts[0].(llms.ToolCallResponse)

			var failure struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(resp.Content), &failure))
			assert.False(t, failure.Success)
			assert.Contains(t, failure.Error, "disk on fire")
			return textResponse("noted"), nil
		})

	broken := &echoTool{name: "broken", err: errors.New("disk on fire")}
	sess := chat.NewSession(mockLLM, newRegistry(t, broken), chat.WithSystemPrompt(systemPrompt))
	res, err := sess.Ask(t.Context(), "try anyway")
	require.NoError(t, err)
	assert.Equal(t, "noted", res.Content)
}

func TestAsk_ToolCallKeepsAssistantText(t *testing.T) {
	mockLLM := newMockLLM(t)

	first := mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{
			Choices: []*llms.ContentChoice{{
				Content:    "Let me check the file first.",
				StopReason: "tool_calls",
				ToolCalls: []llms.ToolCall{{
					ID:           "call_1",
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: `{}`},
				}},
			}},
		}, nil)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		After(first).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// system, human, assistant with text + call, tool response
			require.Len(t, messages, 4)
			ai := messages[2]
			assert.Equal(t, llms.RoleAI, ai.Role)
			assert.Equal(t, "Let me check the file first.", ai.GetContent())
			require.Len(t, ai.GetToolCalls(), 1)
			return textResponse("done"), nil
		})

	sess := chat.NewSession(mockLLM, newRegistry(t, &echoTool{name: "echo"}),
		chat.WithSystemPrompt(systemPrompt))
	res, err := sess.Ask(t.Context(), "inspect it")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Content)
	assert.Equal(t, "Let me check the file first.", sess.History()[2].GetContent())
}

func TestAsk_ToolErrorDoesNotStopTurn(t *testing.T) {
	mockLLM := newMockLLM(t)

	first := mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(
			llms.ToolCall{
				ID:           "call_1",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "broken", Arguments: `{}`},
			},
			llms.ToolCall{
				ID:           "call_2",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: `{"x":1}`},
			},
		), nil)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		After(first).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// system, human, assistant, failure result, success result
			require.Len(t, messages, 5)

			failed, ok := messages[3].Parts[0].(llms.ToolCallResponse)
			require.True(t, ok)
			assert.Equal(t, "call_1", failed.ToolCallID)
			var failure struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(failed.Content), &failure))
			assert.False(t, failure.Success)
			assert.Contains(t, failure.Error, "disk on fire")

			succeeded, ok := messages[4].Parts[0].(llms.ToolCallResponse)
			require.True(t, ok)
			assert.Equal(t, "call_2", succeeded.ToolCallID)
			assert.Contains(t, succeeded.Content, `"success":true`)
			return textResponse("continued"), nil
		})

	reg := newRegistry(t,
		&echoTool{name: "broken", err: errors.New("disk on fire")},
		&echoTool{name: "echo"})
	sess := chat.NewSession(mockLLM, reg, chat.WithSystemPrompt(systemPrompt))
	res, err := sess.Ask(t.Context(), "run both")
	require.NoError(t, err)
	assert.Equal(t, "continued", res.Content)
	assert.Equal(t, 2, res.ToolCalls)
}

func TestAsk_TurnLimit(t *testing.T) {
	mockLLM := newMockLLM(t)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: `{}`},
		}), nil).
		Times(2)

	sess := chat.NewSession(mockLLM, newRegistry(t, &echoTool{name: "echo"}),
		chat.WithSystemPrompt(systemPrompt),
		chat.WithMaxTurns(2))
	_, err := sess.Ask(t.Context(), "never stops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turns count exceeded limit 2")
}

func TestAsk_ConsecutiveNotFound(t *testing.T) {
	mockLLM := newMockLLM(t)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:           "call_1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "ghost", Arguments: `{}`},
		}), nil).
		Times(4)

	sess := chat.NewSession(mockLLM, newRegistry(t, &echoTool{name: "echo"}),
		chat.WithSystemPrompt(systemPrompt))
	_, err := sess.Ask(t.Context(), "haunted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found tools")
}

func TestAsk_ToolCallsLimit(t *testing.T) {
	mockLLM := newMockLLM(t)

	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(
			llms.ToolCall{ID: "call_1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: `{}`}},
			llms.ToolCall{ID: "call_2", Type: "function", FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: `{}`}},
		), nil)

	sess := chat.NewSession(mockLLM, newRegistry(t, &echoTool{name: "echo"}),
		chat.WithSystemPrompt(systemPrompt),
		chat.WithMaxToolCalls(1))
	_, err := sess.Ask(t.Context(), "too many")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool calls limit is exceeded")
}

func TestAsk_LLMError(t *testing.T) {
	mockLLM := newMockLLM(t)
	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("rate limited"))

	sess := chat.NewSession(mockLLM, newRegistry(t), chat.WithSystemPrompt(systemPrompt))
	_, err := sess.Ask(t.Context(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate content from LLM")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAsk_EmptyResponseRetries(t *testing.T) {
	mockLLM := newMockLLM(t)
	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil).
		Times(chat.DefaultMaxRetries)

	sess := chat.NewSession(mockLLM, newRegistry(t), chat.WithSystemPrompt(systemPrompt))
	_, err := sess.Ask(t.Context(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestAsk_FunctionCallingRequired(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("legacy-model").AnyTimes()
	// an unknown provider supports no capabilities
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderType("LEGACY")).AnyTimes()

	sess := chat.NewSession(mockLLM, newRegistry(t, &echoTool{name: "echo"}))
	_, err := sess.Ask(t.Context(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support function calling")
}

func TestSession_Reset(t *testing.T) {
	mockLLM := newMockLLM(t)
	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(textResponse("hi"), nil).
		Times(2)

	memStore := store.NewMemoryStore()
	sess := chat.NewSession(mockLLM, newRegistry(t),
		chat.WithSystemPrompt(systemPrompt),
		chat.WithStore(memStore))

	ctx := t.Context()
	_, err := sess.Ask(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, sess.History(), 3)

	require.NoError(t, sess.Reset(ctx))
	assert.Empty(t, sess.History())

	// the next Ask starts from the system prompt again
	_, err = sess.Ask(ctx, "hello again")
	require.NoError(t, err)
	history := sess.History()
	require.Len(t, history, 3)
	assert.Equal(t, llms.RoleSystem, history[0].Role)
}

func TestSession_StoreHistoryReload(t *testing.T) {
	mockLLM := newMockLLM(t)
	mockLLM.EXPECT().
		GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			// prior transcript + the new question
			require.Len(t, messages, 4)
			return textResponse("continuing"), nil
		})

	chatCtx := chatmodel.NewContext(t.Context(), chatmodel.NewChat("chat-1", nil))
	memStore := store.NewMemoryStore()
	require.NoError(t, memStore.Add(chatCtx, llms.MessageFromTextParts(llms.RoleSystem, systemPrompt)))
	require.NoError(t, memStore.Add(chatCtx, llms.MessageFromTextParts(llms.RoleHuman, "earlier question")))
	require.NoError(t, memStore.Add(chatCtx, llms.MessageFromTextParts(llms.RoleAI, "earlier answer")))

	sess := chat.NewSession(mockLLM, newRegistry(t),
		chat.WithSystemPrompt(systemPrompt),
		chat.WithStore(memStore))

	res, err := sess.Ask(chatCtx, "and now?")
	require.NoError(t, err)
	assert.Equal(t, "continuing", res.Content)
}
