package anthropic

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/codriver-ai/codriver/pkg/llms"
)

func TestNew(t *testing.T) {
	t.Setenv(TokenEnvVarName, "")

	_, err := New(WithModel("claude-sonnet-4-20250514"))
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = New(WithToken("test-token"))
	assert.EqualError(t, err, "anthropic: model is required")

	llm, err := New(WithToken("test-token"), WithModel("claude-sonnet-4-20250514"))
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", llm.GetName())
	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
	assert.True(t, llm.GetProviderType().Supports(llms.CapabilityFunctionCalling))
}

func TestNew_TokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnvVarName, "env-token")

	llm, err := New(WithModel("claude-sonnet-4-20250514"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", llm.Options.Token)
}

func TestToTools(t *testing.T) {
	assert.Nil(t, ToTools(nil))

	props := orderedmap.New[string, *jsonschema.Schema]()
	props.Set("path", &jsonschema.Schema{Type: "string", Description: "file path"})
	props.Set("max_lines", &jsonschema.Schema{Type: "integer"})

	tools := ToTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "read_file",
				Description: "Read a file",
				Parameters: &jsonschema.Schema{
					Type:       "object",
					Properties: props,
					Required:   []string{"path"},
				},
			},
		},
	})
	require.Len(t, tools, 1)

	tool := tools[0].OfTool
	require.NotNil(t, tool)
	assert.Equal(t, "read_file", tool.Name)
	assert.Equal(t, "Read a file", tool.Description.Value)
	assert.Equal(t, "object", string(tool.InputSchema.Type))
	assert.Equal(t, []string{"path"}, tool.InputSchema.Required)
	require.Len(t, tool.InputSchema.Properties, 2)
	assert.Contains(t, tool.InputSchema.Properties, "path")
	assert.Contains(t, tool.InputSchema.Properties, "max_lines")
}

func TestProcessMessages(t *testing.T) {
	messages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a coding assistant."),
		llms.MessageFromTextParts(llms.RoleHuman, "list the files"),
		llms.MessageFromToolCalls(llms.ToolCall{
			ID:   "toolu_01",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "list_files",
				Arguments: `{"directory":"."}`,
			},
		}),
		llms.MessageFromToolResponse(llms.ToolCallResponse{
			ToolCallID: "toolu_01",
			Name:       "list_files",
			Content:    `{"success":true}`,
		}),
		llms.MessageFromTextParts(llms.RoleAI, "Done."),
	}

	chatMessages, systemPrompt, err := ProcessMessages(messages)
	require.NoError(t, err)
	assert.Equal(t, "You are a coding assistant.", systemPrompt)
	require.Len(t, chatMessages, 4)

	assert.Equal(t, "user", string(chatMessages[0].Role))
	assert.Equal(t, "assistant", string(chatMessages[1].Role))
	// Tool results are sent back as user messages.
	assert.Equal(t, "user", string(chatMessages[2].Role))
	assert.Equal(t, "assistant", string(chatMessages[3].Role))
}

func TestProcessMessages_MultipleSystem(t *testing.T) {
	messages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "First."),
		llms.MessageFromTextParts(llms.RoleSystem, "Second."),
		llms.MessageFromTextParts(llms.RoleHuman, "hi"),
	}

	chatMessages, systemPrompt, err := ProcessMessages(messages)
	require.NoError(t, err)
	assert.Equal(t, "First.\nSecond.", systemPrompt)
	assert.Len(t, chatMessages, 1)
}

func TestProcessMessages_BadToolCallArguments(t *testing.T) {
	messages := []llms.Message{
		llms.MessageFromToolCalls(llms.ToolCall{
			ID:   "toolu_01",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "list_files",
				Arguments: `{not json`,
			},
		}),
	}

	_, _, err := ProcessMessages(messages)
	require.Error(t, err)
}
