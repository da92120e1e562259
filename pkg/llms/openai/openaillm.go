// Package openai implements the llms.Model interface over the OpenAI
// chat completions API, including Azure OpenAI deployments and
// OpenAI-compatible endpoints such as Perplexity.
package openai

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/pkg/llms/openai/internal/openaiclient"
)

type ChatMessage = openaiclient.ChatMessage

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleTool      = "tool"
)

type LLM struct {
	client *openaiclient.Client

	provider llms.ProviderType
	model    string
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client:   c,
		provider: llms.ProviderType(o.provider),
		model:    o.model,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	if o.model != "" {
		return o.model
	}
	return openaiclient.DefaultChatModel
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := processMessages(messages)
	if err != nil {
		return nil, err
	}

	req := &openaiclient.ChatRequest{
		Model:               opts.Model,
		Messages:            chatMsgs,
		Temperature:         opts.Temperature,
		TopP:                opts.TopP,
		MaxCompletionTokens: opts.MaxTokens,
		Stop:                opts.StopSequences,
		Seed:                opts.Seed,
		ToolChoice:          opts.ToolChoice,
		Metadata:            opts.Metadata,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openaiclient.ResponseFormat{Type: "json_object"}
	}

	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, errors.Wrap(err, "openai: failed to convert tool definition")
		}
		req.Tools = append(req.Tools, t)
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"InputTokens":  result.Usage.PromptTokens,
				"OutputTokens": result.Usage.CompletionTokens,
				"TotalTokens":  result.Usage.TotalTokens,
				"ID":           result.ID,
			},
		}
		for _, tool := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tool.ID,
				Type: string(tool.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tool.Function.Name,
					Arguments: tool.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// processMessages converts messages to the chat completions wire
// format. AI messages carry tool calls in the tool_calls field; tool
// responses become separate tool-role messages correlated by
// tool_call_id.
func processMessages(messages []llms.Message) ([]*openaiclient.ChatMessage, error) {
	chatMsgs := make([]*openaiclient.ChatMessage, 0, len(messages))
	for _, mc := range messages {
		msg := &openaiclient.ChatMessage{}
		switch mc.Role {
		case llms.RoleSystem:
			msg.Role = RoleSystem
			msg.Content = mc.GetContent()
		case llms.RoleHuman:
			msg.Role = RoleUser
			msg.Content = mc.GetContent()
		case llms.RoleAI:
			msg.Role = RoleAssistant
			msg.Content = mc.GetContent()
			msg.ToolCalls = toolCallsFromToolCalls(mc.GetToolCalls())
		case llms.RoleTool:
			msg.Role = RoleTool
			if len(mc.Parts) != 1 {
				return nil, errors.Errorf("openai: expected exactly one part for role %v, got %v", mc.Role, len(mc.Parts))
			}
			p, ok := mc.Parts[0].(llms.ToolCallResponse)
			if !ok {
				return nil, errors.Errorf("openai: expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
			}
			msg.ToolCallID = p.ToolCallID
			msg.Name = p.Name
			msg.Content = p.Content
		default:
			return nil, errors.Errorf("openai: role %v not supported", mc.Role)
		}
		chatMsgs = append(chatMsgs, msg)
	}
	return chatMsgs, nil
}

// toolFromTool converts an llms.Tool to a Tool.
func toolFromTool(t llms.Tool) (openaiclient.Tool, error) {
	tool := openaiclient.Tool{
		Type: openaiclient.ToolType(t.Type),
	}
	switch t.Type {
	case string(openaiclient.ToolTypeFunction):
		tool.Function = openaiclient.FunctionDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
			Strict:      t.Function.Strict,
		}
	default:
		return openaiclient.Tool{}, errors.Errorf("openai: tool type %v not supported", t.Type)
	}
	return tool, nil
}

// toolCallsFromToolCalls converts a slice of llms.ToolCall to a slice of ToolCall.
func toolCallsFromToolCalls(tcs []llms.ToolCall) []openaiclient.ToolCall {
	if len(tcs) == 0 {
		return nil
	}
	toolCalls := make([]openaiclient.ToolCall, len(tcs))
	for i, tc := range tcs {
		toolCalls[i] = openaiclient.ToolCall{
			ID:   tc.ID,
			Type: openaiclient.ToolType(tc.Type),
			Function: openaiclient.ToolFunction{
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			},
		}
	}
	return toolCalls
}
