// Package store persists chat transcripts keyed by the chat ID in context.
package store

import (
	"context"

	"github.com/codriver-ai/codriver/pkg/llms"
)

// MessageStore keeps the transcript of a chat. The chat ID is taken
// from the chatmodel.Chat carried in the request context.
type MessageStore interface {
	Messages(ctx context.Context) []llms.Message
	Add(ctx context.Context, msg llms.Message) error
	Reset(ctx context.Context) error
}

// MessageModel is the serializable form of llms.Message.
type MessageModel struct {
	Role         llms.Role              `json:"role"`
	Content      string                 `json:"content,omitempty"`
	ToolCalls    []llms.ToolCall        `json:"tool_calls,omitempty"`
	ToolResponse *llms.ToolCallResponse `json:"tool_response,omitempty"`
}

// ToModel converts a message to its serializable form.
func ToModel(msg llms.Message) MessageModel {
	m := MessageModel{
		Role:    msg.Role,
		Content: msg.GetContent(),
	}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.ToolCall:
			m.ToolCalls = append(m.ToolCalls, p)
		case llms.ToolCallResponse:
			resp := p
			m.ToolResponse = &resp
		}
	}
	return m
}

// FromModel converts a serialized message back to llms.Message.
func FromModel(m MessageModel) llms.Message {
	msg := llms.Message{Role: m.Role}
	if m.Content != "" {
		msg.Parts = append(msg.Parts, llms.TextPart(m.Content))
	}
	for _, tc := range m.ToolCalls {
		msg.Parts = append(msg.Parts, tc)
	}
	if m.ToolResponse != nil {
		msg.Parts = append(msg.Parts, *m.ToolResponse)
	}
	return msg
}
