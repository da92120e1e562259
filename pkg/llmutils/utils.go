// Package llmutils holds small helpers for working with model output
// and chat transcripts.
package llmutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/x/values"

	"github.com/codriver-ai/codriver/pkg/llms"
)

// CleanJSON extracts the JSON value from model output that wraps it in
// prose or code fences, e.g. "Sure, here you go: {...}". Input without
// a JSON object or array is returned unchanged.
func CleanJSON(bs []byte) []byte {
	start := indexFirst(bs, '{', '[')
	if start == -1 {
		return bs
	}
	end := indexLast(bs, '}', ']')
	if end == -1 {
		return bs
	}
	return bs[start : end+1]
}

func indexFirst(bs []byte, a, b byte) int {
	ia := bytes.IndexByte(bs, a)
	ib := bytes.IndexByte(bs, b)
	switch {
	case ia == -1:
		return ib
	case ib == -1:
		return ia
	default:
		return min(ia, ib)
	}
}

func indexLast(bs []byte, a, b byte) int {
	return max(bytes.LastIndexByte(bs, a), bytes.LastIndexByte(bs, b))
}

// TrimBackticks strips a surrounding ``` or ```json code fence.
func TrimBackticks(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return text
	}
	s = s[3:]
	// drop the language tag on the opening fence line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// ToJSON marshals the value, ignoring errors. Meant for values known
// to be marshalable, like tool results.
func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

// PrintMessages writes a human-readable transcript dump, one line per
// message part.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, m := range msgs {
		fmt.Fprintf(w, "%s: ", strings.ToUpper(string(m.Role)))
		for _, part := range m.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				fmt.Fprintln(w, p.Text)
			case llms.ToolCall:
				fmt.Fprintf(w, "ToolCall ID=%s, Type=%s, Func=%s(%s)\n", p.ID, p.Type, p.FunctionCall.Name, p.FunctionCall.Arguments)
			case llms.ToolCallResponse:
				fmt.Fprintf(w, "ToolCallResponse ID=%s, Name=%s, Content=%s\n", p.ToolCallID, p.Name, p.Content)
			}
		}
	}
}

// CountMessagesContentSize returns the byte size of the transcript:
// roles plus every text, tool call and tool response part.
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, m := range msgs {
		size += uint64(len(m.Role))
		for _, part := range m.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				size += uint64(len(p.Text))
			case llms.ToolCall:
				size += uint64(len(p.ID) + len(p.Type))
				if p.FunctionCall != nil {
					size += uint64(len(p.FunctionCall.Name) + len(p.FunctionCall.Arguments))
				}
			case llms.ToolCallResponse:
				size += uint64(len(p.ToolCallID) + len(p.Name) + len(p.Content))
			}
		}
	}
	return size
}

// CountTokens sums the token usage reported in the response
// GenerationInfo across all choices.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	for _, choice := range resp.Choices {
		info := values.MapAny(choice.GenerationInfo)
		in += info.Int64("InputTokens")
		out += info.Int64("OutputTokens")
		total += info.Int64("TotalTokens")
	}
	return
}

// FindLastUserQuestion returns the text of the most recent human
// message, or an empty string.
func FindLastUserQuestion(messages []llms.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.RoleHuman {
			continue
		}
		for _, part := range messages[i].Parts {
			if p, ok := part.(llms.TextContent); ok {
				return p.Text
			}
		}
	}
	return ""
}

// EnsureEndsWithNewline trims surrounding whitespace and appends a
// trailing newline to non-empty text.
func EnsureEndsWithNewline(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return s + "\n"
}
