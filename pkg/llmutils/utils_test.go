package llmutils_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/pkg/llmutils"
)

func TestCleanJSON(t *testing.T) {
	tcases := []struct {
		in  string
		exp string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`Sure, here you go: {"a":1}`, `{"a":1}`},
		{`{"a":1} hope this helps!`, `{"a":1}`},
		{`Here: [1,2,3] done`, `[1,2,3]`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`no json here`, `no json here`},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.exp, string(llmutils.CleanJSON([]byte(tc.in))), "input: %s", tc.in)
	}
}

func TestTrimBackticks(t *testing.T) {
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks(`{"a":1}`))
}

func TestCountMessagesContentSize(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromToolResponse(llms.ToolCallResponse{
			ToolCallID: "id1",
			Name:       "echo",
			Content:    "output",
		}),
	}
	// role + text, role + id + name + content
	exp := uint64(len("human")+len("hello")) +
		uint64(len("tool")+len("id1")+len("echo")+len("output"))
	assert.Equal(t, exp, llmutils.CountMessagesContentSize(msgs))
}

func TestCountTokens(t *testing.T) {
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				GenerationInfo: map[string]any{
					"InputTokens":  int64(10),
					"OutputTokens": int64(5),
					"TotalTokens":  int64(15),
				},
			},
		},
	}
	in, out, total := llmutils.CountTokens(resp)
	assert.EqualValues(t, 10, in)
	assert.EqualValues(t, 5, out)
	assert.EqualValues(t, 15, total)
}

func TestFindLastUserQuestion(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "sys"),
		llms.MessageFromTextParts(llms.RoleHuman, "first"),
		llms.MessageFromTextParts(llms.RoleAI, "answer"),
		llms.MessageFromTextParts(llms.RoleHuman, "second"),
	}
	assert.Equal(t, "second", llmutils.FindLastUserQuestion(msgs))
	assert.Equal(t, "", llmutils.FindLastUserQuestion(nil))
}

func TestEnsureEndsWithNewline(t *testing.T) {
	assert.Equal(t, "abc\n", llmutils.EnsureEndsWithNewline("abc"))
	assert.Equal(t, "abc\n", llmutils.EnsureEndsWithNewline("  abc\n\n  "))
	assert.Equal(t, "", llmutils.EnsureEndsWithNewline("   "))
}

func TestPrintMessages(t *testing.T) {
	var buf bytes.Buffer
	llmutils.PrintMessages(&buf, []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
		llms.MessageFromToolCalls(llms.ToolCall{
			ID:           "id1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "echo", Arguments: "{}"},
		}),
	})
	out := buf.String()
	assert.Contains(t, out, "HUMAN: hello")
	assert.Contains(t, out, "ToolCall ID=id1")
}
