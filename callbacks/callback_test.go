package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"

	"github.com/codriver-ai/codriver/callbacks"
	"github.com/codriver-ai/codriver/tools"
)

type stubTool struct {
	name  string
	perms tools.Permissions
}

func (t *stubTool) Name() string                   { return t.name }
func (t *stubTool) Description() string            { return "stub" }
func (t *stubTool) Permissions() tools.Permissions { return t.perms }
func (t *stubTool) Parameters() *jsonschema.Schema { return nil }
func (t *stubTool) Call(_ context.Context, _ string) (string, error) {
	return "", nil
}

func TestPrinter_Default(t *testing.T) {
	var buf bytes.Buffer
	p := callbacks.NewPrinter(&buf, callbacks.ModeDefault)
	ctx := t.Context()

	tool := &stubTool{name: "read_file", perms: "r"}
	p.OnChatStart(ctx, "hello")
	p.OnToolStart(ctx, tool, `{"path":"a.go"}`)
	p.OnToolEnd(ctx, tool, `{"path":"a.go"}`, `{"success":true}`)
	p.OnToolError(ctx, tool, `{}`, errors.New("no such file"))
	p.OnToolNotFound(ctx, "ghost")

	out := buf.String()
	// chat and tool-end lines are verbose only
	assert.NotContains(t, out, "Chat Start")
	assert.NotContains(t, out, "<- read_file:")
	assert.Contains(t, out, "-> read_file {\"path\":\"a.go\"}\n")
	assert.Contains(t, out, "<- read_file failed: no such file\n")
	assert.Contains(t, out, "Tool Not Found: ghost\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrinter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	p := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)
	ctx := t.Context()

	tool := &stubTool{name: "read_file", perms: "r"}
	p.OnChatStart(ctx, "hello")
	p.OnToolEnd(ctx, tool, `{}`, `{"success":true}`)

	out := buf.String()
	assert.Contains(t, out, "Chat Start: hello\n")
	assert.Contains(t, out, "<- read_file: {\"success\":true}\n")
}

func TestPrinter_Colors(t *testing.T) {
	ctx := t.Context()

	tcases := []struct {
		perms tools.Permissions
		color string
	}{
		{"r", "\x1b[32m"},
		{"w", "\x1b[33m"},
		{"rx", "\x1b[31m"},
		{"n", "\x1b[36m"},
	}
	for _, tc := range tcases {
		var buf bytes.Buffer
		p := callbacks.NewPrinter(&buf, callbacks.ModeDefault).WithColor(true)
		p.OnToolStart(ctx, &stubTool{name: "t", perms: tc.perms}, "{}")
		assert.Contains(t, buf.String(), tc.color, "permissions %q", tc.perms)
	}
}

func TestFanout(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	f := callbacks.NewFanout(
		callbacks.NewPrinter(&buf1, callbacks.ModeDefault),
		callbacks.NewNoop(),
	)
	f.Add(callbacks.NewPrinter(&buf2, callbacks.ModeDefault))

	f.OnToolNotFound(t.Context(), "ghost")
	assert.Contains(t, buf1.String(), "ghost")
	assert.Contains(t, buf2.String(), "ghost")
}
