// Package callbacks provides chat.Callback implementations: console
// printers, a package logger bridge, and a fanout combinator.
package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/xlog"

	"github.com/codriver-ai/codriver/chat"
	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/tools"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ chat.Callback  = (*Noop)(nil)
	_ tools.Callback = (*Noop)(nil)
	_ chat.Callback  = (*Printer)(nil)
	_ tools.Callback = (*Printer)(nil)
	_ chat.Callback  = (*PackageLogger)(nil)
	_ tools.Callback = (*PackageLogger)(nil)
	_ chat.Callback  = (*Fanout)(nil)
	_ tools.Callback = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []chat.Callback
}

func NewFanout(callbacks ...chat.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback chat.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnChatStart(ctx context.Context, input string) {
	for _, callback := range l.callbacks {
		callback.OnChatStart(ctx, input)
	}
}

func (l *Fanout) OnChatEnd(ctx context.Context, input string, resp *llms.ContentResponse, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnChatEnd(ctx, input, resp, messages)
	}
}

func (l *Fanout) OnChatError(ctx context.Context, input string, err error, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnChatError(ctx, input, err, messages)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, llm, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, llm, resp)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, input, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, name string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, name)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnChatStart(ctx context.Context, input string) {}
func (l *Noop) OnChatEnd(ctx context.Context, input string, resp *llms.ContentResponse, messages []llms.Message) {
}
func (l *Noop) OnChatError(ctx context.Context, input string, err error, messages []llms.Message) {}
func (l *Noop) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message)        {}
func (l *Noop) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse)      {}
func (l *Noop) OnToolStart(ctx context.Context, tool tools.ITool, input string)                   {}
func (l *Noop) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string)      {}
func (l *Noop) OnToolError(ctx context.Context, tool tools.ITool, input string, err error)        {}
func (l *Noop) OnToolNotFound(ctx context.Context, name string)                                   {}

// ANSI colors for tool activity lines, chosen by the tool's
// permissions: reads are green, writes yellow, execution red,
// network cyan.
const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
)

func toolColor(tool tools.ITool) string {
	perms := tool.Permissions()
	switch {
	case perms.Has(tools.PermissionExecute):
		return colorRed
	case perms.Has(tools.PermissionWrite):
		return colorYellow
	case perms.Has(tools.PermissionNetwork):
		return colorCyan
	default:
		return colorGreen
	}
}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out   io.Writer
	Mode  Mode
	Color bool

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

// WithColor enables ANSI colors on tool activity lines.
func (l *Printer) WithColor(enabled bool) *Printer {
	l.Color = enabled
	return l
}

func (l *Printer) OnChatStart(ctx context.Context, input string) {
	if l.Mode == ModeVerbose {
		l.lock.Lock()
		defer l.lock.Unlock()
		fmt.Fprintf(l.Out, "Chat Start: %s\n", input)
	}
}

func (l *Printer) OnChatEnd(ctx context.Context, input string, resp *llms.ContentResponse, messages []llms.Message) {
	if l.Mode == ModeVerbose {
		l.lock.Lock()
		defer l.lock.Unlock()
		fmt.Fprintf(l.Out, "Chat End: %d messages\n", len(messages))
	}
}

func (l *Printer) OnChatError(ctx context.Context, input string, err error, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat Error: %s\n", err.Error())
}

func (l *Printer) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	if l.Mode == ModeVerbose {
		l.lock.Lock()
		defer l.lock.Unlock()
		fmt.Fprintf(l.Out, "LLM Call: %s model, %d messages\n", llm.GetName(), len(payload))
	}
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	if l.Mode == ModeVerbose {
		l.lock.Lock()
		defer l.lock.Unlock()
		fmt.Fprintf(l.Out, "LLM Call End: %s model, %d choices\n", llm.GetName(), len(resp.Choices))
	}
}

func (l *Printer) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Color {
		fmt.Fprintf(l.Out, "%s-> %s %s%s\n", toolColor(tool), tool.Name(), input, colorReset)
	} else {
		fmt.Fprintf(l.Out, "-> %s %s\n", tool.Name(), input)
	}
}

func (l *Printer) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	if l.Mode == ModeVerbose {
		l.lock.Lock()
		defer l.lock.Unlock()
		fmt.Fprintf(l.Out, "<- %s: %s\n", tool.Name(), output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.Color {
		fmt.Fprintf(l.Out, "%s<- %s failed: %s%s\n", colorRed, tool.Name(), err.Error(), colorReset)
	} else {
		fmt.Fprintf(l.Out, "<- %s failed: %s\n", tool.Name(), err.Error())
	}
}

func (l *Printer) OnToolNotFound(ctx context.Context, name string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", name)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnChatStart(ctx context.Context, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_start",
		"input", input,
	)
}

func (l *PackageLogger) OnChatEnd(ctx context.Context, input string, resp *llms.ContentResponse, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_end",
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnChatError(ctx context.Context, input string, err error, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "chat_error",
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"model", llm.GetName(),
		"choices", len(resp.Choices),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool.Name(),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, name string) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"tool", name,
	)
}
