// Package chat runs tool-calling conversations against an LLM.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"

	"github.com/codriver-ai/codriver/chatmodel"
	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/pkg/llmutils"
	"github.com/codriver-ai/codriver/pkg/metricskey"
	"github.com/codriver-ai/codriver/tools"
)

var logger = xlog.NewPackageLogger("github.com/codriver-ai/codriver", "chat")

// Session is a tool-calling conversation with an LLM. It keeps the
// transcript between Ask calls: system prompt first, then alternating
// user, assistant and tool messages. Ask calls are serialized.
type Session struct {
	LLM llms.Model

	registry *tools.Registry
	cfg      *Config

	mu       sync.Mutex
	messages []llms.Message
}

// Result is the outcome of one Ask: the assistant's final text with
// counters for the turn.
type Result struct {
	Content   string
	Turns     int
	ToolCalls int
}

// toolFailure is the feedback handed back to the model when a tool
// call could not run.
type toolFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func failureContent(msg string) string {
	return llmutils.ToJSON(toolFailure{Success: false, Error: msg})
}

// NewSession creates a Session over the given model and tool registry.
func NewSession(llm llms.Model, registry *tools.Registry, options ...Option) *Session {
	return &Session{
		LLM:      llm,
		registry: registry,
		cfg:      NewConfig(options...),
	}
}

// GetCallConfig returns the per-call config with the options applied.
func (s *Session) GetCallConfig(opts ...Option) *Config {
	return s.cfg.Apply(opts...)
}

// History returns a copy of the transcript.
func (s *Session) History() []llms.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llms.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reset drops the transcript. The system prompt is re-added on the
// next Ask. The persisted transcript, if any, is removed too.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	if s.cfg.Store != nil {
		return s.cfg.Store.Reset(ctx)
	}
	return nil
}

// Ask sends the user input to the model and drives the conversation
// until the model produces a final text answer: tool calls requested
// by the model are executed sequentially, in the order the model
// issued them, and their results are fed back before the next model
// call.
func (s *Session) Ask(ctx context.Context, input string, options ...Option) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg.Apply(options...)

	if chatmodel.FromContext(ctx) == nil {
		ctx = chatmodel.NewContext(ctx, chatmodel.NewChat("", nil))
	}

	modelName := s.LLM.GetName()
	started := time.Now()
	defer metricskey.PerfChatTurn.MeasureSince(started, modelName)

	callback := cfg.CallbackHandler
	if callback != nil {
		callback.OnChatStart(ctx, input)
	}

	res, err := s.run(ctx, cfg, input)
	if err != nil {
		metricskey.StatsChatTurnsFailed.IncrCounter(1, modelName)
		if callback != nil {
			callback.OnChatError(ctx, input, err, s.messages)
		}
		return nil, err
	}
	metricskey.StatsChatTurnsSucceeded.IncrCounter(1, modelName)
	return res, nil
}

func (s *Session) run(ctx context.Context, cfg *Config, input string) (*Result, error) {
	modelName := s.LLM.GetName()
	callback := cfg.CallbackHandler

	if len(s.messages) == 0 {
		if cfg.Store != nil {
			prev := cfg.Store.Messages(ctx)
			logger.ContextKV(ctx, xlog.DEBUG,
				"chat_id", chatmodel.IDFromContext(ctx),
				"message_history", len(prev))
			s.messages = append(s.messages, prev...)
		}
		if len(s.messages) == 0 && cfg.SystemPrompt != "" {
			s.record(ctx, cfg, llms.MessageFromTextParts(llms.RoleSystem, cfg.SystemPrompt))
		}
	}
	s.record(ctx, cfg, llms.MessageFromTextParts(llms.RoleHuman, input))

	var callOpts []llms.CallOption
	if s.registry != nil && s.registry.Len() > 0 {
		if !s.LLM.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
			return nil, errors.Newf("model %s: the LLM does not support function calling", modelName)
		}
		callOpts = append(callOpts, llms.WithTools(s.registry.Definitions()))
	}
	callOpts = cfg.GetCallOptions(callOpts...)

	maxTurns := values.NumbersCoalesce(cfg.MaxTurns, DefaultMaxTurns)
	toolsLimit := values.NumbersCoalesce(cfg.MaxToolCalls, DefaultMaxToolCalls)
	messagesLimit := values.NumbersCoalesce(cfg.MaxMessages, DefaultMaxMessages)
	bytesLimit := values.NumbersCoalesce(cfg.MaxContentSize, DefaultMaxContentSize)

	var totalToolCalls int
	retryCount := 0
	consecutiveNotFound := 0

	for turns := 0; ; turns++ {
		if turns >= maxTurns {
			return nil, errors.Newf("chat: the turns count exceeded limit %d", maxTurns)
		}
		if len(s.messages) >= messagesLimit {
			return nil, errors.Newf("chat: the messages count exceeded limit %d", messagesLimit)
		}
		bytesSent := llmutils.CountMessagesContentSize(s.messages)
		if bytesSent > bytesLimit {
			return nil, errors.Newf("chat: the content size exceeded limit")
		}

		if callback != nil {
			callback.OnLLMCallStart(ctx, s.LLM, s.messages)
		}
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(s.messages)), modelName)

		resp, err := s.LLM.GenerateContent(ctx, s.messages, callOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate content from LLM")
		}

		if callback != nil {
			callback.OnLLMCallEnd(ctx, s.LLM, resp)
		}
		tokensIn, tokensOut, _ := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), modelName)

		if len(resp.Choices) == 0 {
			retryCount++
			if retryCount >= DefaultMaxRetries {
				return nil, errors.Newf("chat: LLM returned empty response after %d retries", retryCount)
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "retrying_empty_response",
				"retry_count", retryCount,
			)
			continue
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			// final answer
			s.record(ctx, cfg, llms.MessageFromTextParts(llms.RoleAI, choice.Content))
			logger.ContextKV(ctx, xlog.DEBUG,
				"chat_id", chatmodel.IDFromContext(ctx),
				"turns", turns+1,
				"tool_calls", totalToolCalls,
				"human", slices.StringUpto(input, 64),
				"ai", slices.StringUpto(choice.Content, 64),
			)
			if callback != nil {
				callback.OnChatEnd(ctx, input, resp, s.messages)
			}
			return &Result{
				Content:   choice.Content,
				Turns:     turns + 1,
				ToolCalls: totalToolCalls,
			}, nil
		}

		notFound, err := s.executeToolCalls(ctx, cfg, choice, &totalToolCalls, toolsLimit)
		if err != nil {
			return nil, err
		}
		if notFound > 0 {
			consecutiveNotFound += notFound
			if consecutiveNotFound > 3 {
				return nil, errors.Newf("chat: the number of not found tools is exceeded")
			}
		} else {
			consecutiveNotFound = 0
		}
	}
}

// executeToolCalls runs the requested tool calls one by one and appends
// the full assistant message, text and tool-call list together, then
// one tool response per call, in the order the model issued them. A
// failed or unknown tool does not stop the turn: the failure is handed
// back to the model as the tool result.
func (s *Session) executeToolCalls(ctx context.Context, cfg *Config, choice *llms.ContentChoice, totalToolCalls *int, toolsLimit int) (int, error) {
	callback := cfg.CallbackHandler

	calls := make([]llms.ToolCall, 0, len(choice.ToolCalls))
	for i, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("%s_%d", tc.FunctionCall.Name, i)
		}
		tc.Type = values.StringsCoalesce(tc.Type, "function")
		calls = append(calls, tc)
	}
	if len(calls) == 0 {
		return 0, errors.New("chat: tool call without function definition")
	}

	// the model's commentary accompanying the calls stays in the
	// transcript, so the next call sees its own reasoning
	parts := make([]llms.ContentPart, 0, len(calls)+1)
	if choice.Content != "" {
		parts = append(parts, llms.TextPart(choice.Content))
	}
	for _, tc := range calls {
		parts = append(parts, tc)
	}
	s.record(ctx, cfg, llms.MessageFromParts(llms.RoleAI, parts...))

	notFound := 0
	for _, tc := range calls {
		*totalToolCalls++
		if *totalToolCalls > toolsLimit {
			return notFound, errors.Newf("chat: the tool calls limit is exceeded %d", toolsLimit)
		}

		toolName := tc.FunctionCall.Name
		toolArgs := tc.FunctionCall.Arguments

		var content string
		tool, err := s.registry.Resolve(toolName)
		if err != nil {
			notFound++
			metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
			if callback != nil {
				callback.OnToolNotFound(ctx, toolName)
			}
			available := strings.Join(s.registry.Names(), ", ")
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "tool_not_found",
				"tool_name", toolName,
				"available_tools", available,
			)
			content = failureContent(fmt.Sprintf("tool %q not found, available tools: %s", toolName, available))
		} else {
			if callback != nil {
				callback.OnToolStart(ctx, tool, toolArgs)
			}
			started := time.Now()
			out, err := tool.Call(ctx, toolArgs)
			metricskey.PerfToolCall.MeasureSince(started, toolName)
			if err != nil {
				metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
				if callback != nil {
					callback.OnToolError(ctx, tool, toolArgs, err)
				}
				content = failureContent(err.Error())
			} else {
				metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
				if callback != nil {
					callback.OnToolEnd(ctx, tool, toolArgs, out)
				}
				content = out
			}
		}

		s.record(ctx, cfg, llms.MessageFromToolResponse(llms.ToolCallResponse{
			ToolCallID: tc.ID,
			Name:       toolName,
			Content:    content,
		}))
	}
	return notFound, nil
}

func (s *Session) record(ctx context.Context, cfg *Config, msg llms.Message) {
	s.messages = append(s.messages, msg)
	if cfg.Store != nil {
		if err := cfg.Store.Add(ctx, msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "store_add", "err", err.Error())
		}
	}
}
