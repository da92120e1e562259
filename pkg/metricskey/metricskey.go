package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"model"},
	}

	StatsChatTurnsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns_failed",
		Help:         "stats_chat_turns_failed provides total chat turns failed",
		RequiredTags: []string{"model"},
	}

	StatsChatTurnsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_turns_succeeded",
		Help:         "stats_chat_turns_succeeded provides total chat turns succeeded",
		RequiredTags: []string{"model"},
	}

	StatsProcExecutions = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_proc_executions",
		Help:         "stats_proc_executions provides total subprocess executions",
		RequiredTags: []string{"status"},
	}

	StatsProcTimeouts = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_proc_timeouts",
		Help:         "stats_proc_timeouts provides total subprocess executions killed on timeout",
		RequiredTags: []string{},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfChatTurn = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_turn",
		Help:         "perf_chat_turn provides duration of a chat turn",
		RequiredTags: []string{"model"},
	}

	PerfProcExec = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_proc_exec",
		Help:         "perf_proc_exec provides duration of subprocess execution",
		RequiredTags: []string{},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfChatTurn,
	&PerfProcExec,
	&PerfToolCall,
	&StatsChatTurnsFailed,
	&StatsChatTurnsSucceeded,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsProcExecutions,
	&StatsProcTimeouts,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
