package chat

import (
	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/store"
)

const (
	// DefaultMaxTurns bounds the number of model round-trips per Ask.
	DefaultMaxTurns = 32
	// DefaultMaxToolCalls bounds the number of tool executions per Ask.
	DefaultMaxToolCalls = 128
	// DefaultMaxMessages bounds the transcript length.
	DefaultMaxMessages = 256
	// DefaultMaxContentSize bounds the total bytes sent to the model.
	DefaultMaxContentSize = uint64(4 * 1024 * 1024)
	// DefaultMaxRetries bounds retries on empty model responses.
	DefaultMaxRetries = 3
)

// Option is a function that can be used to modify the behavior of the Session Config.
type Option func(*Config)

// Config holds the session settings. Zero fields fall back to the
// Default* values above.
type Config struct {
	// SystemPrompt is the first message of every conversation.
	SystemPrompt string

	// Model overrides the provider's configured model name.
	Model string

	// MaxTokens is the maximum number of tokens to generate in an LLM call.
	MaxTokens int

	// Temperature is the temperature for sampling in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// MaxTurns bounds model round-trips within one Ask.
	MaxTurns int
	// MaxToolCalls bounds tool executions within one Ask.
	MaxToolCalls int
	// MaxMessages bounds the transcript length.
	MaxMessages int
	// MaxContentSize bounds the total bytes sent to the model.
	MaxContentSize uint64

	// Store persists the transcript. Nil keeps it in-process only.
	Store store.MessageStore

	// CallbackHandler receives session lifecycle notifications.
	CallbackHandler Callback
}

// NewConfig returns a Config with the options applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Apply returns a copy of the config with the options applied.
func (c *Config) Apply(opts ...Option) *Config {
	cfg := *c
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// GetCallOptions translates the config into per-call LLM options.
func (c *Config) GetCallOptions(extra ...llms.CallOption) []llms.CallOption {
	var opts []llms.CallOption
	if c.Model != "" {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}
	return append(opts, extra...)
}

// WithSystemPrompt sets the system prompt for the session.
func WithSystemPrompt(prompt string) Option {
	return func(o *Config) {
		o.SystemPrompt = prompt
	}
}

// WithModel overrides the model name for LLM calls.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
	}
}

// WithMaxTokens sets the maximum tokens to generate per LLM call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature for LLM calls.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithMaxTurns bounds the model round-trips within one Ask.
func WithMaxTurns(n int) Option {
	return func(o *Config) {
		o.MaxTurns = n
	}
}

// WithMaxToolCalls bounds the tool executions within one Ask.
func WithMaxToolCalls(n int) Option {
	return func(o *Config) {
		o.MaxToolCalls = n
	}
}

// WithMaxMessages bounds the transcript length.
func WithMaxMessages(n int) Option {
	return func(o *Config) {
		o.MaxMessages = n
	}
}

// WithStore sets the message store for transcript persistence.
func WithStore(s store.MessageStore) Option {
	return func(o *Config) {
		o.Store = s
	}
}

// WithCallback sets the callback handler.
func WithCallback(cb Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = cb
	}
}
