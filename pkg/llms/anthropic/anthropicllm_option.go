package anthropic

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// TokenEnvVarName is the environment variable the API key is read from
// when WithToken is not used.
const TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec

const (
	defaultBaseURL        = "https://api.anthropic.com"
	defaultMaxRetries     = 2
	defaultRequestTimeout = 5 * time.Minute
)

// Options configure the client created by New.
type Options struct {
	Token          string
	Model          string
	BaseURL        string
	HTTPClient     option.HTTPClient
	MaxRetries     int
	RequestTimeout time.Duration

	// BetaHeader, when set, is sent as the 'anthropic-beta' request
	// header to opt into extended API features.
	BetaHeader string
}

// Option mutates the client Options.
type Option func(*Options)

// WithToken sets the API key. Without it the key comes from the
// ANTHROPIC_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel sets the model name used for requests.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL overrides the API endpoint, e.g. for a proxy.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(opts *Options) {
		opts.MaxRetries = n
	}
}

// WithRequestTimeout bounds the duration of a single request.
func WithRequestTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.RequestTimeout = d
	}
}

// WithBetaHeader opts into extended API features via the
// 'anthropic-beta' header.
func WithBetaHeader(value string) Option {
	return func(opts *Options) {
		opts.BetaHeader = value
	}
}
