package llms

import "context"

type CallOption func(*CallOptions)

type CallOptions struct {
	Temperature   float64                                       `json:"temperature"`
	MaxTokens     int                                           `json:"max_tokens"`
	StreamingFunc func(ctx context.Context, chunk []byte) error `json:"-"`
}

// ApplyCallOptions folds options into a CallOptions value.
func ApplyCallOptions(options ...CallOption) CallOptions {
	opts := CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// WithMaxTokens caps the number of tokens in the response.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		if maxTokens > 0 {
			o.MaxTokens = maxTokens
		}
	}
}

// WithStreamingFunc specifies the streaming function to use.
func WithStreamingFunc(streamingFunc func(ctx context.Context, chunk []byte) error) CallOption {
	return func(o *CallOptions) {
		o.StreamingFunc = streamingFunc
	}
}
