package ollamaclient

import "time"

// GenerateRequest represents a request to the /api/generate endpoint.
type GenerateRequest struct {
	Model     string  `json:"model"`
	Prompt    string  `json:"prompt"`
	System    string  `json:"system,omitempty"`
	Stream    *bool   `json:"stream,omitempty"`
	KeepAlive string  `json:"keep_alive,omitempty"`
	Options   Options `json:"options,omitempty"`
}

// GenerateResponse represents a response from the /api/generate endpoint.
type GenerateResponse struct {
	CreatedAt       time.Time     `json:"created_at"`
	Model           string        `json:"model"`
	Response        string        `json:"response"`
	TotalDuration   time.Duration `json:"total_duration,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
	Done            bool          `json:"done"`
}

// PullRequest represents a request to the /api/pull endpoint.
type PullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream,omitempty"`
}

// Options are the sampling parameters set on a generate request.
type Options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	Seed        int      `json:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}
