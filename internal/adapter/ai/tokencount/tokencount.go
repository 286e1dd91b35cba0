// Package tokencount estimates prompt sizes before a completion is dispatched.
//
// Counting uses tiktoken-go with the embedded BPE ranks so no network access
// is needed. Llama-family models have their own tokenizer; cl100k_base is
// used as an approximation, which is close enough for budgeting against the
// provider's tokens-per-minute window.
package tokencount

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/fairyhunter13/ats-cv-optimizer/internal/domain"
)

// ProviderWindow is the tokens-per-minute allowance of the default model's
// free tier. Prompt plus completion ceiling should stay below it.
const ProviderWindow = 6000

const encodingName = "cl100k_base"

// chat framing per single-turn request: message header, role, reply primer.
const chatOverhead = 3 + 1 + 3

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Usage is the estimated token footprint of one request.
type Usage struct {
	PromptTokens   int    `json:"prompt_tokens"`
	MaxCompletion  int    `json:"max_completion"`
	WorstCaseTotal int    `json:"worst_case_total"`
	Model          string `json:"model"`
}

// FitsWindow reports whether prompt plus the completion ceiling stays within
// ProviderWindow.
func (u Usage) FitsWindow() bool { return u.WorstCaseTotal <= ProviderWindow }

// Counter is safe for concurrent use. The encoding is loaded lazily once.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter { return &Counter{} }

// DefaultCounter is shared by the completion clients.
var DefaultCounter = NewCounter()

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(encodingName)
	})
	return c.enc, c.err
}

// CountTokens counts the tokens of text. When the encoding cannot be loaded it
// falls back to roughly four characters per token.
func (c *Counter) CountTokens(text string) int {
	enc, err := c.encoding()
	if err != nil {
		slog.Warn("token encoding unavailable, using estimate", slog.Any("error", err))
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// Estimate returns the usage of a single user-turn completion request.
func (c *Counter) Estimate(req domain.CompletionRequest) Usage {
	prompt := c.CountTokens("user") + c.CountTokens(req.Prompt) + chatOverhead
	return Usage{
		PromptTokens:   prompt,
		MaxCompletion:  req.MaxTokens,
		WorstCaseTotal: prompt + req.MaxTokens,
		Model:          req.Model,
	}
}

// Estimate uses DefaultCounter.
func Estimate(req domain.CompletionRequest) Usage { return DefaultCounter.Estimate(req) }
