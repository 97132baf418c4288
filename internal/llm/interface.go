// Package llm abstracts the chat providers the advisor can talk to.
// Providers translate one ChatRequest into their native API and back;
// everything strategy-specific lives in the advisor package.
package llm

import (
	"context"
	"errors"

	"github.com/quantlark/strata/internal/core"
)

// Provider defines the interface for LLM providers.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// Message represents a chat message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatResponse holds the response from the LLM.
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// WrapErr classifies a provider failure, separating deadline expiry
// from other API errors so callers can tell a slow model from a broken
// one.
func WrapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.WrapError(core.ErrLLMTimeout, err)
	}
	return core.WrapError(core.ErrLLMFailed, err)
}
