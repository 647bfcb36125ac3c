package ports

import (
	"context"
	"errors"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one ordered element of a model conversation.
type Message struct {
	Role    Role
	Content string
}

// GenerateOptions carries per-call generation parameters. Zero values fall
// back to the provider defaults (2048 tokens, temperature 0.5).
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

const (
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.5
)

// StreamChunk is one element of an incremental generation. A non-nil Err
// terminates the stream; no further chunks follow it.
type StreamChunk struct {
	Text string
	Err  error
}

// LLMProvider is the uniform gateway to a generative text backend. A
// provider keeps no state between calls beyond its configuration.
type LLMProvider interface {
	// Generate runs one model round trip over the ordered messages and
	// returns the full response text.
	Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error)

	// GenerateStream returns a lazy, finite, non-restartable sequence of
	// response chunks. The channel is closed when generation ends.
	GenerateStream(ctx context.Context, messages []Message, opts *GenerateOptions) (<-chan StreamChunk, error)
}

// Failure taxonomy for provider errors. Callers distinguish the classes
// with errors.Is; providers wrap backend detail around these sentinels.
var (
	// ErrLLMConnection covers unreachable backends, timeouts, empty
	// responses and unclassified backend errors.
	ErrLLMConnection = errors.New("llm: connection failure")

	// ErrLLMRateLimit signals quota exhaustion or throttling.
	ErrLLMRateLimit = errors.New("llm: rate limited")

	// ErrLLMValidation covers bad requests, credential failures and
	// backend content-safety rejections.
	ErrLLMValidation = errors.New("llm: request rejected")
)
