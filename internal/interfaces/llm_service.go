package interfaces

import "context"

// LLMMode selects which language model provider backs analysis.
type LLMMode string

const (
	LLMModeClaude LLMMode = "claude"
	LLMModeGemini LLMMode = "gemini"
)

// LLMService generates completions from a language model provider.
type LLMService interface {
	// Complete sends a prompt and returns the raw model response text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Mode returns the provider backing this service.
	Mode() LLMMode

	// IsAvailable reports whether the provider is configured with credentials.
	IsAvailable() bool
}
