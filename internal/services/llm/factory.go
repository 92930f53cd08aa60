package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

// NewService creates the LLM service selected by config.LLM.DefaultProvider.
// An unknown provider is an error rather than a silent fallback.
func NewService(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := strings.ToLower(strings.TrimSpace(config.LLM.DefaultProvider))
	switch provider {
	case "", string(interfaces.LLMModeClaude):
		return NewClaudeService(&config.Claude, logger)
	case string(interfaces.LLMModeGemini):
		return NewGeminiService(ctx, &config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (expected 'claude' or 'gemini')", provider)
	}
}
