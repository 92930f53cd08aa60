package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiService implements the LLMService interface using the Google Gemini API
type GeminiService struct {
	config    *common.GeminiConfig
	logger    arbor.ILogger
	client    *genai.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	available bool
}

// NewGeminiService creates a new Gemini LLM service instance
func NewGeminiService(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.Model == "" {
		config.Model = "gemini-3-flash-preview"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	rateLimit, err := time.ParseDuration(config.RateLimit)
	if err != nil || rateLimit <= 0 {
		rateLimit = 4 * time.Second
	}

	service := &GeminiService{
		config:    config,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(rateLimit), 1),
		timeout:   timeout,
		available: config.APIKey != "",
	}

	if service.available {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  config.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		service.client = client
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Bool("available", service.available).
		Msg("Gemini LLM service initialized")

	return service, nil
}

// Complete sends a prompt and returns the model response text
func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	if !s.available || s.client == nil {
		return "", fmt.Errorf("Gemini API key not configured (set GEMINI_API_KEY or gemini.api_key)")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().Int("prompt_length", len(prompt)).Msg("Starting Gemini completion")

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
	if err != nil {
		s.logger.Error().Err(err).Msg("Gemini completion failed")
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	// Iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Gemini API")
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini completion finished")

	return response.String(), nil
}

// Mode returns the provider backing this service
func (s *GeminiService) Mode() interfaces.LLMMode {
	return interfaces.LLMModeGemini
}

// IsAvailable reports whether the provider is configured with credentials
func (s *GeminiService) IsAvailable() bool {
	return s.available
}

// Ensure GeminiService implements LLMService interface
var _ interfaces.LLMService = (*GeminiService)(nil)
