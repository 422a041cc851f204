package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

// ErrInvalidConfig indicates an unusable provider configuration.
var ErrInvalidConfig = errors.New("invalid generator configuration")

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.APIKey == "" && c.BaseURL == "" {
		return fmt.Errorf("%w: %s needs an API key", ErrInvalidConfig, c.Provider)
	}
	return nil
}

// NewModel builds the langchaingo client for the configured provider.
func NewModel(cfg LLMConfig) (llms.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		m, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		return m, nil
	default:
		apiKey := cfg.APIKey
		if apiKey == "" {
			// OpenAI-compatible local servers ignore the key but the client requires one.
			apiKey = "unused"
		}
		opts := []openai.Option{openai.WithToken(apiKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		return m, nil
	}
}

// LLMGenerator asks a chat model for a draft.
type LLMGenerator struct {
	model       llms.Model
	temperature float64
	maxTokens   int
	logger      *logging.Logger
	now         func() time.Time
}

func NewLLMGenerator(model llms.Model, cfg LLMConfig, logger *logging.Logger) *LLMGenerator {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LLMGenerator{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      logger.Named("llm"),
		now:         time.Now,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, req modal.DraftRequest) (*modal.Draft, error) {
	prompt := BuildPrompt(req)
	start := g.now()
	completion, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("generate draft: %w: %w", modal.ErrGeneration, ctxErr)
		}
		return nil, fmt.Errorf("generate draft: %w: %v", modal.ErrGeneration, err)
	}
	subject, body := ParseCompletion(completion, req.Campaign.Goal)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("generate draft: %w: empty completion", modal.ErrGeneration)
	}
	g.logger.Debug(ctx, "draft generated",
		zap.String("style", string(req.Style)),
		zap.Duration("latency", g.now().Sub(start)),
		zap.Int("words", len(strings.Fields(body))),
	)
	return newDraft(req, subject, body, modal.GeneratorAI, g.now()), nil
}
