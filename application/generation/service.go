package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marketing-export/domain/content"
	"marketing-export/infrastructure/retry"
)

// Config holds generation settings
type Config struct {
	Model       string
	Temperature float64
	Prompt      content.PromptTemplate
	Retry       retry.Policy
}

// Service turns form parameters into marketing copy
type Service struct {
	generator content.Generator
	config    Config
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a new generation service
func NewService(generator content.Generator, cfg Config, logger *slog.Logger) *Service {
	if cfg.Prompt.User == "" {
		cfg.Prompt = content.DefaultPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: generator,
		config:    cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// Generate renders the prompt for params and returns the provider's text.
// It never returns empty text without an error.
func (s *Service) Generate(ctx context.Context, params content.Parameters) (*content.GeneratedContent, error) {
	params.Product = strings.TrimSpace(params.Product)
	params.Audience = strings.TrimSpace(params.Audience)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	messages, err := s.config.Prompt.Render(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", content.ErrGeneration, err)
	}

	req := content.CompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		Temperature: s.config.Temperature,
	}

	var resp *content.CompletionResponse
	err = retry.Do(ctx, s.config.Retry, s.logger, "generate", isTransient, func(ctx context.Context) error {
		r, err := s.generator.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if !errors.Is(err, content.ErrGeneration) {
			err = fmt.Errorf("%w: %w", content.ErrGeneration, err)
		}
		return nil, err
	}

	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, content.ErrEmptyResponse
	}

	s.logger.Info("generated content",
		slog.String("product", params.Product),
		slog.String("tone", string(params.Tone)),
		slog.String("model", resp.Model),
		slog.Int("chars", len(resp.Text)),
	)

	return &content.GeneratedContent{
		Text:       strings.TrimSpace(resp.Text),
		Parameters: params,
		Model:      resp.Model,
		CreatedAt:  s.now(),
	}, nil
}

func isTransient(err error) bool {
	return errors.Is(err, content.ErrProviderUnavailable)
}
