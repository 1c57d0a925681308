// Package gemini adapts Google's GenAI SDK to the pipeline's stage
// generator.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/metrics"
	"gem-finder/internal/gems"
	"gem-finder/internal/resilience"

	"google.golang.org/genai"
)

const serviceName = "genai"

var ErrEmptyResponse = errors.New("EMPTY_GENERATION")

// ContentGenerator is the slice of genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Config struct {
	APIKey          string
	Model           string
	Timeout         time.Duration
	Temperature     float32
	MaxOutputTokens int32
}

type Client struct {
	models       ContentGenerator
	config       Config
	instructions map[gems.StageID]string
	breaker      *resilience.Breaker
	logger       Logger
}

// New connects to the Gemini API. instructions supplies the system
// instruction for each stage.
func New(ctx context.Context, cfg Config, instructions map[gems.StageID]string, log Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewCollaboratorUnavailableError(serviceName, errors.New("api key is required"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewWithGenerator(client.Models, cfg, instructions, log), nil
}

// NewWithGenerator builds a client over any ContentGenerator.
func NewWithGenerator(models ContentGenerator, cfg Config, instructions map[gems.StageID]string, log Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	return &Client{
		models:       models,
		config:       cfg,
		instructions: instructions,
		logger:       log,
	}
}

// WithBreaker routes every call through b.
func (c *Client) WithBreaker(b *resilience.Breaker) *Client {
	c.breaker = b
	return c
}

// Generate runs one stage call. Failures come back as TRANSIENT_EXTERNAL
// errors carrying the upstream status so the retry policy can classify
// them.
func (c *Client) Generate(ctx context.Context, stage gems.StageID, input string) (string, error) {
	startTime := time.Now()
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	text, err := resilience.Guard(c.breaker, func() (string, error) {
		return c.generate(ctx, stage, input)
	})

	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(startTime).Seconds())
	if err != nil {
		metrics.StageCalls.WithLabelValues(string(stage), "error").Inc()
		c.logger.Warn("stage generation failed", map[string]interface{}{
			"stage":      stage,
			"status":     apperrors.StatusOf(err),
			"error":      err.Error(),
			"durationMs": time.Since(startTime).Milliseconds(),
		})
		return "", err
	}

	metrics.StageCalls.WithLabelValues(string(stage), "success").Inc()
	c.logger.Debug("stage generation completed", map[string]interface{}{
		"stage":       stage,
		"outputChars": len(text),
		"durationMs":  time.Since(startTime).Milliseconds(),
	})
	return text, nil
}

func (c *Client) generate(ctx context.Context, stage gems.StageID, input string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if instruction := c.instructions[stage]; instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}
	if c.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(c.config.Temperature)
	}
	if c.config.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = c.config.MaxOutputTokens
	}

	resp, err := c.models.GenerateContent(ctx, c.config.Model, []*genai.Content{
		genai.NewContentFromText(input, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", classify(err)
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if text == "" {
		return "", apperrors.NewTransientExternalError(serviceName, 500, fmt.Errorf("stage %s: %w", stage, ErrEmptyResponse))
	}
	return text, nil
}

// classify maps SDK errors onto a status-carrying StandardError.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewTransientExternalError(serviceName, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apperrors.NewTransientExternalError(serviceName, apiErrPtr.Code, err)
	}
	return apperrors.NewTransientExternalError(serviceName, apperrors.StatusOf(err), err)
}
