package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrEmptyCompletion = errors.New("report: provider returned no choices")

// Config holds the chat-completion provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	// RPS is the process-wide request rate towards the provider.
	RPS     float64
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL:     strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		Model:       os.Getenv("OPENAI_MODEL"),
		MaxTokens:   1500,
		Temperature: 0.7,
		RPS:         2,
		Timeout:     60 * time.Second,
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if v, err := strconv.Atoi(os.Getenv("OPENAI_MAX_TOKENS")); err == nil && v > 0 {
		cfg.MaxTokens = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("OPENAI_TEMPERATURE"), 32); err == nil && v >= 0 {
		cfg.Temperature = float32(v)
	}
	if v, err := strconv.ParseFloat(os.Getenv("OPENAI_RPS"), 64); err == nil && v > 0 {
		cfg.RPS = v
	}
	return cfg
}

// Generator produces the narrative report through a chat-completion call.
type Generator struct {
	cfg     Config
	client  *openai.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

func NewGenerator(cfg Config, logger *zap.SugaredLogger) *Generator {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Generator{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(oc),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

func (g *Generator) Configured() bool {
	return g != nil && g.cfg.APIKey != ""
}

// Generate returns the raw markdown report for a prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("report: throttle: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You write concise, practical AI readiness reports in markdown."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("report: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	if g.logger != nil {
		g.logger.Debugw("report generated", "model", g.cfg.Model, "tokens", resp.Usage.TotalTokens, "took", time.Since(start))
	}
	return text, nil
}
