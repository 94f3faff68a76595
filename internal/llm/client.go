// Package llm is the text-generation client used for narrative summaries and
// follow-up questions. Customer-facing investigative questions never come from
// the model; they are drawn from the question bank.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/questions"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	followupLimit         = 5
	followupUnparsable    = "Can you provide more details about the suspicious activity?"
	followupRequestFailed = "Can you provide more details about your account activity?"
)

// Completer is the chat completion transport
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NarrativeCache stores narrative results between identical requests
type NarrativeCache interface {
	Get(ctx context.Context, key string) (domain.AIAnalysis, bool, error)
	Set(ctx context.Context, key string, analysis domain.AIAnalysis) error
}

// Client wraps the completion API with throttling, retries and usage accounting
type Client struct {
	completer Completer
	cfg       config.OpenAIConfig
	bank      *questions.Bank
	cache     NarrativeCache
	logger    *zap.Logger

	limiter *rate.Limiter
	retry   RetryPolicy
	sleep   SleepFunc

	mu    sync.Mutex
	usage domain.TokenUsage
}

// Option customizes a Client
type Option func(*Client)

// WithCompleter replaces the HTTP transport
func WithCompleter(c Completer) Option {
	return func(cl *Client) { cl.completer = c }
}

// WithNarrativeCache enables narrative caching
func WithNarrativeCache(cache NarrativeCache) Option {
	return func(cl *Client) { cl.cache = cache }
}

// WithRetryPolicy overrides the retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(cl *Client) { cl.retry = p }
}

// WithSleep overrides the backoff sleep
func WithSleep(fn SleepFunc) Option {
	return func(cl *Client) { cl.sleep = fn }
}

// New creates a client. It fails with domain.ErrConfig when no usable API key is configured.
func New(cfg config.OpenAIConfig, bank *questions.Bank, logger *zap.Logger, opts ...Option) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: OpenAI API key not configured, please update .env file", domain.ErrConfig)
	}
	if bank == nil {
		return nil, fmt.Errorf("%w: question bank is required", domain.ErrConfig)
	}

	retry := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BackoffBase > 0 {
		retry.Multiplier = cfg.BackoffBase
	}
	if cfg.BackoffMin > 0 {
		retry.Min = cfg.BackoffMin
	}
	if cfg.BackoffMax > 0 {
		retry.Max = cfg.BackoffMax
	}

	c := &Client{
		cfg:     cfg,
		bank:    bank,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		retry:   retry,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.completer == nil {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		oc.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
		c.completer = openai.NewClientWithConfig(oc)
	}

	return c, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.cfg.Model
}

// RequestCompletion sends one chat completion request. Outbound calls are spaced
// by at least the configured minimum interval across all callers. Failures are
// retried per the retry policy; exhaustion returns domain.ErrRemoteService.
func (c *Client) RequestCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var content string
	err := c.retry.Do(ctx, c.sleep, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.completer.CreateChatCompletion(ctx, req)
		if err != nil {
			c.logger.Warn("Completion request failed",
				zap.Int("attempt", attempt),
				zap.String("model", c.cfg.Model),
				zap.Error(err),
			)
			return err
		}

		c.addUsage(resp.Usage)

		if len(resp.Choices) == 0 {
			return errors.New("completion returned no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to get completion: %w", domain.ErrRemoteService, err)
	}
	return content, nil
}

func (c *Client) addUsage(u openai.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.TotalTokens += u.TotalTokens
	c.usage.PromptTokens += u.PromptTokens
	c.usage.CompletionTokens += u.CompletionTokens
}

// AnalyzeFraudData produces the narrative summary, a coarse risk level and the
// fixed investigative questions. It never fails; remote errors yield a fallback
// analysis with Error set.
func (c *Client) AnalyzeFraudData(ctx context.Context, customerID, formatted, analystContext string) domain.AIAnalysis {
	risk := HeuristicRiskLevel(formatted)
	key := c.cacheKey(formatted, analystContext)

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("Narrative cache read failed", zap.String("customer_id", customerID), zap.Error(err))
		} else if ok {
			c.logger.Debug("Narrative cache hit", zap.String("customer_id", customerID))
			return domain.AIAnalysis{
				Summary:   cached.Summary,
				Questions: c.bank.SelectQuestions(),
				RiskLevel: cached.RiskLevel,
			}
		}
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: narrativeSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: narrativeUserPrompt(customerID, formatted, analystContext)},
	}

	content, err := c.RequestCompletion(ctx, messages, c.cfg.SummaryTemp, c.cfg.MaxTokens)
	if err != nil {
		c.logger.Error("Fraud analysis failed", zap.String("customer_id", customerID), zap.Error(err))
		return FallbackAnalysis(customerID, err)
	}

	analysis := domain.AIAnalysis{
		Summary:   strings.TrimSpace(content),
		Questions: c.bank.SelectQuestions(),
		RiskLevel: risk,
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, analysis); err != nil {
			c.logger.Warn("Narrative cache write failed", zap.String("customer_id", customerID), zap.Error(err))
		}
	}

	return analysis
}

// FallbackAnalysis is returned when the narrative request fails
func FallbackAnalysis(customerID string, cause error) domain.AIAnalysis {
	return domain.AIAnalysis{
		Summary:   fmt.Sprintf("Analysis completed for customer %s. Multiple risk factors detected requiring immediate customer verification.", customerID),
		Questions: questions.Canonical(),
		RiskLevel: domain.RiskMedium,
		Error:     cause.Error(),
	}
}

// HeuristicRiskLevel derives a coarse risk level from formatted customer text
func HeuristicRiskLevel(formatted string) domain.RiskLevel {
	text := strings.ToLower(formatted)
	switch {
	case strings.Contains(text, "high risk"):
		return domain.RiskHigh
	case strings.Contains(text, "fraud_cases_linked_past_30_days: 0"):
		return domain.RiskLow
	default:
		return domain.RiskMedium
	}
}

// GenerateFollowups asks the model for up to five follow-up questions. It never
// fails; errors yield a single generic question.
func (c *Client) GenerateFollowups(ctx context.Context, customerID, priorSummary, conversation string) []string {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: followupSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: followupUserPrompt(customerID, priorSummary, conversation)},
	}

	content, err := c.RequestCompletion(ctx, messages, c.cfg.FollowupTemp, c.cfg.MaxTokens)
	if err != nil {
		c.logger.Error("Follow-up question generation failed", zap.String("customer_id", customerID), zap.Error(err))
		return []string{followupRequestFailed}
	}

	parsed := ParseStructuredResponse(content)
	if parsed.Error != "" || len(parsed.Items) == 0 {
		return []string{followupUnparsable}
	}
	if len(parsed.Items) > followupLimit {
		return parsed.Items[:followupLimit]
	}
	return parsed.Items
}

// UsageStats returns a snapshot of token counters
func (c *Client) UsageStats() domain.UsageStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.UsageStats{
		TokenUsage:    c.usage,
		Model:         c.cfg.Model,
		APIConfigured: c.cfg.Configured(),
	}
}

// ConnectionStatus is the result of TestConnection
type ConnectionStatus struct {
	Status           string `json:"status"`
	Model            string `json:"model"`
	ResponseReceived bool   `json:"response_received,omitempty"`
	Error            string `json:"error,omitempty"`
}

// TestConnection sends a minimal request to verify credentials and reachability
func (c *Client) TestConnection(ctx context.Context) ConnectionStatus {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "Hello, this is a test."},
	}
	content, err := c.RequestCompletion(ctx, messages, 0, 10)
	if err != nil {
		return ConnectionStatus{Status: "error", Model: c.cfg.Model, Error: err.Error()}
	}
	return ConnectionStatus{Status: "success", Model: c.cfg.Model, ResponseReceived: content != ""}
}

func (c *Client) cacheKey(formatted, analystContext string) string {
	h := sha256.New()
	h.Write([]byte(c.cfg.Model))
	h.Write([]byte{0})
	h.Write([]byte(formatted))
	h.Write([]byte{0})
	h.Write([]byte(analystContext))
	return hex.EncodeToString(h.Sum(nil))
}
