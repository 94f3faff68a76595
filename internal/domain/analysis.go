package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the ordered overall assessment of a customer
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Rank orders risk levels: Low < Medium < High < Critical. Unknown values rank 0.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// ParseRiskLevel accepts any casing of a known level
func ParseRiskLevel(s string) (RiskLevel, error) {
	for _, l := range []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical} {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown risk level %q", ErrValidation, s)
}

// QuestionCategory classifies an investigative question
type QuestionCategory string

const (
	CategoryTransactionPattern   QuestionCategory = "Transaction Pattern"
	CategoryAccountActivity      QuestionCategory = "Account Activity"
	CategoryIdentityVerification QuestionCategory = "Identity Verification"
	CategoryBehavioralAnalysis   QuestionCategory = "Behavioral Analysis"
	CategoryTechnicalIndicators  QuestionCategory = "Technical Indicators"
)

// InvestigativeQuestion is a customer-facing question for a verification call
type InvestigativeQuestion struct {
	Question string           `json:"question"`
	Category QuestionCategory `json:"category"`
	Priority int              `json:"priority"` // 1-5, 5 highest
	Context  string           `json:"context,omitempty"`
}

// AIAnalysis is the intermediate result of the narrative step.
// Error is non-empty when the result is a fallback produced after a failure.
type AIAnalysis struct {
	Summary   string    `json:"summary"`
	Questions []string  `json:"questions"`
	RiskLevel RiskLevel `json:"risk_level"`
	Error     string    `json:"error,omitempty"`
}

// Report shape limits
const (
	MinQuestions = 5
	MaxQuestions = 8
)

// AnalysisReport is the complete fraud-risk report returned to the analyst
type AnalysisReport struct {
	ReportID           uuid.UUID               `json:"report_id"`
	CustomerID         string                  `json:"customer_id"`
	RiskLevel          RiskLevel               `json:"risk_level"`
	ConfidenceScore    float64                 `json:"confidence_score"`
	KeyFindings        []string                `json:"key_findings"`
	RedFlags           []string                `json:"red_flags"`
	Summary            string                  `json:"summary"`
	Questions          []InvestigativeQuestion `json:"investigative_questions"`
	RecommendedActions []string                `json:"recommended_actions"`
	NextSteps          []string                `json:"next_steps"`
	CreatedAt          time.Time               `json:"created_at"`
	Signature          string                  `json:"signature,omitempty"` // HMAC over the report body
}

// Validate checks the report invariants
func (r *AnalysisReport) Validate() error {
	if n := len(r.Questions); n < MinQuestions || n > MaxQuestions {
		return fmt.Errorf("%w: report must have %d-%d questions, got %d", ErrValidation, MinQuestions, MaxQuestions, n)
	}
	if len(r.KeyFindings) == 0 {
		return fmt.Errorf("%w: report must have at least one key finding", ErrValidation)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence %.2f out of range", ErrValidation, r.ConfidenceScore)
	}
	if r.RiskLevel.Rank() == 0 {
		return fmt.Errorf("%w: invalid risk level %q", ErrValidation, r.RiskLevel)
	}
	for _, q := range r.Questions {
		if q.Priority < 1 || q.Priority > 5 {
			return fmt.Errorf("%w: question priority %d out of range", ErrValidation, q.Priority)
		}
	}
	return nil
}

// SigningPayload returns the canonical bytes covered by the report signature
func (r *AnalysisReport) SigningPayload() ([]byte, error) {
	unsigned := *r
	unsigned.Signature = ""
	return json.Marshal(unsigned)
}

// Chat message types
const (
	MessageTypeText     = "text"
	MessageTypeAnalysis = "analysis"
	MessageTypeError    = "error"
)

// ChatMessage is one line in the chat transcript
type ChatMessage struct {
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	IsBot       bool      `json:"is_bot"`
	MessageType string    `json:"message_type"`
}

// ChatRequest is the body of the chat endpoint
type ChatRequest struct {
	CustomerID string `json:"customer_id"`
	Message    string `json:"message,omitempty"`
}

// Chat statuses
const (
	ChatStatusSuccess = "success"
	ChatStatusError   = "error"
)

// ChatResponse wraps an analysis as chat-style lines
type ChatResponse struct {
	Messages []ChatMessage   `json:"messages"`
	Analysis *AnalysisReport `json:"analysis,omitempty"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
}

// TokenUsage accumulates completion token counts
type TokenUsage struct {
	TotalTokens      int `json:"total_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// UsageStats is a snapshot of the text-generation client counters
type UsageStats struct {
	TokenUsage    TokenUsage `json:"token_usage"`
	Model         string     `json:"model"`
	APIConfigured bool       `json:"api_configured"`
}

// HealthStatus is returned by the liveness endpoints
type HealthStatus struct {
	Status             string `json:"status"`
	DataService        string `json:"data_service,omitempty"`
	CustomersAvailable int    `json:"customers_available"`
	AIService          string `json:"ai_service,omitempty"`
	Model              string `json:"model,omitempty"`
	Error              string `json:"error,omitempty"`
}
