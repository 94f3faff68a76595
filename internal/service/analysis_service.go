package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banking/fraud-analysis/internal/crypto"
	"github.com/banking/fraud-analysis/internal/datastore"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerStore is the read side of the customer data store
type CustomerStore interface {
	Lookup(ctx context.Context, customerID string) (*domain.CustomerRecord, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Analyzer produces the narrative analysis for a formatted customer record
type Analyzer interface {
	AnalyzeFraudData(ctx context.Context, customerID, formatted, analystContext string) domain.AIAnalysis
}

// FollowupGenerator suggests follow-up questions during a chat
type FollowupGenerator interface {
	GenerateFollowups(ctx context.Context, customerID, priorSummary, conversation string) []string
}

// AnalysisService assembles fraud-risk reports
type AnalysisService struct {
	store    CustomerStore
	analyzer Analyzer // nil when no credential is configured
	signer   *crypto.ReportSigner
	model    string
	logger   *zap.Logger

	format func(*domain.CustomerRecord) (string, error)
	now    func() time.Time
}

// NewAnalysisService wires the orchestrator. analyzer may be nil, in which case
// every report uses the locally computed analysis.
func NewAnalysisService(
	store CustomerStore,
	analyzer Analyzer,
	signer *crypto.ReportSigner,
	model string,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		store:    store,
		analyzer: analyzer,
		signer:   signer,
		model:    model,
		logger:   logger,
		format:   datastore.FormatForAnalysis,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AnalyzeCustomer runs the full pipeline for one customer. Validation and store
// errors are returned; any failure after the record is found yields the
// fallback report instead.
func (s *AnalysisService) AnalyzeCustomer(ctx context.Context, customerID, analystContext string) (*domain.AnalysisReport, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, fmt.Errorf("%w: customer ID is required", domain.ErrValidation)
	}

	s.logger.Info("Starting fraud analysis", zap.String("customer_id", id))

	rec, err := s.store.Lookup(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("%w: customer not found: %s", domain.ErrNotFound, id)
		case errors.Is(err, domain.ErrValidation):
			return nil, err
		default:
			s.logger.Error("Failed to retrieve customer data", zap.String("customer_id", id), zap.Error(err))
			return nil, fmt.Errorf("%w: failed to retrieve customer data: %w", domain.ErrDataAccess, err)
		}
	}

	report, err := s.buildReport(ctx, rec, analystContext)
	if err != nil {
		s.logger.Error("Analysis failed, returning fallback report",
			zap.String("customer_id", id),
			zap.Error(err),
		)
		report = FallbackReport(id, err, s.now())
	}

	if err := s.signer.Sign(report); err != nil {
		s.logger.Warn("Failed to sign report", zap.String("report_id", report.ReportID.String()), zap.Error(err))
	}

	s.logger.Info("Analysis completed",
		zap.String("customer_id", id),
		zap.String("account", crypto.MaskAccount(rec.Account.Account)),
		zap.String("risk_level", string(report.RiskLevel)),
		zap.Float64("confidence", report.ConfidenceScore),
	)
	return report, nil
}

func (s *AnalysisService) buildReport(ctx context.Context, rec *domain.CustomerRecord, analystContext string) (report *domain.AnalysisReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()

	formatted, err := s.format(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to format customer data: %w", err)
	}

	analysis := s.analyze(ctx, rec.CustomerID, formatted, analystContext)

	report = &domain.AnalysisReport{
		ReportID:           uuid.New(),
		CustomerID:         rec.CustomerID,
		RiskLevel:          analysis.RiskLevel,
		ConfidenceScore:    confidenceScore(rec, analysis),
		KeyFindings:        keyFindings(rec, analysis),
		RedFlags:           redFlags(rec),
		Summary:            analysis.Summary,
		Questions:          structureQuestions(analysis.Questions),
		RecommendedActions: recommendedActions(analysis.RiskLevel),
		NextSteps:          nextSteps(analysis.RiskLevel),
		CreatedAt:          s.now(),
	}

	if err := report.Validate(); err != nil {
		return nil, err
	}
	return report, nil
}

// analyze calls the analyzer, substituting the local analysis when none is
// configured or the call panics
func (s *AnalysisService) analyze(ctx context.Context, customerID, formatted, analystContext string) (analysis domain.AIAnalysis) {
	if s.analyzer == nil {
		return localAnalysis(customerID, formatted)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Unexpected error in AI analysis", zap.String("customer_id", customerID), zap.Any("panic", r))
			analysis = localAnalysis(customerID, formatted)
		}
	}()
	return s.analyzer.AnalyzeFraudData(ctx, customerID, formatted, analystContext)
}

// Chat wraps AnalyzeCustomer as chat lines. It never returns an error; failures
// are reported in the response status.
func (s *AnalysisService) Chat(ctx context.Context, req domain.ChatRequest) *domain.ChatResponse {
	s.logger.Info("Chat analysis request", zap.String("customer_id", req.CustomerID))

	report, err := s.AnalyzeCustomer(ctx, req.CustomerID, req.Message)
	if err != nil {
		s.logger.Error("Chat analysis failed", zap.String("customer_id", req.CustomerID), zap.Error(err))
		return &domain.ChatResponse{
			Messages: []domain.ChatMessage{s.botMessage("Analysis failed: "+err.Error(), domain.MessageTypeError)},
			Status:   domain.ChatStatusError,
			Error:    err.Error(),
		}
	}

	messages := []domain.ChatMessage{
		s.botMessage("Analysis completed for customer "+req.CustomerID, domain.MessageTypeAnalysis),
		s.botMessage("Risk Level: "+string(report.RiskLevel), domain.MessageTypeText),
	}
	for _, finding := range report.KeyFindings {
		messages = append(messages, s.botMessage("• "+finding, domain.MessageTypeText))
	}

	if gen, ok := s.analyzer.(FollowupGenerator); ok && strings.TrimSpace(req.Message) != "" {
		for _, q := range gen.GenerateFollowups(ctx, report.CustomerID, report.Summary, req.Message) {
			messages = append(messages, s.botMessage("Suggested follow-up: "+q, domain.MessageTypeText))
		}
	}

	return &domain.ChatResponse{
		Messages: messages,
		Analysis: report,
		Status:   domain.ChatStatusSuccess,
	}
}

func (s *AnalysisService) botMessage(text, kind string) domain.ChatMessage {
	return domain.ChatMessage{
		Message:     text,
		Timestamp:   s.now(),
		IsBot:       true,
		MessageType: kind,
	}
}

// Health reports data and AI subsystem status
func (s *AnalysisService) Health(ctx context.Context) (*domain.HealthStatus, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return &domain.HealthStatus{Status: "unhealthy", Error: err.Error()}, err
	}

	aiService := "not_configured"
	if s.analyzer != nil {
		aiService = "configured"
	}

	return &domain.HealthStatus{
		Status:             "healthy",
		DataService:        "operational",
		CustomersAvailable: len(ids),
		AIService:          aiService,
		Model:              s.model,
	}, nil
}
