package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/llm"
	"github.com/google/uuid"
)

const maxStructuredQuestions = domain.MaxQuestions

// confidence in tenths so the cap lands exactly on 1.0
func confidenceScore(rec *domain.CustomerRecord, analysis domain.AIAnalysis) float64 {
	tenths := 7
	if !rec.IsEmpty() {
		tenths++
	}
	if analysis.Error == "" {
		tenths++
	}
	if len(analysis.Questions) >= domain.MinQuestions {
		tenths++
	}
	return float64(min(tenths, 10)) / 10
}

func keyFindings(rec *domain.CustomerRecord, analysis domain.AIAnalysis) []string {
	var findings []string

	if !rec.IsEmpty() {
		var high []string
		for _, nf := range rec.Flags.Ordered() {
			if strings.Contains(strings.ToLower(nf.Flag.Raw), "high") {
				high = append(high, titleCase(strings.ReplaceAll(nf.Column, "_FLAG", "")))
			}
		}
		if len(high) > 0 {
			findings = append(findings, "High risk flags detected: "+strings.Join(high, ", "))
		}
		if rec.FraudCases30d > 0 {
			findings = append(findings, fmt.Sprintf("Previous fraud cases: %d in past 30 days", rec.FraudCases30d))
		}
	}

	summary := strings.ToLower(analysis.Summary)
	if strings.Contains(summary, "multiple") && strings.Contains(summary, "risk") {
		findings = append(findings, "Multiple fraud risk indicators identified")
	}

	if len(findings) == 0 {
		findings = append(findings, "Customer data reviewed for fraud indicators")
	}
	return findings
}

// titleCase upper-cases the first letter of every letter run: GROUP_IB -> Group_Ib
func titleCase(s string) string {
	out := []rune(strings.ToLower(s))
	prevLetter := false
	for i, r := range out {
		if unicode.IsLetter(r) {
			if !prevLetter {
				out[i] = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(out)
}

var redFlagText = []struct {
	column string
	text   string
}{
	{domain.ColumnBioCatch, "BioCatch behavioral analysis flagged high risk"},
	{domain.ColumnGroupIB, "Group IB fraud detection flagged high risk"},
	{domain.ColumnSASFM, "SASFM system flagged high risk"},
}

// redFlags matches the raw cell text exactly; ISOD is not a red-flag source
func redFlags(rec *domain.CustomerRecord) []string {
	flags := []string{}
	if rec.IsEmpty() {
		return flags
	}

	raw := make(map[string]string, 4)
	for _, nf := range rec.Flags.Ordered() {
		raw[nf.Column] = nf.Flag.Raw
	}
	for _, rf := range redFlagText {
		if raw[rf.column] == "high risk" {
			flags = append(flags, rf.text)
		}
	}
	if rec.FraudCases30d > 0 {
		flags = append(flags, fmt.Sprintf("Customer involved in %d fraud case(s) in past 30 days", rec.FraudCases30d))
	}
	return flags
}

var categoryKeywords = []struct {
	category domain.QuestionCategory
	words    []string
}{
	{domain.CategoryTransactionPattern, []string{"transaction", "payment", "charge", "amount"}},
	{domain.CategoryAccountActivity, []string{"device", "login", "access", "location"}},
	{domain.CategoryIdentityVerification, []string{"verify", "confirm", "identity", "contact"}},
	{domain.CategoryBehavioralAnalysis, []string{"behavior", "habit", "routine", "change"}},
	{domain.CategoryTechnicalIndicators, []string{"security", "communication", "email", "phone"}},
}

var categoryContext = map[domain.QuestionCategory]string{
	domain.CategoryTransactionPattern:   "Verify transaction legitimacy and identify unauthorized activity",
	domain.CategoryAccountActivity:      "Assess account access patterns and potential security breaches",
	domain.CategoryIdentityVerification: "Confirm customer identity and account ownership",
	domain.CategoryBehavioralAnalysis:   "Understand changes in customer banking behavior",
	domain.CategoryTechnicalIndicators:  "Evaluate security threats and suspicious communications",
}

func categorize(question string) domain.QuestionCategory {
	q := strings.ToLower(question)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(q, w) {
				return ck.category
			}
		}
	}
	return domain.CategoryAccountActivity
}

func priority(category domain.QuestionCategory, position int) int {
	p := max(5-position, 1)
	if category == domain.CategoryIdentityVerification || category == domain.CategoryTransactionPattern {
		p = min(p+1, 5)
	}
	return p
}

func structureQuestions(raw []string) []domain.InvestigativeQuestion {
	if len(raw) > maxStructuredQuestions {
		raw = raw[:maxStructuredQuestions]
	}
	out := make([]domain.InvestigativeQuestion, 0, len(raw))
	for i, q := range raw {
		category := categorize(q)
		out = append(out, domain.InvestigativeQuestion{
			Question: q,
			Category: category,
			Priority: priority(category, i),
			Context:  categoryContext[category],
		})
	}
	return out
}

func recommendedActions(level domain.RiskLevel) []string {
	switch level {
	case domain.RiskHigh, domain.RiskCritical:
		return []string{
			"Conduct immediate customer interview to verify account activity",
			"Consider temporary account restrictions until verification complete",
			"Document all customer responses for compliance review",
			"Escalate to fraud investigation team if concerns remain",
		}
	case domain.RiskMedium:
		return []string{
			"Schedule customer call within 24 hours",
			"Review transaction history for additional anomalies",
			"Verify customer contact information",
			"Monitor account for unusual activity",
		}
	default:
		return []string{
			"Document analysis results in customer file",
			"Continue standard account monitoring",
			"Consider routine follow-up in 30 days",
		}
	}
}

func nextSteps(level domain.RiskLevel) []string {
	switch level {
	case domain.RiskHigh, domain.RiskCritical:
		return []string{
			"Complete customer interview using generated questions",
			"Verify all suspicious transactions with customer",
			"Update customer risk profile based on findings",
			"Coordinate with fraud prevention team if needed",
		}
	case domain.RiskMedium:
		return []string{
			"Conduct customer verification call",
			"Review customer explanations for any red flags",
			"Update account notes with interview results",
			"Schedule follow-up review in 7-14 days",
		}
	default:
		return []string{
			"Complete routine verification if desired",
			"File analysis results for record keeping",
			"Return to standard account monitoring",
		}
	}
}

// localAnalysis stands in for the text-generation client when it is
// unavailable. It carries no error marker.
func localAnalysis(customerID, formatted string) domain.AIAnalysis {
	return domain.AIAnalysis{
		Summary: fmt.Sprintf("Technical analysis completed for customer %s. Multiple risk indicators detected. Manual review recommended.", customerID),
		Questions: []string{
			"Can you verify your recent account activity and confirm all transactions?",
			"Have you noticed any unusual or unauthorized account access recently?",
			"Have you shared your account credentials with anyone or accessed your account from new devices?",
			"Can you confirm your current contact information and verify any recent changes?",
			"Have you received any suspicious communications claiming to be from our bank?",
		},
		RiskLevel: llm.HeuristicRiskLevel(formatted),
	}
}

// FallbackReport is the complete report returned when analysis of a found
// customer fails
func FallbackReport(customerID string, cause error, now time.Time) *domain.AnalysisReport {
	return &domain.AnalysisReport{
		ReportID:        uuid.New(),
		CustomerID:      customerID,
		RiskLevel:       domain.RiskMedium,
		ConfidenceScore: 0.3,
		KeyFindings: []string{
			"Analysis error occurred: " + cause.Error(),
			"Manual review required",
		},
		RedFlags: []string{"Technical analysis failure"},
		Summary:  fmt.Sprintf("Unable to complete automated analysis for customer %s. Manual review recommended.", customerID),
		Questions: []domain.InvestigativeQuestion{
			{
				Question: "Do you believe you are investing with a real firm?",
				Category: domain.CategoryIdentityVerification,
				Priority: 5,
				Context:  "Investment legitimacy assessment",
			},
			{
				Question: "Was the contact initiated by you or did they contact you first?",
				Category: domain.CategoryBehavioralAnalysis,
				Priority: 5,
				Context:  "Contact initiation assessment",
			},
			{
				Question: "Is there any remote access to your computer or are you currently on a call with them?",
				Category: domain.CategoryTechnicalIndicators,
				Priority: 5,
				Context:  "Remote access indicator check",
			},
			{
				Question: "Are there multiple payments set up or any future dated payments?",
				Category: domain.CategoryTransactionPattern,
				Priority: 4,
				Context:  "Payment pattern assessment",
			},
			{
				Question: "Are you hesitant to believe this might be a scam?",
				Category: domain.CategoryBehavioralAnalysis,
				Priority: 4,
				Context:  "Scam resistance assessment",
			},
		},
		RecommendedActions: []string{"Manual fraud analysis required", "Contact technical support"},
		NextSteps:          []string{"Escalate to manual review process"},
		CreatedAt:          now,
	}
}
