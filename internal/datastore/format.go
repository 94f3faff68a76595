package datastore

import (
	"fmt"
	"strings"

	"github.com/banking/fraud-analysis/internal/domain"
)

const noDataText = "No customer data available"

var indicatorLabels = map[domain.FlagLevel]string{
	domain.FlagHigh:   "High Risk Indicator",
	domain.FlagMedium: "Medium Risk Indicator",
	domain.FlagLow:    "Low Risk Indicator",
}

// FormatForAnalysis renders a customer's risk posture as plain text for the
// narrative model. Screening sources are reduced to generic indicator labels;
// their names never appear in the output.
func FormatForAnalysis(rec *domain.CustomerRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: customer record is required", domain.ErrValidation)
	}
	if rec.IsEmpty() {
		return noDataText, nil
	}

	var labels []string
	for _, nf := range rec.Flags.Ordered() {
		if label, ok := indicatorLabels[nf.Flag.Level]; ok {
			labels = append(labels, label)
		}
	}

	found := "None"
	if len(labels) > 0 {
		found = strings.Join(labels, ", ")
	}

	posture := "minimal"
	switch {
	case len(labels) > 2:
		posture = "multiple"
	case len(labels) > 0:
		posture = "some"
	}

	history := "No previous fraud cases on record."
	if rec.FraudCases30d > 0 {
		history = "Previous fraud activity detected."
	}

	var b strings.Builder
	b.WriteString("Customer Analysis Report:\n\n")
	fmt.Fprintf(&b, "Customer ID: %s\n", rec.CustomerID)
	fmt.Fprintf(&b, "Account Details: BSB %s, Account %s\n\n", orNA(rec.Account.BSB), orNA(rec.Account.Account))
	b.WriteString("Risk Assessment Summary:\n")
	fmt.Fprintf(&b, "- Total Risk Indicators Detected: %d\n", len(labels))
	fmt.Fprintf(&b, "- Risk Levels Found: %s\n\n", found)
	b.WriteString("Fraud History:\n")
	fmt.Fprintf(&b, "- Previous Fraud Cases: %d in past 30 days\n\n", rec.FraudCases30d)
	b.WriteString("Analysis Notes:\n")
	fmt.Fprintf(&b, "Customer has %s risk indicators detected through automated screening systems.\n", posture)
	b.WriteString(history)
	b.WriteString("\n\nIMPORTANT: Generate customer-friendly questions only. Do NOT mention system names or technical terms.")

	return b.String(), nil
}
