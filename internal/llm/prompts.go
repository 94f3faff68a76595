package llm

import (
	"fmt"
	"strings"
)

const narrativeSystemPrompt = `You are a fraud analyst. Analyze the customer data and provide ONLY a summary of key findings.
Do NOT generate questions. Focus on describing risk patterns and fraud indicators for analyst review.
Keep the summary concise and professional. Do NOT mention specific system names.
Respond with only the summary text, no JSON formatting needed.`

const followupSystemPrompt = `You are helping a banker generate follow-up questions for a fraud investigation.
Based on the analysis and conversation context, suggest 3-5 specific follow-up questions
that will help gather more information or clarify suspicious activities.

Return a JSON array of questions.`

func narrativeUserPrompt(customerID, formatted, analystContext string) string {
	var b strings.Builder
	b.WriteString("Analyze this customer data and provide a concise summary of key fraud risk factors:\n\n")
	fmt.Fprintf(&b, "Customer ID: %s\n", customerID)
	fmt.Fprintf(&b, "Data: %s\n\n", formatted)
	if analystContext != "" {
		fmt.Fprintf(&b, "Additional context: %s\n\n", analystContext)
	}
	b.WriteString("Provide only a summary of findings for analyst review.")
	return b.String()
}

func followupUserPrompt(customerID, summary, conversation string) string {
	return fmt.Sprintf(
		"Customer: %s\nAnalysis Summary: %s\nConversation Context: %s\n\nGenerate 3-5 relevant follow-up questions as a JSON array.",
		customerID, summary, conversation,
	)
}
