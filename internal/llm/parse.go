package llm

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/banking/fraud-analysis/internal/domain"
)

const parseFailure = "Failed to parse AI response"

// genericQuestions fill parsed payloads that carry too few questions
var genericQuestions = []string{
	"Can you verify your recent account activity?",
	"Have you noticed any unauthorized transactions?",
	"Have you shared your account details with anyone recently?",
	"Are you aware of any suspicious communications?",
	"Can you confirm your recent login locations?",
}

// StructuredResponse is the decoded form of a model reply.
// Items holds the elements when the reply is a top-level JSON array.
type StructuredResponse struct {
	Summary    string   `json:"summary"`
	Questions  []string `json:"questions"`
	RiskLevel  string   `json:"risk_level"`
	Items      []string `json:"items,omitempty"`
	Error      string   `json:"error,omitempty"`
	RawContent string   `json:"raw_content,omitempty"`
}

// ParseStructuredResponse decodes a model reply. It never fails: anything that
// does not decode yields the fixed fallback payload with Error set.
func ParseStructuredResponse(text string) StructuredResponse {
	content := extractJSON(text)
	// models often answer with python-style quoting
	content = strings.ReplaceAll(content, "'", `"`)

	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return parseFallback(content)
	}

	resp := StructuredResponse{}
	switch v := decoded.(type) {
	case []any:
		resp.Items = stringify(v)
	case map[string]any:
		if s, ok := v["summary"].(string); ok {
			resp.Summary = s
		}
		if qs, ok := v["questions"].([]any); ok {
			resp.Questions = stringify(qs)
		}
		if r, ok := v["risk_level"].(string); ok {
			resp.RiskLevel = r
		}
	default:
		return parseFallback(content)
	}

	// top up short lists from the generic set
	for _, q := range genericQuestions {
		if len(resp.Questions) >= domain.MinQuestions {
			break
		}
		if !slices.Contains(resp.Questions, q) {
			resp.Questions = append(resp.Questions, q)
		}
	}
	if resp.RiskLevel == "" {
		resp.RiskLevel = string(domain.RiskMedium)
	}
	return resp
}

func extractJSON(text string) string {
	content := strings.TrimSpace(text)
	const marker = "```json"
	if i := strings.Index(content, marker); i >= 0 {
		start := i + len(marker)
		if end := strings.Index(content[start:], "```"); end >= 0 {
			content = strings.TrimSpace(content[start : start+end])
		}
	}
	return content
}

func parseFallback(content string) StructuredResponse {
	return StructuredResponse{
		Error:      parseFailure,
		RawContent: content,
		Summary:    "Analysis completed but response format was invalid",
		Questions:  append([]string(nil), genericQuestions...),
		RiskLevel:  string(domain.RiskMedium),
	}
}

func stringify(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if q, ok := v["question"].(string); ok && q != "" {
				out = append(out, q)
			}
		case nil:
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
