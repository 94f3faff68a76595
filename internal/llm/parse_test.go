package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredResponse_FencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n{\"summary\": \"Looks risky\", \"risk_level\": \"High\", \"questions\": [\"a\",\"b\",\"c\",\"d\",\"e\",\"f\"]}\n```\nThanks"

	got := ParseStructuredResponse(text)
	assert.Empty(t, got.Error)
	assert.Equal(t, "Looks risky", got.Summary)
	assert.Equal(t, "High", got.RiskLevel)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, got.Questions)
}

func TestParseStructuredResponse_SingleQuotes(t *testing.T) {
	got := ParseStructuredResponse("['Did you share a code?', 'Who called you?']")
	assert.Empty(t, got.Error)
	assert.Equal(t, []string{"Did you share a code?", "Who called you?"}, got.Items)
}

func TestParseStructuredResponse_ItemObjects(t *testing.T) {
	got := ParseStructuredResponse(`[{"question": "First?"}, "Second?", 3]`)
	assert.Equal(t, []string{"First?", "Second?", "3"}, got.Items)
}

func TestParseStructuredResponse_IsTotal(t *testing.T) {
	inputs := []string{
		"",
		"not json at all",
		"```json\n{broken",
		"42",
		`{"summary": "short", "questions": ["only one"]}`,
		"Don't panic",
	}

	for _, in := range inputs {
		got := ParseStructuredResponse(in)
		require.GreaterOrEqual(t, len(got.Questions), 5, "input %q", in)
		assert.NotEmpty(t, got.RiskLevel, "input %q", in)
	}
}

func TestParseStructuredResponse_TopsUpShortQuestionList(t *testing.T) {
	got := ParseStructuredResponse(`{"summary": "short", "questions": ["Who called you?", "Can you confirm your recent login locations?"]}`)

	assert.Empty(t, got.Error)
	assert.Equal(t, []string{
		"Who called you?",
		"Can you confirm your recent login locations?",
		genericQuestions[0],
		genericQuestions[1],
		genericQuestions[2],
	}, got.Questions)
}

func TestParseStructuredResponse_Fallback(t *testing.T) {
	got := ParseStructuredResponse("The customer seems fine.")

	assert.Equal(t, "Failed to parse AI response", got.Error)
	assert.Equal(t, "The customer seems fine.", got.RawContent)
	assert.Equal(t, "Analysis completed but response format was invalid", got.Summary)
	assert.Equal(t, "Medium", got.RiskLevel)
	assert.Equal(t, genericQuestions, got.Questions)
}

func TestExtractJSON_UnterminatedFenceKeepsText(t *testing.T) {
	assert.Equal(t, "```json {\"a\":1}", extractJSON("  ```json {\"a\":1}  "))
}
