package questions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternsCatalog(t *testing.T) {
	require.Len(t, Patterns, 5)
	for _, p := range Patterns {
		assert.GreaterOrEqual(t, len(p.Phrasings), 5, p.Name)
	}
}

func TestBank_SelectQuestions(t *testing.T) {
	bank := NewBank(42)

	for i := 0; i < 20; i++ {
		selected := bank.SelectQuestions()
		require.Len(t, selected, 5)
		for idx, q := range selected {
			assert.Contains(t, Patterns[idx].Phrasings, q, "question %d must come from pattern %s", idx, Patterns[idx].Name)
		}
	}
}

func TestBank_SameSeedIsDeterministic(t *testing.T) {
	a := NewBank(7)
	b := NewBank(7)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.SelectQuestions(), b.SelectQuestions())
	}
}

func TestBank_NoInternalSystemNames(t *testing.T) {
	forbidden := []string{"BioCatch", "BIOCATCH", "Group IB", "GROUP_IB", "SASFM", "ISOD"}
	for _, p := range Patterns {
		for _, q := range p.Phrasings {
			for _, name := range forbidden {
				assert.NotContains(t, q, name)
			}
		}
	}
}

func TestCanonical(t *testing.T) {
	canonical := Canonical()
	require.Len(t, canonical, 5)
	assert.Equal(t, "Do you believe you are investing with a real firm?", canonical[0])
	assert.Equal(t, "Are you hesitant to believe this might be a scam?", canonical[4])
}
