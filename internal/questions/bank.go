// Package questions holds the fixed catalog of customer-facing investigative
// questions. Wording is owned here rather than generated, so that no internal
// screening system name can reach a customer call script.
package questions

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Pattern is one investigative intent with interchangeable phrasings.
// The first phrasing is the canonical one used by fallbacks.
type Pattern struct {
	Name      string
	Phrasings []string
}

// Patterns is the catalog, in the order questions are asked
var Patterns = []Pattern{
	{
		Name: "investment_legitimacy",
		Phrasings: []string{
			"Do you believe you are investing with a real firm?",
			"Are you confident this investment opportunity is legitimate?",
			"Do you trust that the company you're investing with is genuine?",
			"Have you verified that this investment firm is real and regulated?",
			"Are you certain the investment platform you're using is authentic?",
		},
	},
	{
		Name: "contact_initiation",
		Phrasings: []string{
			"Was the contact initiated by you or did they contact you first?",
			"Did you reach out to them, or did they approach you initially?",
			"Who made the first contact - you or the investment company?",
			"Did you find them through your own research, or did they contact you directly?",
			"Were you the one who started this conversation, or did they call you first?",
		},
	},
	{
		Name: "remote_access",
		Phrasings: []string{
			"Is there any remote access to your computer or are you currently on a call with them?",
			"Do they have access to your computer remotely, or are you speaking with them right now?",
			"Are you currently connected to them through your computer or on a phone call?",
			"Have you given them remote control of your device, or are you talking to them now?",
			"Is someone accessing your computer from their end, or are you in contact with them at the moment?",
		},
	},
	{
		Name: "payment_pattern",
		Phrasings: []string{
			"Are there multiple payments set up or any future dated payments?",
			"Have you scheduled several payments or any upcoming automatic transfers?",
			"Are there multiple transactions arranged or any payments planned for later?",
			"Have you set up recurring payments or any future-dated transfers?",
			"Are there several payment installments or any scheduled transactions coming up?",
		},
	},
	{
		Name: "scam_suspicion",
		Phrasings: []string{
			"Are you hesitant to believe this might be a scam?",
			"Do you have any doubts that this could potentially be fraudulent?",
			"Are you concerned this might not be legitimate?",
			"Do you suspect this could be a scam or fraud attempt?",
			"Are you questioning whether this investment opportunity is genuine?",
		},
	},
}

// Bank draws one phrasing per pattern. Safe for concurrent use.
type Bank struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBank creates a bank with an explicit seed; seed 0 seeds from the clock
func NewBank(seed int64) *Bank {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Bank{
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

// SelectQuestions returns exactly one phrasing per pattern, in pattern order
func (b *Bank) SelectQuestions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	selected := make([]string, 0, len(Patterns))
	for _, p := range Patterns {
		selected = append(selected, p.Phrasings[b.rng.IntN(len(p.Phrasings))])
	}
	return selected
}

// Canonical returns the first phrasing of every pattern
func Canonical() []string {
	out := make([]string, 0, len(Patterns))
	for _, p := range Patterns {
		out = append(out, p.Phrasings[0])
	}
	return out
}
