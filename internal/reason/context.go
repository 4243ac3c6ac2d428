package reason

import (
	"fmt"
	"strings"

	"github.com/sells-group/jackpot-predict/internal/model"
)

// ContextInjection renders prior turns into the text block injected into
// specialist and Oracle prompts. It is a pure function of its inputs: the
// same analyses, turn number, and thinker insight always produce identical
// output. This block is the only channel by which later turns learn about
// earlier turns.
//
// The thinker parameter is the background deep-analysis result for the
// previous turn, or nil if it has not completed (or failed).
func ContextInjection(analyses []model.TurnAnalysis, currentTurn int, thinker *model.ThinkerInsight) string {
	if len(analyses) == 0 && thinker == nil {
		return ""
	}

	var b strings.Builder

	if thinker != nil {
		fmt.Fprintf(&b, "DEEP ANALYSIS (clue %d):\n", thinker.TurnNumber)
		fmt.Fprintf(&b, "  Top guess: %s (%d%%)\n", thinker.TopGuess, thinker.Confidence)
		if thinker.Reasoning != "" {
			fmt.Fprintf(&b, "  Reasoning: %s\n", thinker.Reasoning)
		}
		if len(thinker.KeyPatterns) > 0 {
			fmt.Fprintf(&b, "  Patterns: %s\n", strings.Join(thinker.KeyPatterns, ", "))
		}
		if thinker.WordplayNotes != "" {
			fmt.Fprintf(&b, "  Wordplay: %s\n", thinker.WordplayNotes)
		}
		b.WriteString("\n")
	}

	if len(analyses) == 0 {
		return b.String()
	}

	b.WriteString("PRIOR ANALYSIS:\n\n")

	for _, a := range analyses {
		fmt.Fprintf(&b, "=== CLUE %d: %q ===\n", a.TurnNumber, a.ClueText)

		for _, s := range a.Snapshots {
			insight := truncate(strings.ReplaceAll(s.Insight, `"`, "'"), 40)
			fmt.Fprintf(&b, "  %s: %s (%d%%) - %q\n",
				s.AgentName, s.Answer, int(s.Confidence*100), insight)
		}

		fmt.Fprintf(&b, "  >> VOTE: %s (%d/%d agree, %s) %s\n",
			a.TopAnswer, len(a.TopAgents), model.SpecialistCount,
			a.AgreementStrength, trendMarker(a.ConfidenceDelta))

		if a.Oracle != nil && len(a.Oracle.Top3) > 0 {
			top := a.Oracle.Top3[0]
			fmt.Fprintf(&b, "  >> ORACLE: %s (%d%%) - %q\n",
				top.Answer, top.Confidence, a.Oracle.KeyTheme)
		}

		b.WriteString("\n")
	}

	if len(analyses) >= 2 {
		fmt.Fprintf(&b, "[TREND: %s]\n\n", summarizeEvolution(analyses))
	}

	return b.String()
}

// trendMarker renders a confidence delta as a compact marker. A delta of
// exactly zero means a first observation, not stability.
func trendMarker(delta float64) string {
	switch {
	case delta > 0.05:
		return fmt.Sprintf("[+%.0f%%]", delta*100)
	case delta < -0.05:
		return fmt.Sprintf("[%.0f%%]", delta*100)
	case delta == 0:
		return "[NEW]"
	default:
		return "[stable]"
	}
}

// summarizeEvolution describes the hypothesis arc from the first analysis
// to the latest in a single short line.
func summarizeEvolution(analyses []model.TurnAnalysis) string {
	first := analyses[0]
	last := analyses[len(analyses)-1]

	if !strings.EqualFold(first.TopAnswer, last.TopAnswer) {
		return fmt.Sprintf("Shifted from %s to %s", first.TopAnswer, last.TopAnswer)
	}

	delta := last.TopConfidence - first.TopConfidence
	switch {
	case delta > 0.1:
		return fmt.Sprintf("%s strengthening (+%.0f%% over %d clues)", first.TopAnswer, delta*100, len(analyses))
	case delta < -0.1:
		return fmt.Sprintf("%s weakening (%.0f%% over %d clues)", first.TopAnswer, delta*100, len(analyses))
	default:
		return fmt.Sprintf("%s holding steady across %d clues", first.TopAnswer, len(analyses))
	}
}
