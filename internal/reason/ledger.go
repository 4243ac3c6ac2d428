package reason

import (
	"strings"

	"github.com/sells-group/jackpot-predict/internal/model"
)

// UpdateLedger records the turn's winner (and runner-up, when present) in
// the session's hypothesis ledger, keyed by lowercased answer.
func UpdateLedger(ledger model.HypothesisLedger, analysis model.TurnAnalysis) {
	key := strings.ToLower(analysis.TopAnswer)
	ledger[key] = append(ledger[key], analysis.TopConfidence)

	if analysis.AltAnswer != "" && analysis.AltConfidence > 0 {
		altKey := strings.ToLower(analysis.AltAnswer)
		ledger[altKey] = append(ledger[altKey], analysis.AltConfidence)
	}
}

// Evolution formats the ledger for reporting: each hypothesis with its
// confidence history and overall trend.
func Evolution(ledger model.HypothesisLedger) map[string]model.HypothesisTrend {
	out := make(map[string]model.HypothesisTrend, len(ledger))
	for answer, history := range ledger {
		out[answer] = model.HypothesisTrend{
			History: history,
			Trend:   trendLabel(history),
		}
	}
	return out
}

func trendLabel(history []float64) string {
	if len(history) < 2 {
		return "new"
	}
	delta := history[len(history)-1] - history[0]
	switch {
	case delta > 0.1:
		return "rising"
	case delta < -0.1:
		return "falling"
	default:
		return "stable"
	}
}
