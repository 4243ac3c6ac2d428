// Package reason accumulates and compresses agent reasoning across clues.
// Each turn's predictions and vote are captured as a TurnAnalysis; the
// analyses are rendered back into a context block for later turns so that
// agents build on prior hypotheses instead of starting cold.
package reason

import (
	"unicode/utf8"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/vote"
)

const insightMaxLen = 50

// truncate caps s at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// CreateTurnAnalysis captures the outcome of one turn after voting. The
// confidence delta is measured against the previous analysis's top pick,
// or zero on the first turn.
func CreateTurnAnalysis(
	turn int,
	clueText string,
	preds map[string]*model.Prediction,
	vr model.VotingResult,
	prior []model.TurnAnalysis,
) model.TurnAnalysis {
	analysis := model.TurnAnalysis{
		TurnNumber:        turn,
		ClueText:          clueText,
		TopAnswer:         "Unknown",
		AgreementStrength: vr.AgreementStrength,
	}

	if len(vr.Clusters) > 0 {
		top := vr.Clusters[0]
		analysis.TopAnswer = top.CanonicalAnswer
		analysis.TopConfidence = top.AvgConfidence
		analysis.TopAgents = top.MemberAgents
	}
	if len(vr.Clusters) > 1 {
		alt := vr.Clusters[1]
		analysis.AltAnswer = alt.CanonicalAnswer
		analysis.AltConfidence = alt.AvgConfidence
		analysis.AltAgents = alt.MemberAgents
	}

	priorConf := 0.0
	if len(prior) > 0 {
		priorConf = prior[len(prior)-1].TopConfidence
	}
	analysis.ConfidenceDelta = analysis.TopConfidence - priorConf

	analysis.Snapshots = snapshotPredictions(preds)
	return analysis
}

// snapshotPredictions compresses predictions to storage form, iterating in
// the voting engine's deterministic agent order so repeated runs produce
// identical analyses.
func snapshotPredictions(preds map[string]*model.Prediction) []model.AgentSnapshot {
	snapshots := make([]model.AgentSnapshot, 0, len(preds))
	for _, name := range vote.OrderedAgents(preds) {
		pred := preds[name]
		if pred == nil {
			continue
		}
		insight := truncate(pred.Reasoning, insightMaxLen)
		snapshots = append(snapshots, model.AgentSnapshot{
			AgentName:  name,
			Answer:     pred.Answer,
			Confidence: pred.Confidence,
			Insight:    insight,
		})
	}
	return snapshots
}
