package vote

import (
	"fmt"

	"github.com/sells-group/jackpot-predict/internal/model"
)

// ShouldGuess decides whether the player should lock in the recommended
// answer now. Turn 5 always guesses: there is nothing to wait for. Earlier
// turns require both the confidence and the agreement threshold for that
// turn to be met.
func (e *Engine) ShouldGuess(vr model.VotingResult, turn int) (bool, string) {
	if turn >= model.MaxTurns {
		return true, "Last clue - must guess now"
	}

	agreeing := 0
	if len(vr.Clusters) > 0 {
		agreeing = len(vr.Clusters[0].MemberAgents)
	}

	th := e.tables.ThresholdFor(turn)
	if vr.RecommendedConfidence >= th.MinConfidence &&
		vr.AgreementStrength.Rank() >= th.MinAgreement.Rank() {
		return true, fmt.Sprintf("%d agents agree at %.0f%% confidence", agreeing, vr.RecommendedConfidence*100)
	}

	return false, fmt.Sprintf("Confidence %.0f%% - wait for more clues", vr.RecommendedConfidence*100)
}
