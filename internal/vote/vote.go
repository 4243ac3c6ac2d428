package vote

import (
	"sort"
	"strings"

	"github.com/sells-group/jackpot-predict/internal/model"
)

// Engine performs weighted voting over specialist predictions.
type Engine struct {
	tables Tables
}

// NewEngine creates a voting engine with the given tables.
func NewEngine(tables Tables) *Engine {
	return &Engine{tables: tables}
}

// NewDefaultEngine creates a voting engine with the embedded tables.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultTables())
}

// Normalize canonicalizes an answer for clustering: lowercase, trimmed, with
// a single leading article removed. No fuzzy or semantic matching.
func Normalize(answer string) string {
	n := strings.ToLower(strings.TrimSpace(answer))
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(n, article) {
			n = strings.TrimSpace(strings.TrimPrefix(n, article))
			break
		}
	}
	return n
}

// agentOrder returns the agents present in preds in a deterministic order:
// roster order first, then any unknown names sorted.
func (e *Engine) agentOrder(preds map[string]*model.Prediction) []string {
	seen := make(map[string]bool, len(preds))
	var order []string
	for _, name := range e.tables.Roster {
		if _, ok := preds[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range preds {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

// OrderedAgents returns the deterministic iteration order used for
// clustering and snapshotting: roster order first, then extras sorted.
func OrderedAgents(preds map[string]*model.Prediction) []string {
	return NewDefaultEngine().agentOrder(preds)
}

// Vote clusters the turn's predictions by normalized answer and ranks the
// clusters by turn-weighted votes. Absent (nil) predictions are dropped;
// voting on zero predictions degrades to an "Unknown" pick rather than
// erroring.
func (e *Engine) Vote(preds map[string]*model.Prediction, turn int) model.VotingResult {
	weights := e.tables.WeightsFor(turn)

	type cluster struct {
		canonical string
		members   []string
		total     float64
		confSum   float64
	}

	byNorm := make(map[string]*cluster)
	var ordered []*cluster

	for _, name := range e.agentOrder(preds) {
		pred := preds[name]
		if pred == nil {
			continue
		}

		norm := Normalize(pred.Answer)
		c, ok := byNorm[norm]
		if !ok {
			c = &cluster{canonical: pred.Answer}
			byNorm[norm] = c
			ordered = append(ordered, c)
		}

		weight, ok := weights[name]
		if !ok {
			weight = 1.0
		}
		c.members = append(c.members, name)
		c.total += weight * pred.Confidence
		c.confSum += pred.Confidence
	}

	if len(ordered) == 0 {
		return model.VotingResult{
			RecommendedPick:   "Unknown",
			AgreementStrength: model.AgreementNone,
			KeyInsight:        "No valid predictions",
		}
	}

	clusters := make([]model.VoteCluster, 0, len(ordered))
	for _, c := range ordered {
		clusters = append(clusters, model.VoteCluster{
			CanonicalAnswer:    c.canonical,
			TotalWeightedVotes: c.total,
			MemberAgents:       c.members,
			AvgConfidence:      c.confSum / float64(len(c.members)),
		})
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].TotalWeightedVotes != clusters[j].TotalWeightedVotes {
			return clusters[i].TotalWeightedVotes > clusters[j].TotalWeightedVotes
		}
		return clusters[i].CanonicalAnswer < clusters[j].CanonicalAnswer
	})

	winner := clusters[0]

	// Key insight: reasoning of the most confident agreeing agent.
	keyInsight := "No insight"
	bestConf := -1.0
	for _, name := range winner.MemberAgents {
		if pred := preds[name]; pred != nil && pred.Confidence > bestConf {
			bestConf = pred.Confidence
			keyInsight = pred.Reasoning
		}
	}

	return model.VotingResult{
		RecommendedPick:       winner.CanonicalAnswer,
		RecommendedConfidence: winner.AvgConfidence,
		AgreementStrength:     model.AgreementForCount(len(winner.MemberAgents)),
		KeyInsight:            keyInsight,
		Clusters:              clusters,
	}
}
