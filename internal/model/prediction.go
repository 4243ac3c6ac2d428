package model

import "time"

// MaxTurns is the number of clues in a puzzle. Turn numbers are 1-based.
const MaxTurns = 5

// SpecialistCount is the size of the fast-agent roster.
const SpecialistCount = 5

// Prediction is a single specialist's answer for one turn. Immutable once
// returned by the agent.
type Prediction struct {
	Answer     string        `json:"answer"`
	Confidence float64       `json:"confidence"` // 0.0 to 1.0
	Reasoning  string        `json:"reasoning"`  // truncated to ~50 chars
	AgentName  string        `json:"agent_name"`
	Latency    time.Duration `json:"latency_ms"`
}

// Agreement buckets how many specialists landed on the winning cluster.
type Agreement string

const (
	AgreementNone     Agreement = "none"
	AgreementWeak     Agreement = "weak"
	AgreementModerate Agreement = "moderate"
	AgreementStrong   Agreement = "strong"
)

// Rank orders agreement strengths: none < weak < moderate < strong.
func (a Agreement) Rank() int {
	switch a {
	case AgreementWeak:
		return 1
	case AgreementModerate:
		return 2
	case AgreementStrong:
		return 3
	default:
		return 0
	}
}

// AgreementForCount maps the winning cluster's member count to a bucket.
func AgreementForCount(n int) Agreement {
	switch {
	case n >= 4:
		return AgreementStrong
	case n >= 2:
		return AgreementModerate
	case n == 1:
		return AgreementWeak
	default:
		return AgreementNone
	}
}

// VoteCluster groups specialists whose normalized answers matched exactly.
type VoteCluster struct {
	CanonicalAnswer    string   `json:"canonical_answer"` // raw spelling from the first-seen member
	TotalWeightedVotes float64  `json:"total_weighted_votes"`
	MemberAgents       []string `json:"member_agents"`
	AvgConfidence      float64  `json:"avg_confidence"` // unweighted mean
}

// VotingResult is the weighted-vote recommendation for one turn.
type VotingResult struct {
	RecommendedPick       string        `json:"recommended_pick"`
	RecommendedConfidence float64       `json:"recommended_confidence"`
	AgreementStrength     Agreement     `json:"agreement_strength"`
	KeyInsight            string        `json:"key_insight"`
	Clusters              []VoteCluster `json:"clusters"` // sorted by weighted votes, descending
}
