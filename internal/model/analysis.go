package model

import "time"

// OracleGuess is one ranked guess from the Oracle meta-synthesizer.
type OracleGuess struct {
	Answer      string `json:"answer"`
	Confidence  int    `json:"confidence"` // 0-100
	Explanation string `json:"explanation"`
}

// OracleSynthesis is the Oracle's output for one turn: 1-3 ranked guesses
// plus commentary.
type OracleSynthesis struct {
	Top3      []OracleGuess `json:"top_3"`
	KeyTheme  string        `json:"key_theme"`
	BlindSpot string        `json:"blind_spot"`
	Latency   time.Duration `json:"latency_ms"`
}

// ThinkerInsight is the slow deep-analysis result for one turn. Produced
// asynchronously and merged into the session after the turn that fired it.
type ThinkerInsight struct {
	TurnNumber     int           `json:"turn_number"`
	TopGuess       string        `json:"top_guess"`
	Confidence     int           `json:"confidence"` // 0-100
	Reasoning      string        `json:"reasoning"`
	KeyPatterns    []string      `json:"key_patterns"`
	RefinedGuesses []OracleGuess `json:"refined_guesses"` // at most 3
	NarrativeArc   string        `json:"narrative_arc"`
	WordplayNotes  string        `json:"wordplay_notes"`
	Latency        time.Duration `json:"latency_ms"`
}

// AgentSnapshot is a compressed per-agent record kept inside a TurnAnalysis.
type AgentSnapshot struct {
	AgentName  string  `json:"agent_name"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Insight    string  `json:"insight"` // reasoning truncated to ~40 chars
}

// TurnAnalysis is the durable record of one turn. Appended once per turn and
// never mutated afterward, except to attach a same-turn Oracle synthesis that
// arrives slightly later.
type TurnAnalysis struct {
	TurnNumber int    `json:"turn_number"`
	ClueText   string `json:"clue_text"`

	TopAnswer     string   `json:"top_answer"`
	TopConfidence float64  `json:"top_confidence"`
	TopAgents     []string `json:"top_agents"`

	AltAnswer     string   `json:"alt_answer,omitempty"`
	AltConfidence float64  `json:"alt_confidence,omitempty"`
	AltAgents     []string `json:"alt_agents,omitempty"`

	ConfidenceDelta   float64         `json:"confidence_delta"` // vs. prior turn's top confidence
	Snapshots         []AgentSnapshot `json:"snapshots"`
	AgreementStrength Agreement       `json:"agreement_strength"`
	Oracle            *OracleSynthesis `json:"oracle,omitempty"`
}

// HypothesisLedger maps a normalized answer to the confidence values observed
// for it across turns, in turn order.
type HypothesisLedger map[string][]float64

// HypothesisTrend is the per-answer evolution summary derived from the ledger.
type HypothesisTrend struct {
	History []float64 `json:"history"`
	Trend   string    `json:"trend"` // new | rising | falling | stable
}

// TurnResult is what one orchestrated turn returns to the caller.
type TurnResult struct {
	SessionID  string `json:"session_id"`
	TurnNumber int    `json:"turn_number"`

	Predictions map[string]*Prediction `json:"predictions"`
	Voting      VotingResult           `json:"voting"`

	ShouldGuess bool   `json:"should_guess"`
	Rationale   string `json:"rationale"`

	Oracle *OracleSynthesis `json:"oracle,omitempty"`

	AgentsResponded int           `json:"agents_responded"`
	AgentsFailed    []string      `json:"agents_failed"`
	TotalLatency    time.Duration `json:"total_latency_ms"`

	Evolution map[string]HypothesisTrend `json:"evolution,omitempty"`
}
