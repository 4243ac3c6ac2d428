// Package session owns per-puzzle state: the clue list, accumulated turn
// analyses, the hypothesis ledger, and the Thinker's cross-turn context.
// A session lives for one puzzle attempt and dies on reset or idle expiry.
package session

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jackpot-predict/internal/model"
)

// Session is the durable state for one puzzle attempt. Turn-handling flows
// for a session are serialized by the caller; only ThinkerContext insertion
// needs its own guard because a later poll may race a turn flow.
type Session struct {
	ID        string
	CreatedAt time.Time

	// Category is the plain category as submitted (person/place/thing);
	// CategoryHint is the hint string threaded to agents, which may carry
	// few-shot examples from the archive.
	Category     string
	CategoryHint string

	Clues    []string
	Analyses []model.TurnAnalysis
	Ledger   model.HypothesisLedger

	thinkerMu      sync.Mutex
	thinkerContext []model.ThinkerInsight

	lastActive time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		Ledger:     make(model.HypothesisLedger),
		lastActive: now,
	}
}

// Turn returns the 1-based number of the next turn, equal to the number of
// clues recorded plus one.
func (s *Session) Turn() int {
	return len(s.Clues) + 1
}

// AddClue appends the turn's clue. The clue list is capped at the puzzle
// length; a sixth clue is an invariant violation.
func (s *Session) AddClue(clue string) error {
	if len(s.Clues) >= model.MaxTurns {
		return eris.Errorf("session %s: puzzle already has %d clues", s.ID, model.MaxTurns)
	}
	s.Clues = append(s.Clues, clue)
	return nil
}

// RecordAnalysis appends the turn's analysis and updates the ledger.
func (s *Session) RecordAnalysis(a model.TurnAnalysis) {
	s.Analyses = append(s.Analyses, a)
}

// InsertThinkerInsight merges a completed background analysis. The insert
// is idempotent per turn number: the first result for a turn wins and any
// later duplicate is a no-op. Safe under concurrent polls.
func (s *Session) InsertThinkerInsight(insight model.ThinkerInsight) bool {
	s.thinkerMu.Lock()
	defer s.thinkerMu.Unlock()

	for _, existing := range s.thinkerContext {
		if existing.TurnNumber == insight.TurnNumber {
			return false
		}
	}
	s.thinkerContext = append(s.thinkerContext, insight)
	return true
}

// ThinkerInsightFor returns the recorded insight for the given turn, or nil.
func (s *Session) ThinkerInsightFor(turn int) *model.ThinkerInsight {
	s.thinkerMu.Lock()
	defer s.thinkerMu.Unlock()

	for i := range s.thinkerContext {
		if s.thinkerContext[i].TurnNumber == turn {
			insight := s.thinkerContext[i]
			return &insight
		}
	}
	return nil
}

// ThinkerInsights returns a copy of all recorded insights in merge order.
func (s *Session) ThinkerInsights() []model.ThinkerInsight {
	s.thinkerMu.Lock()
	defer s.thinkerMu.Unlock()

	out := make([]model.ThinkerInsight, len(s.thinkerContext))
	copy(out, s.thinkerContext)
	return out
}

// Touch marks the session active, deferring idle expiry.
func (s *Session) Touch(now time.Time) {
	s.lastActive = now
}

// IdleSince reports how long the session has been inactive.
func (s *Session) IdleSince(now time.Time) time.Duration {
	return now.Sub(s.lastActive)
}
