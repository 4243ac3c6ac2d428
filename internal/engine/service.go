package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/session"
	"github.com/sells-group/jackpot-predict/internal/store"
	"github.com/sells-group/jackpot-predict/internal/vote"
)

// fewShotLimit caps how many archived answers feed a category hint.
const fewShotLimit = 5

// PollStatus is the state of a background analysis as seen by a poll.
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollCompleted PollStatus = "completed"
)

// PollResult is the poll response for one (session, turn).
type PollResult struct {
	Status  PollStatus            `json:"status"`
	Insight *model.ThinkerInsight `json:"insight,omitempty"`
}

// Service is the session boundary exposed to the CLI and HTTP transports.
// It owns session lookup, serializes turn flows per session, and archives
// finished puzzles to the store on reset.
type Service struct {
	sessions *session.Manager
	orch     *Orchestrator
	thinkers *ThinkerRegistry
	archive  store.Store
	started  time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the orchestrator to session lifecycle. archive may be
// nil; hints then carry no few-shot examples and nothing is persisted.
func NewService(sessions *session.Manager, orch *Orchestrator, thinkers *ThinkerRegistry, archive store.Store) *Service {
	s := &Service{
		sessions: sessions,
		orch:     orch,
		thinkers: thinkers,
		archive:  archive,
		started:  time.Now(),
		locks:    make(map[string]*sync.Mutex),
	}
	// Every removal path (reset, lazy expiry, sweep) must release the
	// session's background tasks and turn lock, or they leak for the
	// lifetime of the process.
	sessions.SetOnRemove(s.cleanupSession)
	return s
}

func (s *Service) cleanupSession(sessionID string) {
	s.thinkers.Discard(sessionID)
	s.mu.Lock()
	delete(s.locks, sessionID)
	s.mu.Unlock()
}

// StartOrResume returns the id of the named session, creating a fresh one
// when the id is empty, unknown, or expired.
func (s *Service) StartOrResume(sessionID string) string {
	return s.sessions.GetOrCreate(sessionID).ID
}

// SubmitClue runs one turn for the session. Turns for the same session are
// serialized here; concurrent submissions for one session queue up.
func (s *Service) SubmitClue(ctx context.Context, sessionID, clueText, category string) (*model.TurnResult, error) {
	clueText = strings.TrimSpace(clueText)
	if clueText == "" {
		return nil, eris.New("engine: clue text is required")
	}

	sess := s.sessions.GetOrCreate(sessionID)
	unlock := s.lockSession(sess.ID)
	defer unlock()

	if category != "" && sess.Category == "" {
		sess.Category = category
		sess.CategoryHint = s.buildHint(ctx, category)
	}

	return s.orch.RunTurn(ctx, sess, clueText)
}

// Reset discards the session and returns a fresh session id. A session
// that completed at least one turn is archived as a historical example
// first. In-flight background analyses for the old session are discarded.
func (s *Service) Reset(ctx context.Context, sessionID string) string {
	if sessionID != "" {
		// Remove triggers cleanupSession for tasks and locks.
		if old := s.sessions.Remove(sessionID); old != nil {
			s.archivePuzzle(ctx, old)
		}
	}
	return s.sessions.GetOrCreate("").ID
}

// PollBackground reports the background analysis state for a turn,
// performing the at-most-once merge when the task has completed.
func (s *Service) PollBackground(sessionID string, turn int) (*PollResult, error) {
	if turn < 1 || turn > model.MaxTurns {
		return nil, eris.Errorf("engine: turn %d out of range 1-%d", turn, model.MaxTurns)
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.thinkers.TryMerge(sess, turn)
	if insight := sess.ThinkerInsightFor(turn); insight != nil {
		return &PollResult{Status: PollCompleted, Insight: insight}, nil
	}
	return &PollResult{Status: PollPending}, nil
}

// Stats is the health snapshot exposed by the API.
type Stats struct {
	ActiveSessions int           `json:"active_sessions"`
	Uptime         time.Duration `json:"uptime"`
}

// Snapshot sweeps expired sessions and reports service health.
func (s *Service) Snapshot() Stats {
	s.sessions.Sweep()
	return Stats{
		ActiveSessions: s.sessions.Len(),
		Uptime:         time.Since(s.started),
	}
}

// buildHint enriches a plain category with answers previously solved in
// that category. Archive failures degrade to the plain category.
func (s *Service) buildHint(ctx context.Context, category string) string {
	if s.archive == nil {
		return category
	}
	examples, err := s.archive.ListExamples(ctx, store.ExampleFilter{Category: category, Limit: fewShotLimit})
	if err != nil {
		zap.L().Warn("engine: few-shot lookup failed", zap.String("category", category), zap.Error(err))
		return category
	}
	if len(examples) == 0 {
		return category
	}
	answers := make([]string, 0, len(examples))
	for _, ex := range examples {
		answers = append(answers, ex.Answer)
	}
	return fmt.Sprintf("%s (previously solved in this category: %s)", category, strings.Join(answers, ", "))
}

func (s *Service) archivePuzzle(ctx context.Context, old *session.Session) {
	if s.archive == nil || len(old.Analyses) == 0 {
		return
	}
	final := old.Analyses[len(old.Analyses)-1]
	if final.TopAnswer == "" || final.TopAnswer == "Unknown" {
		return
	}

	id, err := s.archive.SaveExample(ctx, model.PuzzleExample{
		Answer:   vote.Normalize(final.TopAnswer),
		Category: old.Category,
		Clues:    slices.Clone(old.Clues),
		SolvedAt: time.Now().UTC(),
	})
	if err != nil {
		zap.L().Warn("engine: puzzle archive failed", zap.String("session_id", old.ID), zap.Error(err))
		return
	}
	zap.L().Info("engine: puzzle archived",
		zap.String("session_id", old.ID),
		zap.String("example_id", id),
		zap.String("answer", final.TopAnswer),
	)
}

func (s *Service) lockSession(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
