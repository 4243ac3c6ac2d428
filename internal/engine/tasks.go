package engine

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/session"
)

// ThinkerAgent produces the slow background analysis for a turn.
type ThinkerAgent interface {
	AnalyzeDeep(ctx context.Context, clues []string, turn int, prior *model.ThinkerInsight) (*model.ThinkerInsight, error)
}

type taskKey struct {
	sessionID string
	turn      int
}

type thinkerTask struct {
	done    chan struct{}
	insight *model.ThinkerInsight
	err     error
}

// ThinkerRegistry tracks in-flight background analyses keyed by
// (session, turn). Tasks are fired by the turn flow and merged into the
// session by a later turn or poll; a discarded task runs to completion but
// its result is never merged.
type ThinkerRegistry struct {
	thinker ThinkerAgent

	mu    sync.Mutex
	tasks map[taskKey]*thinkerTask
}

func NewThinkerRegistry(thinker ThinkerAgent) *ThinkerRegistry {
	return &ThinkerRegistry{
		thinker: thinker,
		tasks:   make(map[taskKey]*thinkerTask),
	}
}

// Fire launches a detached background analysis for the turn. At most one
// task per (session, turn) is ever launched; the turn response path never
// waits on it, so the goroutine outlives the request context.
func (r *ThinkerRegistry) Fire(ctx context.Context, sessionID string, turn int, clues []string, prior *model.ThinkerInsight) {
	if r.thinker == nil {
		return
	}

	key := taskKey{sessionID: sessionID, turn: turn}
	r.mu.Lock()
	if _, exists := r.tasks[key]; exists {
		r.mu.Unlock()
		return
	}
	t := &thinkerTask{done: make(chan struct{})}
	r.tasks[key] = t
	r.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	cluesCopy := slices.Clone(clues)

	go func() {
		defer close(t.done)
		insight, err := r.thinker.AnalyzeDeep(bg, cluesCopy, turn, prior)
		if err != nil {
			t.err = err
			zap.L().Warn("engine: background analysis failed",
				zap.String("session_id", sessionID),
				zap.Int("turn", turn),
				zap.Error(err),
			)
			return
		}
		t.insight = insight
	}()
}

// TryMerge merges the completed analysis for the turn into the session
// without blocking. Returns true when the session holds an insight for the
// turn afterwards. A task that failed is dropped and the turn's slot stays
// empty.
func (r *ThinkerRegistry) TryMerge(sess *session.Session, turn int) bool {
	if sess.ThinkerInsightFor(turn) != nil {
		return true
	}

	key := taskKey{sessionID: sess.ID, turn: turn}
	r.mu.Lock()
	t := r.tasks[key]
	r.mu.Unlock()
	if t == nil {
		return false
	}

	select {
	case <-t.done:
	default:
		return false
	}

	r.mu.Lock()
	delete(r.tasks, key)
	r.mu.Unlock()

	if t.err != nil || t.insight == nil {
		return false
	}
	sess.InsertThinkerInsight(*t.insight)
	return true
}

// Pending reports whether a task for the turn is still in flight.
func (r *ThinkerRegistry) Pending(sessionID string, turn int) bool {
	r.mu.Lock()
	t := r.tasks[taskKey{sessionID: sessionID, turn: turn}]
	r.mu.Unlock()
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Discard forgets every task for a session. In-flight goroutines run to
// completion but their results are never merged.
func (r *ThinkerRegistry) Discard(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.tasks {
		if k.sessionID == sessionID {
			delete(r.tasks, k)
		}
	}
}
