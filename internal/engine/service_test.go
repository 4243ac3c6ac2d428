package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/session"
	"github.com/sells-group/jackpot-predict/internal/store"
)

func newArchiveStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestService(t *testing.T, roster []SpecialistAgent, thinker ThinkerAgent, archive store.Store) *Service {
	t.Helper()
	registry := NewThinkerRegistry(thinker)
	orch := NewOrchestrator(roster, nil, registry)
	return NewService(session.NewManager(0), orch, registry, archive)
}

func TestService_SubmitClue_CreatesSession(t *testing.T) {
	svc := newTestService(t, rosterOf("Monopoly", 0.8), nil, nil)

	res, err := svc.SubmitClue(context.Background(), "", "Pass GO", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, 1, res.TurnNumber)
	assert.Equal(t, "Monopoly", res.Voting.RecommendedPick)

	// Same session id continues the puzzle.
	res2, err := svc.SubmitClue(context.Background(), res.SessionID, "Boardwalk", "")
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, res2.SessionID)
	assert.Equal(t, 2, res2.TurnNumber)
}

func TestService_SubmitClue_RequiresClueText(t *testing.T) {
	svc := newTestService(t, rosterOf("Monopoly", 0.8), nil, nil)

	_, err := svc.SubmitClue(context.Background(), "", "   ", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clue text is required")
}

func TestService_CategoryHint_EnrichedFromArchive(t *testing.T) {
	archive := newArchiveStore(t)
	_, err := archive.SaveExamples(context.Background(), []model.PuzzleExample{
		{Answer: "monopoly", Category: "thing", Clues: []string{"Pass GO"}},
		{Answer: "scrabble", Category: "thing", Clues: []string{"Triple word"}},
		{Answer: "paris", Category: "place", Clues: []string{"City of light"}},
	})
	require.NoError(t, err)

	roster := rosterOf("Clue", 0.6)
	svc := newTestService(t, roster, nil, archive)

	_, err = svc.SubmitClue(context.Background(), "", "Colonel Mustard", "thing")
	require.NoError(t, err)

	sp := roster[0].(*mockSpecialist)
	hint := sp.Calls[0].Arguments.String(2)
	assert.Contains(t, hint, "thing")
	assert.Contains(t, hint, "previously solved in this category")
	assert.Contains(t, hint, "monopoly")
	assert.Contains(t, hint, "scrabble")
	assert.NotContains(t, hint, "paris")
}

func TestService_CategoryHint_PlainWhenArchiveEmpty(t *testing.T) {
	roster := rosterOf("Clue", 0.6)
	svc := newTestService(t, roster, nil, newArchiveStore(t))

	_, err := svc.SubmitClue(context.Background(), "", "Colonel Mustard", "person")
	require.NoError(t, err)

	sp := roster[0].(*mockSpecialist)
	assert.Equal(t, "person", sp.Calls[0].Arguments.String(2))
}

func TestService_Reset_ArchivesCompletedPuzzle(t *testing.T) {
	archive := newArchiveStore(t)
	svc := newTestService(t, rosterOf("The Monopoly", 0.9), nil, archive)

	res, err := svc.SubmitClue(context.Background(), "", "Pass GO", "thing")
	require.NoError(t, err)

	newID := svc.Reset(context.Background(), res.SessionID)
	assert.NotEqual(t, res.SessionID, newID)

	examples, err := archive.ListExamples(context.Background(), store.ExampleFilter{})
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "monopoly", examples[0].Answer, "final pick stored normalized")
	assert.Equal(t, "thing", examples[0].Category)
	assert.Equal(t, []string{"Pass GO"}, examples[0].Clues)
}

func TestService_Reset_SkipsUnknownPick(t *testing.T) {
	archive := newArchiveStore(t)

	roster := make([]SpecialistAgent, 0, 5)
	for _, n := range []string{"lateral", "wordsmith", "popculture", "literal", "wildcard"} {
		sp := &mockSpecialist{name: n}
		sp.On("Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded)
		roster = append(roster, sp)
	}
	svc := newTestService(t, roster, nil, archive)

	res, err := svc.SubmitClue(context.Background(), "", "clue", "")
	require.NoError(t, err)

	svc.Reset(context.Background(), res.SessionID)

	n, err := archive.CountExamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "an unsolved puzzle is not archived")
}

func TestService_Reset_EmptySessionID_JustCreates(t *testing.T) {
	svc := newTestService(t, rosterOf("Monopoly", 0.8), nil, nil)

	id := svc.Reset(context.Background(), "")
	assert.NotEmpty(t, id)
}

func TestService_PollBackground_PendingThenCompleted(t *testing.T) {
	release := make(chan struct{})
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&model.ThinkerInsight{TurnNumber: 1, TopGuess: "Monopoly", Confidence: 70}, nil)

	svc := newTestService(t, rosterOf("Monopoly", 0.8), thinker, nil)

	res, err := svc.SubmitClue(context.Background(), "", "Pass GO", "")
	require.NoError(t, err)

	poll, err := svc.PollBackground(res.SessionID, 1)
	require.NoError(t, err)
	assert.Equal(t, PollPending, poll.Status)
	assert.Nil(t, poll.Insight)

	close(release)
	require.Eventually(t, func() bool {
		poll, err := svc.PollBackground(res.SessionID, 1)
		return err == nil && poll.Status == PollCompleted
	}, time.Second, 5*time.Millisecond)

	poll, err = svc.PollBackground(res.SessionID, 1)
	require.NoError(t, err)
	require.NotNil(t, poll.Insight)
	assert.Equal(t, "Monopoly", poll.Insight.TopGuess)
}

func TestService_PollBackground_UnknownSession(t *testing.T) {
	svc := newTestService(t, rosterOf("Monopoly", 0.8), nil, nil)

	_, err := svc.PollBackground("no-such-session", 1)
	require.Error(t, err)
}

func TestService_PollBackground_TurnOutOfRange(t *testing.T) {
	svc := newTestService(t, rosterOf("Monopoly", 0.8), nil, nil)
	id := svc.StartOrResume("")

	_, err := svc.PollBackground(id, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = svc.PollBackground(id, 6)
	require.Error(t, err)
}

func TestService_Snapshot(t *testing.T) {
	svc := newTestService(t, rosterOf("Monopoly", 0.8), nil, nil)
	svc.StartOrResume("")
	svc.StartOrResume("")

	stats := svc.Snapshot()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.GreaterOrEqual(t, stats.Uptime, time.Duration(0))
}

func TestService_ExpiredSession_ReleasesBackgroundState(t *testing.T) {
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Return(&model.ThinkerInsight{TurnNumber: 1, TopGuess: "Monopoly"}, nil)

	registry := NewThinkerRegistry(thinker)
	orch := NewOrchestrator(rosterOf("Monopoly", 0.8), nil, registry)
	svc := NewService(session.NewManager(time.Millisecond), orch, registry, nil)

	res, err := svc.SubmitClue(context.Background(), "", "Pass GO", "")
	require.NoError(t, err)
	waitSettled(t, registry, res.SessionID, 1)

	// The completed-but-unmerged task sits in the registry until the
	// session dies.
	registry.mu.Lock()
	pending := len(registry.tasks)
	registry.mu.Unlock()
	assert.Equal(t, 1, pending)

	// Idle past the TTL, then sweep via the health snapshot.
	time.Sleep(20 * time.Millisecond)
	svc.Snapshot()

	registry.mu.Lock()
	leaked := len(registry.tasks)
	registry.mu.Unlock()
	assert.Equal(t, 0, leaked, "dead session must leave no registry tasks")

	svc.mu.Lock()
	locks := len(svc.locks)
	svc.mu.Unlock()
	assert.Equal(t, 0, locks, "dead session must leave no turn lock")
}

func TestService_LazyExpiry_ReleasesBackgroundState(t *testing.T) {
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Return(&model.ThinkerInsight{TurnNumber: 1, TopGuess: "Monopoly"}, nil)

	registry := NewThinkerRegistry(thinker)
	orch := NewOrchestrator(rosterOf("Monopoly", 0.8), nil, registry)
	svc := NewService(session.NewManager(time.Millisecond), orch, registry, nil)

	res, err := svc.SubmitClue(context.Background(), "", "Pass GO", "")
	require.NoError(t, err)
	waitSettled(t, registry, res.SessionID, 1)

	time.Sleep(20 * time.Millisecond)

	// Resuming the expired id hands out a fresh session and cleans up the
	// dead one in passing.
	fresh := svc.StartOrResume(res.SessionID)
	assert.NotEqual(t, res.SessionID, fresh)

	registry.mu.Lock()
	leaked := len(registry.tasks)
	registry.mu.Unlock()
	assert.Equal(t, 0, leaked)
}

// gatedSpecialist blocks every Predict until released, reporting the clue
// it was dispatched with.
type gatedSpecialist struct {
	name    string
	entered chan string
	release chan struct{}
}

func (g *gatedSpecialist) Name() string { return g.name }

func (g *gatedSpecialist) Predict(ctx context.Context, clues []string, categoryHint, priorContext string) (*model.Prediction, error) {
	g.entered <- clues[len(clues)-1]
	<-g.release
	return &model.Prediction{AgentName: g.name, Answer: "Monopoly", Confidence: 0.8}, nil
}

func TestService_SubmitClue_SerializesTurnsPerSession(t *testing.T) {
	entered := make(chan string, 2*model.SpecialistCount)
	release := make(chan struct{})

	roster := make([]SpecialistAgent, 0, model.SpecialistCount)
	for _, name := range []string{"lateral", "wordsmith", "popculture", "literal", "wildcard"} {
		roster = append(roster, &gatedSpecialist{name: name, entered: entered, release: release})
	}
	registry := NewThinkerRegistry(nil)
	orch := NewOrchestrator(roster, nil, registry)
	svc := NewService(session.NewManager(0), orch, registry, nil)

	sessionID := svc.StartOrResume("")

	results := make(chan *model.TurnResult, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for _, clue := range []string{"Pass GO", "Boardwalk"} {
		go func(clue string) {
			defer wg.Done()
			res, err := svc.SubmitClue(context.Background(), sessionID, clue, "")
			assert.NoError(t, err)
			results <- res
		}(clue)
	}

	// Exactly one roster dispatch runs; all five entries carry the same
	// clue while the other submission waits on the session lock.
	firstClues := make(map[string]int)
	for i := 0; i < model.SpecialistCount; i++ {
		firstClues[<-entered]++
	}
	assert.Len(t, firstClues, 1, "one turn dispatches at a time")

	select {
	case clue := <-entered:
		t.Fatalf("second turn dispatched %q before the first finished", clue)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()
	close(results)

	turns := make(map[int]bool)
	for res := range results {
		turns[res.TurnNumber] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true}, turns)

	sess, err := svc.sessions.Get(sessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Clues, 2)
}
