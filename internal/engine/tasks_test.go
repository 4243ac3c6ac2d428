package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/session"
)

func waitSettled(t *testing.T, r *ThinkerRegistry, sessionID string, turn int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !r.Pending(sessionID, turn)
	}, time.Second, 5*time.Millisecond)
}

func TestThinkerRegistry_FireOncePerTurn(t *testing.T) {
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Return(&model.ThinkerInsight{TurnNumber: 1, TopGuess: "Monopoly"}, nil)

	r := NewThinkerRegistry(thinker)
	r.Fire(context.Background(), "sess-1", 1, []string{"clue"}, nil)
	r.Fire(context.Background(), "sess-1", 1, []string{"clue"}, nil)
	waitSettled(t, r, "sess-1", 1)

	thinker.AssertNumberOfCalls(t, "AnalyzeDeep", 1)
}

func TestThinkerRegistry_TryMergeLifecycle(t *testing.T) {
	release := make(chan struct{})
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&model.ThinkerInsight{TurnNumber: 1, TopGuess: "Monopoly", Confidence: 70}, nil)

	r := NewThinkerRegistry(thinker)
	sess := session.NewManager(0).GetOrCreate("")

	r.Fire(context.Background(), sess.ID, 1, []string{"clue"}, nil)
	assert.False(t, r.TryMerge(sess, 1), "not merged while in flight")
	assert.True(t, r.Pending(sess.ID, 1))

	close(release)
	waitSettled(t, r, sess.ID, 1)

	assert.True(t, r.TryMerge(sess, 1))
	require.NotNil(t, sess.ThinkerInsightFor(1))

	// Second merge for the same turn is a no-op that still reports success.
	assert.True(t, r.TryMerge(sess, 1))
	insights := sess.ThinkerInsights()
	assert.Len(t, insights, 1)
}

func TestThinkerRegistry_FailedTask_LeavesSlotEmpty(t *testing.T) {
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Return(nil, assert.AnError)

	r := NewThinkerRegistry(thinker)
	sess := session.NewManager(0).GetOrCreate("")

	r.Fire(context.Background(), sess.ID, 1, []string{"clue"}, nil)
	waitSettled(t, r, sess.ID, 1)

	assert.False(t, r.TryMerge(sess, 1))
	assert.Nil(t, sess.ThinkerInsightFor(1))
}

func TestThinkerRegistry_Discard_NeverMerges(t *testing.T) {
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Return(&model.ThinkerInsight{TurnNumber: 1, TopGuess: "Monopoly"}, nil)

	r := NewThinkerRegistry(thinker)
	sess := session.NewManager(0).GetOrCreate("")

	r.Fire(context.Background(), sess.ID, 1, []string{"clue"}, nil)
	r.Discard(sess.ID)

	// Even once the goroutine finishes, the result is gone.
	assert.False(t, r.TryMerge(sess, 1))
	assert.False(t, r.Pending(sess.ID, 1))
	assert.Nil(t, sess.ThinkerInsightFor(1))
}

func TestThinkerRegistry_NilThinker_NoTasks(t *testing.T) {
	r := NewThinkerRegistry(nil)
	r.Fire(context.Background(), "sess-1", 1, []string{"clue"}, nil)
	assert.False(t, r.Pending("sess-1", 1))
}

func TestThinkerRegistry_SurvivesCancelledRequestContext(t *testing.T) {
	thinker := &mockThinker{}
	thinker.On("AnalyzeDeep", mock.Anything, mock.Anything, 1, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			assert.NoError(t, ctx.Err(), "detached task must not inherit request cancellation")
		}).
		Return(&model.ThinkerInsight{TurnNumber: 1, TopGuess: "Monopoly"}, nil)

	r := NewThinkerRegistry(thinker)
	ctx, cancel := context.WithCancel(context.Background())
	r.Fire(ctx, "sess-1", 1, []string{"clue"}, nil)
	cancel()
	waitSettled(t, r, "sess-1", 1)

	thinker.AssertNumberOfCalls(t, "AnalyzeDeep", 1)
}
