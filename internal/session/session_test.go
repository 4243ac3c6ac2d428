package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/jackpot-predict/internal/model"
)

func TestSession_AddClue_CapsAtPuzzleLength(t *testing.T) {
	s := newSession("s1", time.Now())

	for i := 0; i < model.MaxTurns; i++ {
		require.NoError(t, s.AddClue("clue"))
		assert.Equal(t, i+2, s.Turn())
	}

	err := s.AddClue("one too many")
	require.Error(t, err)
	assert.Len(t, s.Clues, model.MaxTurns)
}

func TestSession_TurnNumbering(t *testing.T) {
	s := newSession("s1", time.Now())
	assert.Equal(t, 1, s.Turn())

	require.NoError(t, s.AddClue("first"))
	assert.Equal(t, 2, s.Turn())
}

func TestSession_InsertThinkerInsight_Idempotent(t *testing.T) {
	s := newSession("s1", time.Now())

	first := model.ThinkerInsight{TurnNumber: 1, TopGuess: "Bowling", Confidence: 70}
	duplicate := model.ThinkerInsight{TurnNumber: 1, TopGuess: "Darts", Confidence: 90}

	assert.True(t, s.InsertThinkerInsight(first))
	assert.False(t, s.InsertThinkerInsight(duplicate))

	got := s.ThinkerInsightFor(1)
	require.NotNil(t, got)
	assert.Equal(t, "Bowling", got.TopGuess) // first insert wins
	assert.Len(t, s.ThinkerInsights(), 1)
}

func TestSession_InsertThinkerInsight_ConcurrentPolls(t *testing.T) {
	s := newSession("s1", time.Now())

	var wg sync.WaitGroup
	inserted := make([]bool, 20)
	for i := range inserted {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inserted[i] = s.InsertThinkerInsight(model.ThinkerInsight{TurnNumber: 2, TopGuess: "X"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range inserted {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, s.ThinkerInsights(), 1)
}

func TestSession_ThinkerInsightFor_Absent(t *testing.T) {
	s := newSession("s1", time.Now())
	assert.Nil(t, s.ThinkerInsightFor(3))
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager(time.Minute)

	s1 := m.GetOrCreate("")
	require.NotEmpty(t, s1.ID)

	s2 := m.GetOrCreate(s1.ID)
	assert.Same(t, s1, s2)

	s3 := m.GetOrCreate("unknown-id")
	assert.NotEqual(t, s1.ID, s3.ID)
	assert.Equal(t, 2, m.Len())
}

func TestManager_ExpiryOnAccess(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	s1 := m.GetOrCreate("")

	// Within TTL the same session comes back.
	now = now.Add(30 * time.Second)
	assert.Same(t, s1, m.GetOrCreate(s1.ID))

	// Idle past TTL: a fresh session replaces it.
	now = now.Add(2 * time.Minute)
	s2 := m.GetOrCreate(s1.ID)
	assert.NotEqual(t, s1.ID, s2.ID)

	_, err := m.Get(s1.ID)
	require.Error(t, err)
}

func TestManager_Get_Expired(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	s := m.GetOrCreate("")
	now = now.Add(2 * time.Minute)

	_, err := m.Get(s.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
	assert.Equal(t, 0, m.Len())
}

func TestManager_Sweep(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	stale := m.GetOrCreate("")
	now = now.Add(45 * time.Second)
	fresh := m.GetOrCreate("")

	now = now.Add(30 * time.Second) // stale idle 75s, fresh idle 30s
	assert.Equal(t, 1, m.Sweep())

	_, err := m.Get(stale.ID)
	require.Error(t, err)
	_, err = m.Get(fresh.ID)
	require.NoError(t, err)
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.GetOrCreate("")

	removed := m.Remove(s.ID)
	assert.Same(t, s, removed)
	assert.Nil(t, m.Remove(s.ID))
	assert.Equal(t, 0, m.Len())
}

func TestSession_TouchDefersExpiry(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	s := m.GetOrCreate("")

	// Keep touching every 45s; session must survive well past one TTL.
	for i := 0; i < 4; i++ {
		now = now.Add(45 * time.Second)
		require.Same(t, s, m.GetOrCreate(s.ID))
	}
}

func TestManager_OnRemove_ExplicitRemove(t *testing.T) {
	m := NewManager(time.Minute)

	var removed []string
	m.SetOnRemove(func(id string) { removed = append(removed, id) })

	s := m.GetOrCreate("")
	m.Remove(s.ID)
	assert.Equal(t, []string{s.ID}, removed)

	// Removing an unknown id must not fire the callback.
	m.Remove("no-such")
	assert.Len(t, removed, 1)
}

func TestManager_OnRemove_LazyExpiry(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	var removed []string
	m.SetOnRemove(func(id string) { removed = append(removed, id) })

	s1 := m.GetOrCreate("")
	now = now.Add(2 * time.Minute)

	// Expiry surfaced through GetOrCreate.
	s2 := m.GetOrCreate(s1.ID)
	assert.Equal(t, []string{s1.ID}, removed)

	// Expiry surfaced through Get.
	now = now.Add(2 * time.Minute)
	_, err := m.Get(s2.ID)
	require.Error(t, err)
	assert.Equal(t, []string{s1.ID, s2.ID}, removed)
}

func TestManager_OnRemove_Sweep(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	var removed []string
	m.SetOnRemove(func(id string) { removed = append(removed, id) })

	stale := m.GetOrCreate("")
	now = now.Add(45 * time.Second)
	fresh := m.GetOrCreate("")

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, []string{stale.ID}, removed)
	assert.NotContains(t, removed, fresh.ID)
}
