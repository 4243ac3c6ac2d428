package engine

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/jackpot-predict/internal/model"
)

var (
	_ SpecialistAgent = (*mockSpecialist)(nil)
	_ OracleAgent     = (*mockOracle)(nil)
	_ ThinkerAgent    = (*mockThinker)(nil)
)

type mockSpecialist struct {
	mock.Mock
	name string
}

func (m *mockSpecialist) Name() string { return m.name }

func (m *mockSpecialist) Predict(ctx context.Context, clues []string, categoryHint, priorContext string) (*model.Prediction, error) {
	args := m.Called(ctx, clues, categoryHint, priorContext)
	if p := args.Get(0); p != nil {
		return p.(*model.Prediction), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) SynthesizeEarly(ctx context.Context, clues []string, turn int, prior []model.TurnAnalysis) (*model.OracleSynthesis, error) {
	args := m.Called(ctx, clues, turn, prior)
	if s := args.Get(0); s != nil {
		return s.(*model.OracleSynthesis), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOracle) Synthesize(ctx context.Context, preds map[string]*model.Prediction, vr model.VotingResult, clues []string, turn int, prior []model.TurnAnalysis) (*model.OracleSynthesis, error) {
	args := m.Called(ctx, preds, vr, clues, turn, prior)
	if s := args.Get(0); s != nil {
		return s.(*model.OracleSynthesis), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockThinker struct {
	mock.Mock
}

func (m *mockThinker) AnalyzeDeep(ctx context.Context, clues []string, turn int, prior *model.ThinkerInsight) (*model.ThinkerInsight, error) {
	args := m.Called(ctx, clues, turn, prior)
	if i := args.Get(0); i != nil {
		return i.(*model.ThinkerInsight), args.Error(1)
	}
	return nil, args.Error(1)
}

func prediction(agent, answer string, conf float64) *model.Prediction {
	return &model.Prediction{
		AgentName:  agent,
		Answer:     answer,
		Confidence: conf,
		Reasoning:  "because",
	}
}

// rosterOf builds a five-specialist roster where every agent returns the
// given answer with the given confidence.
func rosterOf(answer string, conf float64) []SpecialistAgent {
	names := []string{"lateral", "wordsmith", "popculture", "literal", "wildcard"}
	roster := make([]SpecialistAgent, 0, len(names))
	for _, n := range names {
		sp := &mockSpecialist{name: n}
		sp.On("Predict", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(prediction(n, answer, conf), nil)
		roster = append(roster, sp)
	}
	return roster
}

func oracleSynthesis(answer string) *model.OracleSynthesis {
	return &model.OracleSynthesis{
		Top3: []model.OracleGuess{
			{Answer: answer, Confidence: 85, Explanation: "pattern fits"},
		},
		KeyTheme:  "games",
		BlindSpot: "None identified",
	}
}
