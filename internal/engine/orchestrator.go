// Package engine coordinates one puzzle turn: specialist fan-out, weighted
// voting, Oracle synthesis, and the detached background Thinker. It also
// exposes the session boundary consumed by the CLI and HTTP transports.
package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/reason"
	"github.com/sells-group/jackpot-predict/internal/session"
	"github.com/sells-group/jackpot-predict/internal/vote"
)

// SpecialistAgent is one persona prediction source.
type SpecialistAgent interface {
	Name() string
	Predict(ctx context.Context, clues []string, categoryHint, priorContext string) (*model.Prediction, error)
}

// OracleAgent synthesizes across agents and turns. Early mode sees no
// current-turn specialist output and may race the specialists; late mode
// runs after voting with the full turn in hand.
type OracleAgent interface {
	SynthesizeEarly(ctx context.Context, clues []string, turn int, prior []model.TurnAnalysis) (*model.OracleSynthesis, error)
	Synthesize(ctx context.Context, preds map[string]*model.Prediction, vr model.VotingResult, clues []string, turn int, prior []model.TurnAnalysis) (*model.OracleSynthesis, error)
}

// Orchestrator runs one turn end to end. It holds no per-session state;
// sessions are passed in and turn flows per session are serialized by the
// caller.
type Orchestrator struct {
	specialists []SpecialistAgent
	oracle      OracleAgent
	thinkers    *ThinkerRegistry
	votes       *vote.Engine
	oracleLate  bool
}

type OrchestratorOption func(*Orchestrator)

// WithLateOracle runs the Oracle after voting, feeding it the current
// turn's predictions. The default early mode races it with the specialists.
func WithLateOracle() OrchestratorOption {
	return func(o *Orchestrator) { o.oracleLate = true }
}

// WithVoteEngine overrides the default voting tables.
func WithVoteEngine(e *vote.Engine) OrchestratorOption {
	return func(o *Orchestrator) { o.votes = e }
}

func NewOrchestrator(specialists []SpecialistAgent, oracle OracleAgent, thinkers *ThinkerRegistry, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		specialists: specialists,
		oracle:      oracle,
		thinkers:    thinkers,
		votes:       vote.NewDefaultEngine(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunTurn appends the clue and coordinates the turn: all specialists fan
// out concurrently, the Oracle races them in early mode and is joined only
// after voting, and a background analysis for this turn is fired detached.
// Any subset of agents may fail; the turn still returns a well-formed
// result. The only errors returned are invariant violations (a sixth clue).
func (o *Orchestrator) RunTurn(ctx context.Context, sess *session.Session, clueText string) (*model.TurnResult, error) {
	start := time.Now()

	if err := sess.AddClue(clueText); err != nil {
		return nil, err
	}
	turn := len(sess.Clues)

	// A background analysis fired by the previous turn becomes visible to
	// this turn's context if it has finished by now. No blocking wait.
	if turn > 1 {
		o.thinkers.TryMerge(sess, turn-1)
	}

	priorInsight := sess.ThinkerInsightFor(turn - 1)
	priorContext := reason.ContextInjection(sess.Analyses, turn, priorInsight)

	clues := slices.Clone(sess.Clues)
	prior := slices.Clone(sess.Analyses)

	var oracleCh chan *model.OracleSynthesis
	if o.oracle != nil && !o.oracleLate {
		oracleCh = make(chan *model.OracleSynthesis, 1)
		go func() {
			oracleCh <- o.runOracle(func() (*model.OracleSynthesis, error) {
				return o.oracle.SynthesizeEarly(ctx, clues, turn, prior)
			}, turn)
		}()
	}

	o.thinkers.Fire(ctx, sess.ID, turn, clues, priorInsight)

	preds := make(map[string]*model.Prediction, len(o.specialists))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for _, sp := range o.specialists {
		g.Go(func() error {
			p, err := sp.Predict(gCtx, clues, sess.CategoryHint, priorContext)
			if err != nil {
				zap.L().Warn("engine: specialist produced no result",
					zap.String("agent", sp.Name()),
					zap.Int("turn", turn),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			preds[sp.Name()] = p
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, sp := range o.specialists {
		if _, ok := preds[sp.Name()]; !ok {
			failed = append(failed, sp.Name())
		}
	}

	vr := o.votes.Vote(preds, turn)
	shouldGuess, rationale := o.votes.ShouldGuess(vr, turn)

	var oracleSyn *model.OracleSynthesis
	switch {
	case oracleCh != nil:
		oracleSyn = <-oracleCh
	case o.oracle != nil:
		oracleSyn = o.runOracle(func() (*model.OracleSynthesis, error) {
			return o.oracle.Synthesize(ctx, preds, vr, clues, turn, prior)
		}, turn)
	}

	analysis := reason.CreateTurnAnalysis(turn, clueText, preds, vr, sess.Analyses)
	analysis.Oracle = oracleSyn
	sess.RecordAnalysis(analysis)
	reason.UpdateLedger(sess.Ledger, analysis)

	zap.L().Info("engine: turn complete",
		zap.String("session_id", sess.ID),
		zap.Int("turn", turn),
		zap.String("pick", vr.RecommendedPick),
		zap.Int("agents_responded", len(preds)),
		zap.Bool("should_guess", shouldGuess),
		zap.Duration("latency", time.Since(start)),
	)

	return &model.TurnResult{
		SessionID:       sess.ID,
		TurnNumber:      turn,
		Predictions:     preds,
		Voting:          vr,
		ShouldGuess:     shouldGuess,
		Rationale:       rationale,
		Oracle:          oracleSyn,
		AgentsResponded: len(preds),
		AgentsFailed:    failed,
		TotalLatency:    time.Since(start),
		Evolution:       reason.Evolution(sess.Ledger),
	}, nil
}

// runOracle degrades an Oracle failure to an absent synthesis; the turn
// then falls back to the voting recommendation.
func (o *Orchestrator) runOracle(fn func() (*model.OracleSynthesis, error), turn int) *model.OracleSynthesis {
	syn, err := fn()
	if err != nil {
		zap.L().Warn("engine: oracle synthesis failed", zap.Int("turn", turn), zap.Error(err))
		return nil
	}
	return syn
}
