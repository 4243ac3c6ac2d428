package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/agent"
	"github.com/sells-group/jackpot-predict/internal/cost"
	"github.com/sells-group/jackpot-predict/internal/engine"
	"github.com/sells-group/jackpot-predict/internal/resilience"
	"github.com/sells-group/jackpot-predict/internal/session"
	"github.com/sells-group/jackpot-predict/internal/store"
	anthropicpkg "github.com/sells-group/jackpot-predict/pkg/anthropic"
	"github.com/sells-group/jackpot-predict/pkg/gemini"
	"github.com/sells-group/jackpot-predict/pkg/openaichat"
)

// appEnv holds the wired service and the resources it owns.
type appEnv struct {
	Service *engine.Service
	Store   store.Store
	Usage   *cost.Tracker
}

func (e *appEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Pool:        cfg.Store.Pool,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initService wires the full prediction engine: specialist roster with
// per-agent circuit breakers, Oracle, background Thinker, sessions, and the
// puzzle archive. Oracle and Thinker degrade to absent when their provider
// keys are missing; the specialists are mandatory.
func initService(ctx context.Context) (*appEnv, error) {
	if cfg.OpenAI.Key == "" {
		return nil, eris.New("openai API key is required (JACKPOT_OPENAI_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	usage := cost.NewTracker(cost.NewCalculator(cost.DefaultRates()))

	chatClient := openaichat.NewClient(cfg.OpenAI.Key,
		openaichat.WithBaseURL(cfg.OpenAI.BaseURL),
		openaichat.WithModel(cfg.OpenAI.Model),
		openaichat.WithRateLimit(cfg.OpenAI.RateLimitRPS, cfg.OpenAI.RateBurst),
		openaichat.WithUsageFunc(func(model string, u openaichat.Usage) {
			usage.RecordChat(model, u.PromptTokens, u.CompletionTokens)
		}),
	)

	var breakers *resilience.AgentBreakers
	if cfg.Agents.BreakerEnabled {
		breakerCfg := resilience.DefaultCircuitBreakerConfig()
		breakerCfg.FailureThreshold = cfg.Agents.BreakerThreshold
		breakers = resilience.NewAgentBreakers(breakerCfg)
	}

	specialists := make([]engine.SpecialistAgent, 0, len(agent.Personas()))
	for _, persona := range agent.Personas() {
		var breaker *resilience.CircuitBreaker
		if breakers != nil {
			breaker = breakers.Get(persona.Name)
		}
		specialists = append(specialists, agent.NewSpecialist(persona, chatClient, cfg.Agents.Timeout(), breaker))
	}

	var oracle engine.OracleAgent
	switch {
	case cfg.Oracle.Disabled:
	case cfg.Anthropic.Key == "":
		zap.L().Warn("anthropic API key missing, oracle disabled")
	default:
		oracleClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		oracle = agent.NewOracle(oracleClient, cfg.Anthropic.Model, cfg.Agents.Timeout()+cfg.Oracle.Slack(),
			agent.WithOracleUsageFunc(func(model string, u anthropicpkg.TokenUsage) {
				usage.RecordClaude(model, u.InputTokens, u.OutputTokens, u.CacheCreationInputTokens, u.CacheReadInputTokens)
			}))
	}

	var thinker engine.ThinkerAgent
	switch {
	case cfg.Thinker.Disabled:
	case cfg.Gemini.Key == "":
		zap.L().Warn("gemini API key missing, thinker disabled")
	default:
		geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.Key,
			gemini.WithUsageFunc(func(model string, u gemini.TokenUsage) {
				usage.RecordGemini(model, int(u.InputTokens), int(u.OutputTokens))
			}))
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "init gemini client")
		}
		thinker = agent.NewThinker(geminiClient, cfg.Gemini.Model)
	}

	registry := engine.NewThinkerRegistry(thinker)

	var opts []engine.OrchestratorOption
	if cfg.Oracle.Late {
		opts = append(opts, engine.WithLateOracle())
	}
	orch := engine.NewOrchestrator(specialists, oracle, registry, opts...)

	sessions := session.NewManager(cfg.Session.TTL())

	return &appEnv{
		Service: engine.NewService(sessions, orch, registry, st),
		Store:   st,
		Usage:   usage,
	}, nil
}
