package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/resilience"
	"github.com/sells-group/jackpot-predict/pkg/openaichat"
)

const specialistMaxTokens = 150

// Specialist wraps one persona around a chat-completion predictor. A
// specialist never returns a partial prediction: it either succeeds or
// fails with one of the taxonomy errors.
type Specialist struct {
	persona Persona
	client  openaichat.Client
	timeout time.Duration
	breaker *resilience.CircuitBreaker
}

// NewSpecialist builds a specialist for the given persona. The breaker may
// be nil, in which case no circuit breaking is applied.
func NewSpecialist(persona Persona, client openaichat.Client, timeout time.Duration, breaker *resilience.CircuitBreaker) *Specialist {
	return &Specialist{
		persona: persona,
		client:  client,
		timeout: timeout,
		breaker: breaker,
	}
}

// Name returns the persona name used in weight tables and vote clusters.
func (s *Specialist) Name() string { return s.persona.Name }

// Predict asks the specialist for its answer given the clues revealed so
// far. The call is bounded by the specialist's own timeout regardless of
// the parent context's deadline.
func (s *Specialist) Predict(ctx context.Context, clues []string, categoryHint, priorContext string) (*model.Prediction, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	call := func(ctx context.Context) (*model.Prediction, error) {
		return s.call(ctx, clues, categoryHint, priorContext, start)
	}

	var pred *model.Prediction
	var err error
	if s.breaker != nil {
		pred, err = resilience.ExecuteVal(ctx, s.breaker, call)
	} else {
		pred, err = call(ctx)
	}
	if err != nil {
		return nil, s.classify(err, start)
	}

	zap.L().Debug("specialist prediction",
		zap.String("agent", s.persona.Name),
		zap.String("answer", pred.Answer),
		zap.Float64("confidence", pred.Confidence),
		zap.Duration("latency", pred.Latency),
	)
	return pred, nil
}

func (s *Specialist) call(ctx context.Context, clues []string, categoryHint, priorContext string, start time.Time) (*model.Prediction, error) {
	temp := s.persona.Temperature
	maxTokens := specialistMaxTokens

	resp, err := s.client.ChatCompletion(ctx, openaichat.ChatCompletionRequest{
		Model: s.persona.Model,
		Messages: []openaichat.Message{
			{Role: "system", Content: s.persona.SystemPrompt},
			{Role: "user", Content: formatCluesMessage(clues, categoryHint, priorContext)},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &ParseError{Agent: s.persona.Name, Raw: "no choices in response"}
	}

	pred, err := ParsePrediction(s.persona.Name, strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, err
	}
	pred.Latency = time.Since(start)
	return pred, nil
}

// classify maps transport and parse failures onto the agent error taxonomy.
func (s *Specialist) classify(err error, start time.Time) error {
	switch {
	case IsParse(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Agent: s.persona.Name, Elapsed: time.Since(start)}
	default:
		return &ProviderError{Agent: s.persona.Name, Err: err}
	}
}

// formatCluesMessage renders the user message: optional prior-turn context,
// optional category hint, then the numbered clues.
func formatCluesMessage(clues []string, categoryHint, priorContext string) string {
	var b strings.Builder

	if priorContext != "" {
		b.WriteString(priorContext)
		b.WriteString("\n")
	}
	if categoryHint != "" {
		fmt.Fprintf(&b, "[Category hint: %s]\n\n", strings.ToUpper(categoryHint))
	}

	b.WriteString("CLUES REVEALED:\n")
	for i, clue := range clues {
		fmt.Fprintf(&b, "  Clue %d: %q\n", i+1, clue)
	}
	fmt.Fprintf(&b, "\nWe are on Clue %d of %d.\nProvide your prediction.", len(clues), model.MaxTurns)

	return b.String()
}
