package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/internal/resilience"
	"github.com/sells-group/jackpot-predict/internal/vote"
	"github.com/sells-group/jackpot-predict/pkg/anthropic"
)

const (
	oracleName      = "oracle"
	oracleMaxTokens = 500
	oracleTemp      = 0.3

	// jsonRetryHint is appended to the user message on retry after a parse
	// failure. Models that wrapped their output in prose usually comply on
	// the second ask.
	jsonRetryHint = "\n\nIMPORTANT: Return ONLY valid JSON."
)

const oracleSystemPrompt = `You are THE ORACLE - a meta-synthesizer for a 5-agent trivia prediction system.

YOUR UNIQUE ROLE:
Synthesize predictions from 5 specialist agents and provide YOUR TOP 3 GUESSES
with clear, concise explanations of why each fits the clues.

THE 5 SPECIALISTS YOU OVERSEE:
- Lateral: Multi-hop associative reasoning
- Wordsmith: Puns, wordplay, linguistic tricks
- PopCulture: Streaming/trending/celebrity bias
- Literal: Face-value interpretation, trap detection
- WildCard: Creative divergent thinking

YOUR TASK:
1. Analyze all 5 agent predictions and their reasoning
2. Identify patterns, themes, and narrative arcs across clues
3. Synthesize into YOUR TOP 3 GUESSES ranked by confidence
4. Provide SHORT but CLEAR explanations (1-2 sentences each)
5. Identify any blind spots the agents may have missed

OUTPUT FORMAT (strict JSON only, no markdown):
{
  "top_3": [
    {"answer": "MONOPOLY", "confidence": 92, "explanation": "Business terms + board game + dice wordplay"},
    {"answer": "RISK", "confidence": 45, "explanation": "Military conquest fits but weaker on other clues"},
    {"answer": "LIFE", "confidence": 30, "explanation": "Metaphor works but misses the business theme"}
  ],
  "key_theme": "Board games with business/strategy elements",
  "blind_spot": "Consider if 'dicey' is wordplay (dice) or means 'risky'"
}

CRITICAL RULES:
- Output ONLY valid JSON, no markdown code blocks
- Always provide exactly 3 guesses
- Confidence must be 0-100 (integers)
- key_theme: 5-10 word summary of the dominant pattern
- blind_spot: What might agents be missing? (5-15 words)`

const oracleEarlySystemPrompt = `You are THE ORACLE - analyzing clue progression for a trivia prediction system.

You are running EARLY (in parallel with specialist agents, before their predictions arrive).
Focus on clue pattern analysis and historical context.

CONTEXT PROVIDED:
- All clues revealed so far
- Prior clue analyses (if any) with agent predictions and voting results

YOUR TASK:
1. Analyze the clue progression and emerging themes
2. Identify patterns connecting the clues
3. Provide YOUR TOP 3 GUESSES ranked by confidence
4. Flag potential blind spots

OUTPUT FORMAT (strict JSON only, no markdown):
{
  "top_3": [
    {"answer": "MONOPOLY", "confidence": 85, "explanation": "Clue progression suggests a board game"},
    {"answer": "RISK", "confidence": 40, "explanation": "Conquest theme fits 'hostile takeover'"},
    {"answer": "LIFE", "confidence": 25, "explanation": "Weaker metaphorical match"}
  ],
  "key_theme": "Board games with business/strategy elements",
  "blind_spot": "Check for wordplay - 'dicey' could mean dice or risky"
}

CRITICAL RULES:
- Output ONLY valid JSON, no markdown code blocks
- Always provide exactly 3 guesses
- Confidence must be 0-100 (integers)
- key_theme: 5-10 word summary of the dominant pattern
- blind_spot: What might we be missing? (5-15 words)`

// Oracle is the meta-synthesizer. It sees the full picture individual
// specialists cannot: every prediction, the vote, and prior-turn history.
type Oracle struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	usageFn func(model string, usage anthropic.TokenUsage)
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithOracleUsageFunc registers a callback invoked with the token usage of
// every successful synthesis call.
func WithOracleUsageFunc(fn func(model string, usage anthropic.TokenUsage)) OracleOption {
	return func(o *Oracle) {
		o.usageFn = fn
	}
}

// NewOracle builds the Oracle. The timeout should be strictly looser than
// the specialist timeout so the early-mode race absorbs the extra latency.
func NewOracle(client anthropic.Client, oracleModel string, timeout time.Duration, opts ...OracleOption) *Oracle {
	o := &Oracle{client: client, model: oracleModel, timeout: timeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SynthesizeEarly runs the Oracle in parallel with the specialists, before
// their predictions exist. Context comes only from the clues and prior
// analyses. Failure returns a taxonomy error; the caller degrades to the
// vote recommendation.
func (o *Oracle) SynthesizeEarly(ctx context.Context, clues []string, turn int, prior []model.TurnAnalysis) (*model.OracleSynthesis, error) {
	return o.run(ctx, oracleEarlySystemPrompt, buildEarlyOracleContext(clues, turn, prior))
}

// Synthesize runs the Oracle after voting, with the full set of specialist
// predictions available.
func (o *Oracle) Synthesize(ctx context.Context, preds map[string]*model.Prediction, vr model.VotingResult, clues []string, turn int, prior []model.TurnAnalysis) (*model.OracleSynthesis, error) {
	return o.run(ctx, oracleSystemPrompt, buildOracleContext(preds, vr, clues, turn, prior))
}

func (o *Oracle) run(ctx context.Context, system, userContext string) (*model.OracleSynthesis, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	temp := oracleTemp

	// One retry with the JSON hint appended; parse failures on structured
	// output are usually formatting slips, not model confusion.
	var attempt atomic.Int32
	synthesis, err := resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 100 * time.Millisecond,
		ShouldRetry: func(err error) bool {
			return IsParse(err) || resilience.IsTransient(err)
		},
		OnRetry: resilience.RetryLogger(oracleName, "synthesize"),
	}, func(ctx context.Context) (*model.OracleSynthesis, error) {
		content := userContext
		if attempt.Add(1) > 1 {
			content += jsonRetryHint
		}

		resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       o.model,
			MaxTokens:   oracleMaxTokens,
			System:      anthropic.BuildCachedSystemBlocks(system),
			Messages:    []anthropic.Message{{Role: "user", Content: content}},
			Temperature: &temp,
		})
		if err != nil {
			return nil, err
		}
		resp.Usage.LogCost(o.model, oracleName)
		if o.usageFn != nil {
			o.usageFn(o.model, resp.Usage)
		}

		return parseOracleResponse(resp.Text())
	})
	if err != nil {
		return nil, o.classify(err, start)
	}

	synthesis.Latency = time.Since(start)
	zap.L().Info("oracle synthesis",
		zap.String("top_pick", synthesis.Top3[0].Answer),
		zap.Int("confidence", synthesis.Top3[0].Confidence),
		zap.String("theme", synthesis.KeyTheme),
		zap.Duration("latency", synthesis.Latency),
	)
	return synthesis, nil
}

func (o *Oracle) classify(err error, start time.Time) error {
	switch {
	case IsParse(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Agent: oracleName, Elapsed: time.Since(start)}
	default:
		return &ProviderError{Agent: oracleName, Err: err}
	}
}

// parseOracleResponse decodes the Oracle's JSON, tolerating a markdown code
// fence around it. An empty top_3 is a parse failure: the Oracle must
// always commit to at least one guess.
func parseOracleResponse(content string) (*model.OracleSynthesis, error) {
	content = stripCodeFence(strings.TrimSpace(content))

	var raw struct {
		Top3 []struct {
			Answer      string `json:"answer"`
			Confidence  int    `json:"confidence"`
			Explanation string `json:"explanation"`
		} `json:"top_3"`
		KeyTheme  string `json:"key_theme"`
		BlindSpot string `json:"blind_spot"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, &ParseError{Agent: oracleName, Raw: content}
	}
	if len(raw.Top3) == 0 {
		return nil, &ParseError{Agent: oracleName, Raw: content}
	}

	synthesis := &model.OracleSynthesis{
		KeyTheme:  truncate(defaultString(raw.KeyTheme, "Analysis pending"), 100),
		BlindSpot: truncate(defaultString(raw.BlindSpot, "None identified"), 100),
	}
	for _, g := range raw.Top3 {
		if len(synthesis.Top3) == 3 {
			break
		}
		synthesis.Top3 = append(synthesis.Top3, model.OracleGuess{
			Answer:      defaultString(g.Answer, "Unknown"),
			Confidence:  g.Confidence,
			Explanation: truncate(g.Explanation, 150),
		})
	}
	return synthesis, nil
}

// stripCodeFence removes a surrounding markdown code block, if present.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so a multi-byte character is never split.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// buildOracleContext renders the late-mode user message: clues, every
// specialist prediction, the vote, and prior analyses.
func buildOracleContext(preds map[string]*model.Prediction, vr model.VotingResult, clues []string, turn int, prior []model.TurnAnalysis) string {
	var b strings.Builder
	divider := strings.Repeat("=", 50)

	writeClueState(&b, clues, turn)

	b.WriteString(divider + "\n5 SPECIALIST AGENT PREDICTIONS:\n" + divider + "\n")
	for _, name := range vote.OrderedAgents(preds) {
		pred := preds[name]
		if pred == nil {
			continue
		}
		reasoning := defaultString(pred.Reasoning, "No reasoning")
		fmt.Fprintf(&b, "[%s] %s (%d%%)\n", strings.ToUpper(name), pred.Answer, int(pred.Confidence*100))
		fmt.Fprintf(&b, "    Reasoning: %q\n\n", truncate(reasoning, 80))
	}

	b.WriteString(divider + "\nVOTING RESULT:\n" + divider + "\n")
	fmt.Fprintf(&b, "Recommended: %s\n", vr.RecommendedPick)
	fmt.Fprintf(&b, "Agreement: %s\n", vr.AgreementStrength)
	fmt.Fprintf(&b, "Key Insight: %s\n\n", vr.KeyInsight)

	if len(vr.Clusters) > 0 {
		b.WriteString("Vote Breakdown:\n")
		for i, c := range vr.Clusters {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "  %s: %.1f votes (%s)\n", c.CanonicalAnswer, c.TotalWeightedVotes, strings.Join(c.MemberAgents, ", "))
		}
	}
	b.WriteString("\n")

	writePriorAnalyses(&b, prior, false)

	b.WriteString(divider + "\nYOUR TASK: Provide your TOP 3 GUESSES as JSON\n" + divider)
	return b.String()
}

// buildEarlyOracleContext renders the early-mode user message: clues and
// prior analyses only, since no current-turn predictions exist yet.
func buildEarlyOracleContext(clues []string, turn int, prior []model.TurnAnalysis) string {
	var b strings.Builder
	divider := strings.Repeat("=", 50)

	writeClueState(&b, clues, turn)

	if len(prior) > 0 {
		writePriorAnalyses(&b, prior, true)
	} else {
		b.WriteString("(First clue - no prior analyses available)\n\n")
	}

	b.WriteString(divider + "\nYOUR TASK: Analyze clue progression and provide TOP 3 GUESSES as JSON\n" + divider)
	return b.String()
}

func writeClueState(b *strings.Builder, clues []string, turn int) {
	fmt.Fprintf(b, "CURRENT STATE: Clue %d of %d\n\nCLUES REVEALED:\n", turn, model.MaxTurns)
	for i, clue := range clues {
		marker := "   "
		if i+1 == turn {
			marker = ">>>"
		}
		fmt.Fprintf(b, "%s Clue %d: %q\n", marker, i+1, clue)
	}
	b.WriteString("\n")
}

func writePriorAnalyses(b *strings.Builder, prior []model.TurnAnalysis, withSnapshots bool) {
	if len(prior) == 0 {
		return
	}
	divider := strings.Repeat("=", 50)
	b.WriteString(divider + "\nPRIOR CLUE ANALYSES:\n" + divider + "\n")
	for _, a := range prior {
		fmt.Fprintf(b, "Clue %d: %q\n", a.TurnNumber, a.ClueText)
		fmt.Fprintf(b, "  Top Pick: %s (%d%%)\n", a.TopAnswer, int(a.TopConfidence*100))
		fmt.Fprintf(b, "  Agreement: %s\n", a.AgreementStrength)
		if withSnapshots {
			for _, s := range a.Snapshots {
				fmt.Fprintf(b, "    [%s] %s (%d%%) - %s\n", s.AgentName, s.Answer, int(s.Confidence*100), s.Insight)
			}
		}
		if a.Oracle != nil && len(a.Oracle.Top3) > 0 {
			fmt.Fprintf(b, "  Oracle Pick: %s (%d%%)\n", a.Oracle.Top3[0].Answer, a.Oracle.Top3[0].Confidence)
		}
		b.WriteString("\n")
	}
}
