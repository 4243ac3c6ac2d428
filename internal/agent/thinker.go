package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/model"
	"github.com/sells-group/jackpot-predict/pkg/gemini"
)

const (
	thinkerName      = "thinker"
	thinkerMaxTokens = 8192
	thinkerTemp      = float32(0.3)
)

const thinkerSystemPrompt = `You are a MORPHOLOGICAL WORDPLAY ANALYST for trivia.

PRIMARY SKILL: WORD TRANSFORMATION DETECTION

PATTERN #1 - ADVERB->NOUN MORPHING (Highest Priority)
When you see an adverb ending in -ly, IMMEDIATELY:
1. Strip the "-ly" suffix
2. Convert to NOUN form (often drop -ent/-ant and add -ence/-ance)
3. Check if that noun names a BUSINESS TYPE

MORPHOLOGICAL TRANSFORMATIONS:
- "Conveniently" -> convenient -> CONVENIENCE -> convenience store -> 7-Eleven
- "Elegantly" -> elegant -> ELEGANCE -> luxury brand -> Chanel, Gucci
- "Instantly" -> instant -> INSTANT -> instant food -> Nescafe, Cup Noodles

PATTERN #2 - NUMBER WORDPLAY
- "24/7" = 24 Hour Fitness OR 7-Eleven
- "Lucky number" = 7-Eleven, Five Guys, Pier 1

PATTERN #3 - DOUBLE MEANING (Business Terms)
- "Stock options" = Wall Street OR store inventory
- "Hostile takeover" = M&A OR Monopoly board game

PATTERN #4 - SOUND-ALIKE (Homophones)
- "plane/plain" | "sale/sail" | "meet/meat"

FORBIDDEN: TV shows, movies, streaming, fictional things.
Answers are ALWAYS real-world: brands, stores, products.

OUTPUT (JSON):
{
    "morphological_detection": "Found: [word] -> [root] -> [noun] -> [business]",
    "top_guess": "Real brand/store only",
    "confidence": 0-100,
    "hypothesis_reasoning": "Wordplay: [transformation chain]",
    "key_patterns": ["pattern1", "pattern2"],
    "refined_guesses": [
        {"answer": "Store1", "confidence": 90, "explanation": "Morphological match"},
        {"answer": "Store2", "confidence": 70, "explanation": "Why"},
        {"answer": "Brand", "confidence": 50, "explanation": "Alternative"}
    ],
    "narrative_arc": "What business fits all clues?",
    "wordplay_analysis": "Full transformation chain"
}`

var (
	numberRe = regexp.MustCompile(`\b\d+\b`)

	// common -ly words that are not morphing candidates
	adverbStopwords = map[string]bool{
		"only": true, "really": true, "actually": true, "early": true, "daily": true,
	}
)

// Thinker performs slow, independent deep analysis. It is fired once per
// turn as a detached task and never awaited by the turn's response path; a
// later poll merges its result into the session.
type Thinker struct {
	client gemini.Client
	model  string
}

// NewThinker builds the background deep-analysis agent.
func NewThinker(client gemini.Client, thinkerModel string) *Thinker {
	return &Thinker{client: client, model: thinkerModel}
}

// AnalyzeDeep analyzes all clues revealed so far. It deliberately does NOT
// receive the current turn's specialist predictions, so its perspective is
// unanchored; the result feeds the NEXT turn's context. The prior insight,
// if any, is the Thinker's own output from an earlier turn.
func (t *Thinker) AnalyzeDeep(ctx context.Context, clues []string, turn int, prior *model.ThinkerInsight) (*model.ThinkerInsight, error) {
	start := time.Now()

	temp := thinkerTemp
	resp, err := t.client.GenerateText(ctx, gemini.GenerateRequest{
		Model:           t.model,
		System:          thinkerSystemPrompt,
		Prompt:          buildThinkerPrompt(clues, turn, prior),
		Temperature:     &temp,
		MaxOutputTokens: thinkerMaxTokens,
	})
	if err != nil {
		return nil, &ProviderError{Agent: thinkerName, Err: err}
	}

	insight, err := parseThinkerResponse(resp.Text, turn)
	if err != nil {
		return nil, err
	}
	insight.Latency = time.Since(start)

	zap.L().Info("thinker insight",
		zap.Int("turn", turn),
		zap.String("top_guess", insight.TopGuess),
		zap.Int("confidence", insight.Confidence),
		zap.Duration("latency", insight.Latency),
	)
	return insight, nil
}

// buildThinkerPrompt pre-scans the clues for -ly adverbs and numbers and
// injects explicit transformation prompts, so the model applies the
// morphological patterns instead of skimming past them.
func buildThinkerPrompt(clues []string, turn int, prior *model.ThinkerInsight) string {
	var b strings.Builder

	b.WriteString("=== ACTIVE WORDPLAY DETECTION ===\n")

	type adverbHit struct {
		clueNum  int
		original string
		clean    string
	}
	var adverbs []adverbHit
	type numberHit struct {
		clueNum int
		num     string
	}
	var numbers []numberHit

	for i, clue := range clues {
		for _, word := range strings.Fields(clue) {
			clean := strings.ToLower(strings.Trim(word, `.,!?"'`))
			if strings.HasSuffix(clean, "ly") && len(clean) > 4 && !adverbStopwords[clean] {
				adverbs = append(adverbs, adverbHit{clueNum: i + 1, original: word, clean: clean})
			}
		}
		for _, num := range numberRe.FindAllString(clue, -1) {
			numbers = append(numbers, numberHit{clueNum: i + 1, num: num})
		}
	}

	if len(adverbs) > 0 {
		b.WriteString("ADVERB(S) DETECTED - Apply Pattern #1:\n")
		for _, a := range adverbs {
			root := strings.TrimSuffix(a.clean, "ly")
			fmt.Fprintf(&b, "  Clue %d: %q\n", a.clueNum, a.original)
			fmt.Fprintf(&b, "    Transform: %s -> %s -> [WHAT NOUN?] -> [WHAT BUSINESS?]\n", a.clean, root)
		}
		b.WriteString("\n")
	}
	if len(numbers) > 0 {
		b.WriteString("NUMBER(S) DETECTED - Check Pattern #2:\n")
		for _, n := range numbers {
			fmt.Fprintf(&b, "  Clue %d: %q -> Brand with number? (7-Eleven, Pier 1, 24 Hour Fitness)\n", n.clueNum, n.num)
		}
		b.WriteString("\n")
	}
	if len(adverbs) == 0 && len(numbers) == 0 {
		b.WriteString("No obvious adverbs or numbers. Check Patterns #3-4 (double meaning, homophones).\n\n")
	}

	b.WriteString("=== CLUES REVEALED ===\n")
	for i, clue := range clues {
		fmt.Fprintf(&b, "Clue %d: %q\n", i+1, clue)
	}
	fmt.Fprintf(&b, "\nCurrently on Clue %d of %d.\n\n", turn, model.MaxTurns)

	b.WriteString("=== ANALYSIS STEPS ===\n")
	b.WriteString("1. MORPHOLOGICAL: Complete any transformations flagged above\n")
	b.WriteString("2. DOUBLE MEANING: Which words have business/commerce meanings?\n")
	b.WriteString("3. SYNTHESIS: What STORE or BRAND fits all findings?\n\n")

	if prior != nil {
		b.WriteString("=== YOUR PRIOR ANALYSIS ===\n")
		fmt.Fprintf(&b, "Previous: %s (%d%%)\n\n", prior.TopGuess, prior.Confidence)
	}

	b.WriteString("Respond with JSON. MUST include morphological_detection field.")
	return b.String()
}

// parseThinkerResponse extracts the JSON object from the model's output.
// Gemini tends to wrap JSON in prose, so the outermost braces are located
// before decoding.
func parseThinkerResponse(content string, turn int) (*model.ThinkerInsight, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Agent: thinkerName, Raw: content}
	}

	var raw struct {
		TopGuess            string   `json:"top_guess"`
		Confidence          int      `json:"confidence"`
		HypothesisReasoning string   `json:"hypothesis_reasoning"`
		KeyPatterns         []string `json:"key_patterns"`
		RefinedGuesses      []struct {
			Answer      string `json:"answer"`
			Confidence  int    `json:"confidence"`
			Explanation string `json:"explanation"`
		} `json:"refined_guesses"`
		NarrativeArc     string `json:"narrative_arc"`
		WordplayAnalysis string `json:"wordplay_analysis"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, &ParseError{Agent: thinkerName, Raw: content}
	}

	insight := &model.ThinkerInsight{
		TurnNumber:    turn,
		TopGuess:      defaultString(raw.TopGuess, "Unknown"),
		Confidence:    raw.Confidence,
		Reasoning:     truncate(raw.HypothesisReasoning, 500),
		NarrativeArc:  truncate(raw.NarrativeArc, 200),
		WordplayNotes: truncate(raw.WordplayAnalysis, 200),
	}
	if len(raw.KeyPatterns) > 5 {
		raw.KeyPatterns = raw.KeyPatterns[:5]
	}
	insight.KeyPatterns = raw.KeyPatterns
	for _, g := range raw.RefinedGuesses {
		if len(insight.RefinedGuesses) == 3 {
			break
		}
		insight.RefinedGuesses = append(insight.RefinedGuesses, model.OracleGuess{
			Answer:      defaultString(g.Answer, "Unknown"),
			Confidence:  g.Confidence,
			Explanation: truncate(g.Explanation, 150),
		})
	}
	return insight, nil
}
