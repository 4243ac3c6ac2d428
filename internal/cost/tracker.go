package cost

import "sync"

// Summary is the accumulated usage for one provider.
type Summary struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	USD          float64 `json:"usd"`
}

// Tracker accumulates token usage across concurrent agent calls.
type Tracker struct {
	calc *Calculator

	mu        sync.Mutex
	providers map[string]*Summary
}

// NewTracker creates a Tracker that prices usage with calc.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{
		calc:      calc,
		providers: make(map[string]*Summary),
	}
}

// RecordChat records one OpenAI-compatible chat completion.
func (t *Tracker) RecordChat(model string, prompt, completion int) {
	t.record("openai", int64(prompt), int64(completion), t.calc.Chat(model, prompt, completion))
}

// RecordClaude records one Anthropic call. Cache tokens count toward the
// cost but not the input total.
func (t *Tracker) RecordClaude(model string, input, output, cacheWrite, cacheRead int64) {
	t.record("anthropic", input, output, t.calc.Claude(model, input, output, cacheWrite, cacheRead))
}

// RecordGemini records one Gemini generation.
func (t *Tracker) RecordGemini(model string, input, output int) {
	t.record("gemini", int64(input), int64(output), t.calc.Gemini(model, input, output))
}

func (t *Tracker) record(provider string, input, output int64, usd float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.providers[provider]
	if !ok {
		s = &Summary{}
		t.providers[provider] = s
	}
	s.Calls++
	s.InputTokens += input
	s.OutputTokens += output
	s.USD += usd
}

// Summaries returns a snapshot of per-provider usage.
func (t *Tracker) Summaries() map[string]Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Summary, len(t.providers))
	for provider, s := range t.providers {
		out[provider] = *s
	}
	return out
}

// TotalUSD returns the estimated spend across all providers.
func (t *Tracker) TotalUSD() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total float64
	for _, s := range t.providers {
		total += s.USD
	}
	return total
}
