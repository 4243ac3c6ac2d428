// Package cost estimates the provider spend of a prediction session. Each
// turn fans out to five specialist completions plus an Oracle synthesis, so
// per-call costs are small but accumulate quickly across sessions.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Chat computes the cost for an OpenAI-compatible chat completion. Unknown
// models cost zero rather than erroring; specialists may run against local
// or unpriced endpoints.
func (c *Calculator) Chat(model string, prompt, completion int) float64 {
	rate, ok := c.rates.OpenAI[model]
	if !ok {
		return 0
	}
	return (float64(prompt)/1e6)*rate.Input + (float64(completion)/1e6)*rate.Output
}

// Claude computes the cost for an Anthropic API call, including prompt
// cache reads and writes.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// Gemini computes the cost for a Gemini generation.
func (c *Calculator) Gemini(model string, input, output int) float64 {
	rate, ok := c.rates.Gemini[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		OpenAI: map[string]ModelRate{
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
			"gpt-4o":      {Input: 2.50, Output: 10.00},
		},
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
			"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
		},
	}
}
