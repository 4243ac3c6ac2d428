// Package vote implements the clue-aware weighted voting engine that
// combines specialist predictions into a single recommendation.
package vote

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/jackpot-predict/internal/model"
)

//go:embed weights.yaml
var defaultTablesYAML []byte

// balancedTurn is the fallback table used for turn numbers outside 1-5.
const balancedTurn = 3

// Threshold is the guess-now requirement for one turn.
type Threshold struct {
	MinConfidence float64         `yaml:"min_confidence"`
	MinAgreement  model.Agreement `yaml:"min_agreement"`
}

// Tables holds the per-turn weight and threshold configuration. The numbers
// are tuned constants carried as data, not derived.
type Tables struct {
	Weights    map[int]map[string]float64 `yaml:"weights"`
	Thresholds map[int]Threshold          `yaml:"thresholds"`
	Roster     []string                   `yaml:"roster"`
}

// ParseTables decodes a Tables definition from YAML.
func ParseTables(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, eris.Wrap(err, "vote: parse tables")
	}
	if len(t.Weights) == 0 {
		return Tables{}, eris.New("vote: tables define no weights")
	}
	if _, ok := t.Weights[balancedTurn]; !ok {
		return Tables{}, eris.New("vote: tables missing balanced turn weights")
	}
	return t, nil
}

// DefaultTables returns the embedded weight tables.
func DefaultTables() Tables {
	t, err := ParseTables(defaultTablesYAML)
	if err != nil {
		// Embedded asset; a parse failure is a build defect.
		panic(err)
	}
	return t
}

// WeightsFor returns the weight table for the given turn, falling back to
// the balanced turn-3 table for unknown turn numbers.
func (t Tables) WeightsFor(turn int) map[string]float64 {
	if w, ok := t.Weights[turn]; ok {
		return w
	}
	return t.Weights[balancedTurn]
}

// ThresholdFor returns the guess-now threshold for the given turn, falling
// back to the turn-3 threshold for unknown turn numbers.
func (t Tables) ThresholdFor(turn int) Threshold {
	if th, ok := t.Thresholds[turn]; ok {
		return th
	}
	if th, ok := t.Thresholds[balancedTurn]; ok {
		return th
	}
	return Threshold{MinConfidence: 0.75, MinAgreement: model.AgreementModerate}
}
