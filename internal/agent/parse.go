package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/jackpot-predict/internal/model"
)

const reasoningMaxLen = 50

var (
	answerRe     = regexp.MustCompile(`(?i)ANSWER:[ \t]*([^\n]+)`)
	confidenceRe = regexp.MustCompile(`(?i)CONFIDENCE:[ \t]*(\d+(?:\.\d+)?)`)
	reasoningRe  = regexp.MustCompile(`(?i)REASONING:[ \t]*([^\n]+)`)
)

// ParsePrediction extracts a structured prediction from a specialist's raw
// response. The contract is three labeled lines:
//
//	ANSWER: <answer>
//	CONFIDENCE: <0-100>
//	REASONING: <brief explanation>
//
// A missing answer or confidence line is a ParseError. A missing reasoning
// line is tolerated. Confidence is clamped to [0,1] and reasoning truncated.
func ParsePrediction(agentName, content string) (*model.Prediction, error) {
	answerMatch := answerRe.FindStringSubmatch(content)
	if answerMatch == nil {
		return nil, &ParseError{Agent: agentName, Raw: content}
	}
	answer := strings.TrimSpace(answerMatch[1])
	if answer == "" {
		return nil, &ParseError{Agent: agentName, Raw: content}
	}

	confMatch := confidenceRe.FindStringSubmatch(content)
	if confMatch == nil {
		return nil, &ParseError{Agent: agentName, Raw: content}
	}
	conf, err := strconv.ParseFloat(confMatch[1], 64)
	if err != nil {
		return nil, &ParseError{Agent: agentName, Raw: content}
	}
	conf /= 100
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	reasoning := "No reasoning"
	if m := reasoningRe.FindStringSubmatch(content); m != nil {
		reasoning = truncate(strings.TrimSpace(m[1]), reasoningMaxLen)
	}

	return &model.Prediction{
		Answer:     answer,
		Confidence: conf,
		Reasoning:  reasoning,
		AgentName:  agentName,
	}, nil
}
