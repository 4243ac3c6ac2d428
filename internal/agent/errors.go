// Package agent implements the prediction agents: the five fast
// specialists, the Oracle meta-synthesizer, and the background Thinker.
// All agent failures are classified into a small taxonomy and recovered at
// this boundary; the orchestrator only ever sees "this agent produced no
// result this turn".
package agent

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that an agent exceeded its allotted time.
type TimeoutError struct {
	Agent   string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %s: timeout after %s", e.Agent, e.Elapsed)
}

// ProviderError reports a transport, auth, or rate-limit failure from the
// underlying predictor.
type ProviderError struct {
	Agent string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("agent %s: provider failure: %v", e.Agent, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError reports that the predictor's response text did not match the
// required shape.
type ParseError struct {
	Agent string
	Raw   string // truncated response text for diagnostics
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("agent %s: unparseable response: %.80q", e.Agent, e.Raw)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsProvider reports whether err is (or wraps) a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
