package model

import "time"

// PuzzleExample is a historical solved puzzle kept in the store. Used as
// read-only few-shot material when building category hints for agents.
type PuzzleExample struct {
	ID       string    `json:"id"`
	Answer   string    `json:"answer"`
	Category string    `json:"category,omitempty"` // person | place | thing
	Clues    []string  `json:"clues"`
	SolvedAt time.Time `json:"solved_at"`
}
