package domain

import "time"

// State represents the snapshot of one user's journey.
type State struct {
	// SessionID identifies the user the state belongs to.
	SessionID string `json:"session_id"`

	// Cursor is the index of the step awaiting a choice,
	// or the story length once the journey is complete.
	Cursor int `json:"cursor"`

	// Choices is the append-only log of accepted choices.
	Choices []Choice `json:"choices"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a clean state at the first step.
func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Cursor:    0,
		Choices:   []Choice{},
	}
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Choices != nil {
		cp.Choices = make([]Choice, len(s.Choices))
		copy(cp.Choices, s.Choices)
	}
	return &cp
}

// Completed reports whether the journey reached the end of a story of the given length.
func (s *State) Completed(total int) bool {
	return s.Cursor >= total
}

// Progress is the display-oriented view of a session's position.
type Progress struct {
	CurrentStep int  `json:"current_step"`
	Total       int  `json:"total"`
	ChoicesMade int  `json:"choices_made"`
	Completed   bool `json:"completed"`
}
