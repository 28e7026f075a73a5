package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStoryNotFound is returned when the story source cannot be opened or read.
var ErrStoryNotFound = errors.New("story not found")

// ErrMalformedStory is returned when the story data fails structural validation.
var ErrMalformedStory = errors.New("malformed story")

// ErrIndexOutOfRange signals a step index outside the story.
// Reaching it from the state machine means the cursor drifted from the store.
var ErrIndexOutOfRange = errors.New("step index out of range")

// ErrSessionCompleted is returned when the current step of a finished journey is requested.
var ErrSessionCompleted = errors.New("session completed")

// ErrInvalidChoicePayload is returned when a choice event cannot be parsed or carries an unknown label.
var ErrInvalidChoicePayload = errors.New("invalid choice payload")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// MalformedStoryError collects every problem found while validating a story.
type MalformedStoryError struct {
	Source   string
	Problems []string
}

func (e *MalformedStoryError) Error() string {
	prefix := ErrMalformedStory.Error()
	if e.Source != "" {
		prefix = fmt.Sprintf("%s %s", prefix, e.Source)
	}
	if len(e.Problems) == 1 {
		return prefix + ": " + e.Problems[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d problems:\n", prefix, len(e.Problems))
	for i, p := range e.Problems {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, p)
	}
	return b.String()
}

// Is lets errors.Is match ErrMalformedStory.
func (e *MalformedStoryError) Is(target error) bool {
	return target == ErrMalformedStory
}
