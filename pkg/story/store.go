package story

import (
	"fmt"

	"github.com/aretw0/storyline/pkg/domain"
)

// Store is an immutable, validated sequence of steps.
type Store struct {
	steps  []domain.Step
	source string
}

// Get returns the step at the 0-based index.
func (s *Store) Get(index int) (domain.Step, error) {
	if index < 0 || index >= len(s.steps) {
		return domain.Step{}, fmt.Errorf("%w: index %d, story has %d steps", domain.ErrIndexOutOfRange, index, len(s.steps))
	}
	return s.steps[index], nil
}

// Len returns the number of steps.
func (s *Store) Len() int {
	return len(s.steps)
}

// Steps returns a copy of all steps in order.
func (s *Store) Steps() []domain.Step {
	out := make([]domain.Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Source describes where the story was loaded from.
func (s *Store) Source() string {
	return s.source
}

// FromSteps builds a store from steps already in memory, applying the same checks as Load.
// The story length is the number of steps given.
func FromSteps(steps []domain.Step) (*Store, error) {
	raw := make([]map[string]any, len(steps))
	for i, s := range steps {
		raw[i] = map[string]any{"id": s.ID, "text": s.Text, "a": s.OptionA, "b": s.OptionB}
	}

	validated, problems := validate(raw, len(steps))
	if len(problems) > 0 {
		return nil, &domain.MalformedStoryError{Source: "memory", Problems: problems}
	}
	return &Store{steps: validated, source: "memory"}, nil
}
