package testutils

import (
	"fmt"
	"testing"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/story"
	"github.com/stretchr/testify/require"
)

// Steps builds n valid steps with predictable text: "Text 3", "A3", "B3".
func Steps(n int) []domain.Step {
	steps := make([]domain.Step, n)
	for i := range steps {
		steps[i] = domain.Step{
			ID:      i + 1,
			Text:    fmt.Sprintf("Text %d", i+1),
			OptionA: fmt.Sprintf("A%d", i+1),
			OptionB: fmt.Sprintf("B%d", i+1),
		}
	}
	return steps
}

// Story returns an in-memory story of n steps built by Steps.
// It fails the test immediately on error.
func Story(t testing.TB, n int) *story.Store {
	t.Helper()
	st, err := story.FromSteps(Steps(n))
	require.NoError(t, err, "Failed to build story")
	return st
}
