package domain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestState_SnapshotIsolation(t *testing.T) {
	state := domain.NewState("user-1")
	state.Choices = append(state.Choices, domain.Choice{StepIndex: 0, Label: domain.LabelA, Text: "go"})
	state.Cursor = 1

	snap := state.Snapshot()
	snap.Choices[0].Text = "mutated"
	snap.Choices = append(snap.Choices, domain.Choice{StepIndex: 1})
	snap.Cursor = 2

	assert.Equal(t, "go", state.Choices[0].Text)
	assert.Len(t, state.Choices, 1)
	assert.Equal(t, 1, state.Cursor)
}

func TestState_Completed(t *testing.T) {
	state := domain.NewState("user-1")
	assert.False(t, state.Completed(3))
	state.Cursor = 3
	assert.True(t, state.Completed(3))
}

func TestMalformedStoryError(t *testing.T) {
	err := &domain.MalformedStoryError{Source: "story.json", Problems: []string{"a", "b"}}
	wrapped := fmt.Errorf("startup: %w", err)

	assert.True(t, errors.Is(wrapped, domain.ErrMalformedStory))
	assert.False(t, errors.Is(wrapped, domain.ErrStoryNotFound))

	var target *domain.MalformedStoryError
	assert.True(t, errors.As(wrapped, &target))
	assert.Len(t, target.Problems, 2)
	assert.True(t, strings.Contains(err.Error(), "2 problems"))

	single := &domain.MalformedStoryError{Problems: []string{"only one"}}
	assert.Equal(t, "malformed story: only one", single.Error())
}

func TestRender_Body(t *testing.T) {
	step := domain.Render{
		Kind:    domain.RenderStep,
		Header:  "Step 1/3",
		Text:    "A fork in the road.",
		Message: "Choose:",
	}
	assert.Equal(t, "Step 1/3\n\nA fork in the road.\n\nChoose:", step.Body())

	notice := domain.Render{Kind: domain.RenderNotice, Message: "hello"}
	assert.Equal(t, "hello", notice.Body())
}
