package runtime_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/storyline/internal/runtime"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceStory is a minimal in-memory Story.
type sliceStory []domain.Step

func (s sliceStory) Get(index int) (domain.Step, error) {
	if index < 0 || index >= len(s) {
		return domain.Step{}, fmt.Errorf("%w: %d", domain.ErrIndexOutOfRange, index)
	}
	return s[index], nil
}

func (s sliceStory) Len() int { return len(s) }

func newStory(n int) sliceStory {
	steps := make(sliceStory, n)
	for i := range steps {
		steps[i] = domain.Step{
			ID:      i + 1,
			Text:    fmt.Sprintf("text%d", i),
			OptionA: fmt.Sprintf("textA%d", i),
			OptionB: fmt.Sprintf("textB%d", i),
		}
	}
	return steps
}

func TestEngine_ScenarioThreeSteps(t *testing.T) {
	story := newStory(3)
	engine := runtime.NewEngine(story)
	state := domain.NewState("user")
	engine.Restart(state)
	assert.Equal(t, 0, state.Cursor)

	res, err := engine.Submit(state, 0, domain.LabelA)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNextStep, res.Outcome)
	assert.Equal(t, 1, state.Cursor)
	assert.Equal(t, []domain.Choice{{StepIndex: 0, Label: domain.LabelA, Text: "textA0"}}, state.Choices)
	require.NotNil(t, res.Step)
	assert.Equal(t, story[1], *res.Step)

	res, err = engine.Submit(state, 0, domain.LabelB)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStale, res.Outcome)
	assert.Equal(t, 1, state.Cursor)
	assert.Len(t, state.Choices, 1)

	res, err = engine.Submit(state, 1, domain.LabelB)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNextStep, res.Outcome)
	assert.Equal(t, 2, state.Cursor)
	assert.Equal(t, "textB1", res.Chosen.Text)

	res, err = engine.Submit(state, 2, domain.LabelA)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, res.Outcome)
	assert.Equal(t, 3, state.Cursor)
	assert.Len(t, res.Choices, 3)
	assert.Nil(t, res.Step)
}

func TestEngine_ResetMidJourney(t *testing.T) {
	story := newStory(10)
	engine := runtime.NewEngine(story)
	state := domain.NewState("user")

	for i := 0; i < 5; i++ {
		_, err := engine.Submit(state, i, domain.LabelA)
		require.NoError(t, err)
	}
	require.Equal(t, 5, state.Cursor)

	engine.Restart(state)
	assert.Equal(t, 0, state.Cursor)
	assert.Empty(t, state.Choices)

	step, err := engine.Current(state)
	require.NoError(t, err)
	assert.Equal(t, story[0], step)
}

func TestEngine_CurrentWhenCompleted(t *testing.T) {
	engine := runtime.NewEngine(newStory(2))
	state := domain.NewState("user")
	_, _ = engine.Submit(state, 0, domain.LabelA)
	_, _ = engine.Submit(state, 1, domain.LabelB)

	_, err := engine.Current(state)
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
}

func TestEngine_InvalidLabelLeavesStateUntouched(t *testing.T) {
	engine := runtime.NewEngine(newStory(3))
	state := domain.NewState("user")
	_, err := engine.Submit(state, 0, domain.LabelA)
	require.NoError(t, err)

	for _, label := range []domain.Label{"C", "", "a"} {
		_, err := engine.Submit(state, 1, label)
		assert.ErrorIs(t, err, domain.ErrInvalidChoicePayload)
		assert.Equal(t, 1, state.Cursor)
		assert.Len(t, state.Choices, 1)
	}
}

func TestEngine_StaleIsIdempotent(t *testing.T) {
	engine := runtime.NewEngine(newStory(4))
	state := domain.NewState("user")
	_, _ = engine.Submit(state, 0, domain.LabelA)
	_, _ = engine.Submit(state, 1, domain.LabelA)
	before := state.Snapshot()

	for _, target := range []int{0, 1, 3, 99, -1, 0, 1} {
		res, err := engine.Submit(state, target, domain.LabelB)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeStale, res.Outcome)
	}
	assert.Equal(t, before, state)
}

func TestEngine_StaleAfterCompletion(t *testing.T) {
	engine := runtime.NewEngine(newStory(1))
	state := domain.NewState("user")
	res, err := engine.Submit(state, 0, domain.LabelB)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeCompleted, res.Outcome)

	res, err = engine.Submit(state, 0, domain.LabelB)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStale, res.Outcome)
	assert.Equal(t, 1, state.Cursor)
}

func TestEngine_CompletionLengthIsIndependentOfLabels(t *testing.T) {
	const total = 4
	engine := runtime.NewEngine(newStory(total))

	// Every combination of labels, encoded as the bits of mask.
	for mask := 0; mask < 1<<total; mask++ {
		state := domain.NewState("user")
		var res domain.Result
		for i := 0; i < total; i++ {
			label := domain.LabelA
			if mask&(1<<i) != 0 {
				label = domain.LabelB
			}
			require.Less(t, state.Cursor, total)

			var err error
			res, err = engine.Submit(state, state.Cursor, label)
			require.NoError(t, err)
			assert.Equal(t, i+1, state.Cursor)
			assert.Len(t, state.Choices, i+1)
			assert.NoError(t, engine.CheckInvariants(state))
		}
		assert.Equal(t, domain.OutcomeCompleted, res.Outcome, "mask %b", mask)
		assert.Equal(t, total, state.Cursor)
	}
}

func TestEngine_Progress(t *testing.T) {
	engine := runtime.NewEngine(newStory(2))
	state := domain.NewState("user")

	assert.Equal(t, domain.Progress{CurrentStep: 1, Total: 2}, engine.Progress(state))

	_, _ = engine.Submit(state, 0, domain.LabelA)
	_, _ = engine.Submit(state, 1, domain.LabelA)
	assert.Equal(t, domain.Progress{CurrentStep: 2, Total: 2, ChoicesMade: 2, Completed: true}, engine.Progress(state))
}

func TestEngine_InvariantViolation(t *testing.T) {
	engine := runtime.NewEngine(newStory(3))

	tests := map[string]*domain.State{
		"cursor beyond total": {Cursor: 4},
		"negative cursor":     {Cursor: -1},
		"log longer than cursor": {
			Cursor:  1,
			Choices: []domain.Choice{{StepIndex: 0}, {StepIndex: 1}},
		},
	}
	for name, state := range tests {
		t.Run(name, func(t *testing.T) {
			before := state.Snapshot()
			_, err := engine.Submit(state, state.Cursor, domain.LabelA)
			assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
			assert.Equal(t, before, state)

			_, err = engine.Current(state)
			assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
		})
	}
}
