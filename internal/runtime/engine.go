package runtime

import (
	"fmt"

	"github.com/aretw0/storyline/pkg/domain"
)

// Story is the read-only view of the step sequence the engine walks.
type Story interface {
	Get(index int) (domain.Step, error)
	Len() int
}

// Engine is the core step-progression state machine.
// It holds no session state: every method works on the State it is given
// and never touches it unless the transition is accepted.
type Engine struct {
	story Story
}

// NewEngine creates an engine over the given story.
func NewEngine(story Story) *Engine {
	return &Engine{story: story}
}

// Total is the number of choices that completes a journey.
func (e *Engine) Total() int {
	return e.story.Len()
}

// Restart puts the state back at the first step with an empty log.
// It is allowed from any state, including a completed one.
func (e *Engine) Restart(state *domain.State) {
	state.Cursor = 0
	state.Choices = []domain.Choice{}
}

// Current returns the step awaiting a choice.
func (e *Engine) Current(state *domain.State) (domain.Step, error) {
	if err := e.CheckInvariants(state); err != nil {
		return domain.Step{}, err
	}
	if state.Completed(e.Total()) {
		return domain.Step{}, domain.ErrSessionCompleted
	}
	return e.story.Get(state.Cursor)
}

// Submit applies a choice for the step at targetIndex.
//
// A choice for any index other than the cursor is stale: the state is left as is
// and the result carries OutcomeStale with a nil error.
func (e *Engine) Submit(state *domain.State, targetIndex int, label domain.Label) (domain.Result, error) {
	if !label.Valid() {
		return domain.Result{}, fmt.Errorf("%w: unknown label %q", domain.ErrInvalidChoicePayload, label)
	}
	if err := e.CheckInvariants(state); err != nil {
		return domain.Result{}, err
	}

	if targetIndex != state.Cursor || state.Completed(e.Total()) {
		return domain.Result{Outcome: domain.OutcomeStale, Cursor: state.Cursor}, nil
	}

	step, err := e.story.Get(targetIndex)
	if err != nil {
		return domain.Result{}, err
	}

	chosen := domain.Choice{
		StepIndex: targetIndex,
		Label:     label,
		Text:      step.Option(label),
	}

	// Resolve the next step before mutating so a failure leaves the state untouched.
	next := targetIndex + 1
	var nextStep *domain.Step
	if next < e.Total() {
		s, err := e.story.Get(next)
		if err != nil {
			return domain.Result{}, err
		}
		nextStep = &s
	}

	state.Choices = append(state.Choices, chosen)
	state.Cursor = next

	if nextStep == nil {
		history := make([]domain.Choice, len(state.Choices))
		copy(history, state.Choices)
		return domain.Result{
			Outcome: domain.OutcomeCompleted,
			Chosen:  chosen,
			Choices: history,
			Cursor:  state.Cursor,
		}, nil
	}

	return domain.Result{
		Outcome: domain.OutcomeNextStep,
		Chosen:  chosen,
		Step:    nextStep,
		Cursor:  state.Cursor,
	}, nil
}

// Progress returns the display position of the session.
func (e *Engine) Progress(state *domain.State) domain.Progress {
	total := e.Total()
	current := state.Cursor + 1
	if current > total {
		current = total
	}
	return domain.Progress{
		CurrentStep: current,
		Total:       total,
		ChoicesMade: len(state.Choices),
		Completed:   state.Completed(total),
	}
}

// CheckInvariants verifies 0 <= len(Choices) <= Cursor <= Total.
// A violation means the state drifted from the story and is reported as ErrIndexOutOfRange.
func (e *Engine) CheckInvariants(state *domain.State) error {
	total := e.Total()
	if state.Cursor < 0 || state.Cursor > total {
		return fmt.Errorf("%w: cursor %d outside [0, %d]", domain.ErrIndexOutOfRange, state.Cursor, total)
	}
	if len(state.Choices) > state.Cursor {
		return fmt.Errorf("%w: %d choices recorded at cursor %d", domain.ErrIndexOutOfRange, len(state.Choices), state.Cursor)
	}
	return nil
}
