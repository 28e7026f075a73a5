package domain

// Outcome classifies the result of a choice submission.
type Outcome string

const (
	OutcomeNextStep  Outcome = "next_step" // Choice accepted, another step awaits
	OutcomeStale     Outcome = "stale"     // Choice targeted a step other than the cursor; nothing changed
	OutcomeCompleted Outcome = "completed" // Choice accepted and the journey is over
)

// Result describes what a submitted choice did to a session.
type Result struct {
	Outcome Outcome `json:"outcome"`

	// Chosen is the accepted entry. Zero for stale submissions.
	Chosen Choice `json:"chosen"`

	// Step is the next step to present when Outcome is OutcomeNextStep.
	Step *Step `json:"step,omitempty"`

	// Choices holds a copy of the full log when Outcome is OutcomeCompleted.
	Choices []Choice `json:"choices,omitempty"`

	// Cursor is the session cursor after the submission.
	Cursor int `json:"cursor"`
}
