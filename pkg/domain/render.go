package domain

// RenderKind tells a transport how to present a Render.
type RenderKind string

const (
	// RenderStep presents a step with its two options.
	RenderStep RenderKind = "step"
	// RenderFinal presents the fixed ending.
	RenderFinal RenderKind = "final"
	// RenderError presents a user-facing error message.
	RenderError RenderKind = "error"
	// RenderNotice presents an informational message (welcome, help, progress).
	RenderNotice RenderKind = "notice"
	// RenderAccepted echoes an accepted choice, usually by editing the step message.
	RenderAccepted RenderKind = "accepted"
	// RenderStale acknowledges a press on an already passed step.
	RenderStale RenderKind = "stale"
)

// Render is an instruction for a transport to deliver.
type Render struct {
	Kind RenderKind `json:"kind"`

	// StepIndex is the 0-based index of the step a step/accepted render refers to.
	StepIndex int `json:"step_index"`

	// Header is the progress line of a step render, e.g. "Step 3/100".
	Header string `json:"header,omitempty"`

	// Text is the narrative text of the step.
	Text    string `json:"text,omitempty"`
	OptionA string `json:"option_a,omitempty"`
	OptionB string `json:"option_b,omitempty"`

	// ChoiceCount is the number of choices made, set on final renders.
	ChoiceCount int `json:"choice_count,omitempty"`

	// Message is the user-facing text for non-step renders, or the prompt of a step.
	Message string `json:"message,omitempty"`
}

// Body joins the header, text and prompt of a step render into one message.
// Other kinds return Message.
func (r Render) Body() string {
	if r.Kind != RenderStep {
		return r.Message
	}
	body := r.Text
	if r.Header != "" {
		body = r.Header + "\n\n" + body
	}
	if r.Message != "" {
		body += "\n\n" + r.Message
	}
	return body
}
