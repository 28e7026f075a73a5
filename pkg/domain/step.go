package domain

// Step is one point of the fixed-length story.
// ID is 1-based and equals the position of the step in the story.
type Step struct {
	ID      int    `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	OptionA string `json:"a" yaml:"a"`
	OptionB string `json:"b" yaml:"b"`
}

// Option returns the display text for the given label.
// It returns an empty string for an invalid label.
func (s Step) Option(label Label) string {
	switch label {
	case LabelA:
		return s.OptionA
	case LabelB:
		return s.OptionB
	default:
		return ""
	}
}
