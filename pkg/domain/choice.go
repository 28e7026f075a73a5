package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Label identifies one of the two options of a step.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
)

// CallbackPrefix is the kind tag of the delimited choice payload used by chat transports.
const CallbackPrefix = "choose"

// Valid reports whether the label is one of the two known options.
func (l Label) Valid() bool {
	return l == LabelA || l == LabelB
}

// ParseLabel normalizes user or transport input into a Label.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseLabel(s string) (Label, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return LabelA, nil
	case "B":
		return LabelB, nil
	default:
		return "", fmt.Errorf("%w: unknown label %q", ErrInvalidChoicePayload, s)
	}
}

// Choice is an accepted entry of a session's choice log.
type Choice struct {
	StepIndex int    `json:"step"`
	Label     Label  `json:"label"`
	Text      string `json:"text"`
}

// FormatCallbackData encodes a choice as "choose|<index>|<a|b>".
func FormatCallbackData(stepIndex int, label Label) string {
	return CallbackPrefix + "|" + strconv.Itoa(stepIndex) + "|" + strings.ToLower(string(label))
}

// ParseCallbackData decodes a payload produced by FormatCallbackData.
// Any other shape is rejected with ErrInvalidChoicePayload.
func ParseCallbackData(data string) (int, Label, error) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != CallbackPrefix {
		return 0, "", fmt.Errorf("%w: malformed callback %q", ErrInvalidChoicePayload, data)
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return 0, "", fmt.Errorf("%w: bad step index in %q", ErrInvalidChoicePayload, data)
	}

	label, err := ParseLabel(parts[2])
	if err != nil {
		return 0, "", err
	}
	return index, label, nil
}
