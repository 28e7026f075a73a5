package domain

// EventKind identifies an inbound request from a transport.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventReset    EventKind = "reset"
	EventProgress EventKind = "progress"
	EventHelp     EventKind = "help"
	EventCurrent  EventKind = "current"
	EventChoice   EventKind = "choice"
)

// Event is a validated, structured request delivered by a transport.
// StepIndex and Label are only meaningful for EventChoice.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	StepIndex int       `json:"step,omitempty"`
	Label     Label     `json:"label,omitempty"`
}

// ChoiceEventFor builds a choice event.
func ChoiceEventFor(sessionID string, stepIndex int, label Label) Event {
	return Event{
		Kind:      EventChoice,
		SessionID: sessionID,
		StepIndex: stepIndex,
		Label:     label,
	}
}
