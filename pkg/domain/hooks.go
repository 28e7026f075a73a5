package domain

import (
	"context"
	"time"
)

// HookType defines the category of a lifecycle notification.
type HookType string

const (
	HookStart    HookType = "session_start"
	HookReset    HookType = "session_reset"
	HookChoice   HookType = "choice_accepted"
	HookStale    HookType = "choice_stale"
	HookComplete HookType = "journey_complete"
	HookInvalid  HookType = "choice_invalid"
)

// HookBase contains common fields for all lifecycle notifications.
type HookBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      HookType  `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent is emitted when a session is started or reset.
type SessionEvent struct {
	HookBase
}

// ChoiceEvent is emitted for accepted, stale and invalid choices.
type ChoiceEvent struct {
	HookBase
	StepIndex int    `json:"step"`
	Label     Label  `json:"label,omitempty"`
	Cursor    int    `json:"cursor"`
	Err       string `json:"error,omitempty"`
}

// CompleteEvent is emitted when a journey reaches its ending.
type CompleteEvent struct {
	HookBase
	ChoiceCount int `json:"choice_count"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStart    func(context.Context, *SessionEvent)
	OnReset    func(context.Context, *SessionEvent)
	OnChoice   func(context.Context, *ChoiceEvent)
	OnStale    func(context.Context, *ChoiceEvent)
	OnComplete func(context.Context, *CompleteEvent)
	OnInvalid  func(context.Context, *ChoiceEvent)
}
