package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/storyline/pkg/domain"
)

// Chain combines hook sets. Each callback runs every non-nil member in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var start, reset []func(context.Context, *domain.SessionEvent)
	var choice, stale, invalid []func(context.Context, *domain.ChoiceEvent)
	var complete []func(context.Context, *domain.CompleteEvent)

	for _, h := range sets {
		if h.OnStart != nil {
			start = append(start, h.OnStart)
		}
		if h.OnReset != nil {
			reset = append(reset, h.OnReset)
		}
		if h.OnChoice != nil {
			choice = append(choice, h.OnChoice)
		}
		if h.OnStale != nil {
			stale = append(stale, h.OnStale)
		}
		if h.OnInvalid != nil {
			invalid = append(invalid, h.OnInvalid)
		}
		if h.OnComplete != nil {
			complete = append(complete, h.OnComplete)
		}
	}

	out.OnStart = fanOut(start)
	out.OnReset = fanOut(reset)
	out.OnChoice = fanOut(choice)
	out.OnStale = fanOut(stale)
	out.OnInvalid = fanOut(invalid)
	out.OnComplete = fanOut(complete)
	return out
}

func fanOut[E any](fns []func(context.Context, E)) func(context.Context, E) {
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}

// LoggingHooks logs every lifecycle event.
// Stale presses are expected races and stay at DEBUG; invalid payloads are WARN.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	session := func(ctx context.Context, e *domain.SessionEvent) {
		logger.InfoContext(ctx, string(e.Type), "session_id", e.SessionID)
	}
	return domain.LifecycleHooks{
		OnStart: session,
		OnReset: session,
		OnChoice: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.InfoContext(ctx, string(e.Type),
				"session_id", e.SessionID,
				"step", e.StepIndex,
				"label", e.Label,
				"cursor", e.Cursor,
			)
		},
		OnStale: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.DebugContext(ctx, string(e.Type),
				"session_id", e.SessionID,
				"step", e.StepIndex,
				"cursor", e.Cursor,
			)
		},
		OnInvalid: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.WarnContext(ctx, string(e.Type),
				"session_id", e.SessionID,
				"step", e.StepIndex,
				"err", e.Err,
			)
		},
		OnComplete: func(ctx context.Context, e *domain.CompleteEvent) {
			logger.InfoContext(ctx, string(e.Type),
				"session_id", e.SessionID,
				"choices", e.ChoiceCount,
			)
		},
	}
}
