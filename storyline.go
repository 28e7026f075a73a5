package storyline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/internal/runtime"
	"github.com/aretw0/storyline/pkg/adapters/memory"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/ports"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/aretw0/storyline/pkg/story"
)

// Engine is the high-level entry point of the library.
// It applies the step state machine to stored sessions, one mutation per session at a time.
type Engine struct {
	story    *story.Store
	runtime  *runtime.Engine
	sessions *session.Manager

	store   ports.StateStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session state backend (default: in-memory).
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed locking, for replicas sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for state timestamps and hooks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes an Engine over a validated story.
func New(st *story.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: no story given", domain.ErrStoryNotFound)
	}

	eng := &Engine{story: st}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.now == nil {
		eng.now = time.Now
	}

	managerOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithLockTTL(eng.lockTTL),
	}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}

	eng.runtime = runtime.NewEngine(st)
	eng.sessions = session.NewManager(eng.store, managerOpts...)

	return eng, nil
}

// Story returns the story the engine walks.
func (e *Engine) Story() *story.Store {
	return e.story
}

// Total is the number of steps of every journey.
func (e *Engine) Total() int {
	return e.runtime.Total()
}

func (e *Engine) timestamp() time.Time {
	return e.now().UTC()
}

// Start puts the session at the first step with an empty log, creating it if needed.
func (e *Engine) Start(ctx context.Context, sessionID string) (*domain.State, error) {
	return e.restart(ctx, sessionID, domain.HookStart, e.hooks.OnStart)
}

// Reset is Start for a user asking to begin again. It is allowed from any state.
func (e *Engine) Reset(ctx context.Context, sessionID string) (*domain.State, error) {
	return e.restart(ctx, sessionID, domain.HookReset, e.hooks.OnReset)
}

func (e *Engine) restart(ctx context.Context, sessionID string, kind domain.HookType, hook func(context.Context, *domain.SessionEvent)) (*domain.State, error) {
	now := e.timestamp()
	state, err := e.sessions.Mutate(ctx, sessionID, func(s *domain.State) (bool, error) {
		e.runtime.Restart(s)
		s.StartedAt = now
		s.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Session restarted", "session_id", sessionID, "type", kind)
	if hook != nil {
		hook(ctx, &domain.SessionEvent{
			HookBase: domain.HookBase{Timestamp: now, Type: kind, SessionID: sessionID},
		})
	}
	return state, nil
}

// State returns a snapshot of the session, creating it at the first step on first use.
func (e *Engine) State(ctx context.Context, sessionID string) (*domain.State, error) {
	now := e.timestamp()
	return e.sessions.Mutate(ctx, sessionID, func(s *domain.State) (bool, error) {
		if !s.StartedAt.IsZero() {
			return false, nil
		}
		s.StartedAt = now
		s.UpdatedAt = now
		return true, nil
	})
}

// Current returns the step awaiting a choice.
// It fails with domain.ErrSessionCompleted once the journey is over.
func (e *Engine) Current(ctx context.Context, sessionID string) (domain.Step, error) {
	state, err := e.State(ctx, sessionID)
	if err != nil {
		return domain.Step{}, err
	}
	return e.runtime.Current(state)
}

// Progress returns the display position of the session.
func (e *Engine) Progress(ctx context.Context, sessionID string) (domain.Progress, error) {
	state, err := e.State(ctx, sessionID)
	if err != nil {
		return domain.Progress{}, err
	}
	return e.runtime.Progress(state), nil
}

// Submit applies the choice label for the step at targetIndex.
//
// A choice for any step other than the current one is stale: nothing is written and the
// result carries domain.OutcomeStale. Concurrent submissions for the same step are
// serialized, so exactly one of them is accepted.
func (e *Engine) Submit(ctx context.Context, sessionID string, targetIndex int, label domain.Label) (*domain.Result, error) {
	now := e.timestamp()

	var result domain.Result
	_, err := e.sessions.Mutate(ctx, sessionID, func(s *domain.State) (bool, error) {
		res, err := e.runtime.Submit(s, targetIndex, label)
		if err != nil {
			return false, err
		}
		result = res
		if res.Outcome == domain.OutcomeStale {
			return false, nil
		}
		if s.StartedAt.IsZero() {
			s.StartedAt = now
		}
		s.UpdatedAt = now
		return true, nil
	})

	base := domain.HookBase{Timestamp: now, SessionID: sessionID}

	if err != nil {
		if errors.Is(err, domain.ErrInvalidChoicePayload) && e.hooks.OnInvalid != nil {
			base.Type = domain.HookInvalid
			e.hooks.OnInvalid(ctx, &domain.ChoiceEvent{
				HookBase:  base,
				StepIndex: targetIndex,
				Label:     label,
				Err:       err.Error(),
			})
		}
		return nil, err
	}

	switch result.Outcome {
	case domain.OutcomeStale:
		e.logger.Debug("Stale choice ignored", "session_id", sessionID, "step", targetIndex, "cursor", result.Cursor)
		if e.hooks.OnStale != nil {
			base.Type = domain.HookStale
			e.hooks.OnStale(ctx, &domain.ChoiceEvent{
				HookBase:  base,
				StepIndex: targetIndex,
				Label:     label,
				Cursor:    result.Cursor,
			})
		}
	default:
		e.logger.Debug("Choice accepted", "session_id", sessionID, "step", targetIndex, "label", label)
		if e.hooks.OnChoice != nil {
			base.Type = domain.HookChoice
			e.hooks.OnChoice(ctx, &domain.ChoiceEvent{
				HookBase:  base,
				StepIndex: targetIndex,
				Label:     label,
				Cursor:    result.Cursor,
			})
		}
		if result.Outcome == domain.OutcomeCompleted && e.hooks.OnComplete != nil {
			base.Type = domain.HookComplete
			e.hooks.OnComplete(ctx, &domain.CompleteEvent{
				HookBase:    base,
				ChoiceCount: len(result.Choices),
			})
		}
	}

	return &result, nil
}

// Delete forgets the session. The next event from the user starts over.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// List returns the ids of the stored sessions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}
