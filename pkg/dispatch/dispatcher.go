package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/story"
)

// Engine is the part of storyline.Engine the dispatcher drives.
type Engine interface {
	Start(ctx context.Context, sessionID string) (*domain.State, error)
	Reset(ctx context.Context, sessionID string) (*domain.State, error)
	Current(ctx context.Context, sessionID string) (domain.Step, error)
	Progress(ctx context.Context, sessionID string) (domain.Progress, error)
	Submit(ctx context.Context, sessionID string, targetIndex int, label domain.Label) (*domain.Result, error)
	Story() *story.Store
	Total() int
}

// Dispatcher turns inbound events into render instructions.
// It is safe for concurrent use; serialization per session is the Engine's job.
type Dispatcher struct {
	engine   Engine
	messages Messages
	catalog  *catalog
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithMessages replaces the default English texts.
func WithMessages(m Messages) Option {
	return func(d *Dispatcher) {
		d.messages = m
	}
}

// WithLogger configures a logger for rejected and failed events.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLifecycleHooks registers hooks for events rejected before they reach the Engine.
// Only OnInvalid is used: the Engine reports everything else.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// New creates a Dispatcher. It fails if a message template does not parse.
func New(engine Engine, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		engine:   engine,
		messages: DefaultMessages(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	c, err := d.messages.compile()
	if err != nil {
		return nil, err
	}
	d.catalog = c
	return d, nil
}

// HandleCallback parses a delimited callback payload ("choose|<idx>|<a|b>") and
// handles the resulting choice. Malformed payloads yield a single error render.
func (d *Dispatcher) HandleCallback(ctx context.Context, sessionID, data string) []domain.Render {
	index, label, err := domain.ParseCallbackData(data)
	if err != nil {
		return d.Reject(ctx, sessionID, err)
	}
	return d.Handle(ctx, domain.ChoiceEventFor(sessionID, index, label))
}

// Reject reports a payload a transport could not parse and returns the
// generic invalid-payload render. The session is not touched.
func (d *Dispatcher) Reject(ctx context.Context, sessionID string, err error) []domain.Render {
	d.reject(ctx, sessionID, -1, "", err)
	return []domain.Render{d.errorRender(d.catalog.invalid)}
}

// Handle runs one event and returns what the transport must deliver, in order.
func (d *Dispatcher) Handle(ctx context.Context, ev domain.Event) (renders []domain.Render) {
	logger := d.logger.With("session_id", ev.SessionID, "event", ev.Kind)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Event handler panicked", "panic", fmt.Sprint(r))
			renders = []domain.Render{d.errorRender(d.catalog.err)}
		}
	}()

	if ev.SessionID == "" {
		return d.fail(ctx, logger, ev, fmt.Errorf("%w: missing session id", domain.ErrInvalidChoicePayload))
	}

	switch ev.Kind {
	case domain.EventStart:
		if _, err := d.engine.Start(ctx, ev.SessionID); err != nil {
			return d.fail(ctx, logger, ev, err)
		}
		return d.withFirstStep(ctx, logger, ev, d.notice(d.catalog.welcome, d.baseData()))

	case domain.EventReset:
		if _, err := d.engine.Reset(ctx, ev.SessionID); err != nil {
			return d.fail(ctx, logger, ev, err)
		}
		return d.withFirstStep(ctx, logger, ev, d.notice(d.catalog.reset, d.baseData()))

	case domain.EventHelp:
		return []domain.Render{d.notice(d.catalog.help, d.baseData())}

	case domain.EventProgress:
		p, err := d.engine.Progress(ctx, ev.SessionID)
		if err != nil {
			return d.fail(ctx, logger, ev, err)
		}
		return []domain.Render{d.notice(d.catalog.progress, MessageData{
			StepID:      p.CurrentStep,
			Total:       p.Total,
			ChoicesMade: p.ChoicesMade,
		})}

	case domain.EventCurrent:
		step, err := d.engine.Current(ctx, ev.SessionID)
		if errors.Is(err, domain.ErrSessionCompleted) {
			return []domain.Render{d.notice(d.catalog.completed, d.baseData())}
		}
		if err != nil {
			return d.fail(ctx, logger, ev, err)
		}
		return []domain.Render{d.stepRender(step.ID-1, step)}

	case domain.EventChoice:
		return d.choose(ctx, logger, ev)
	}

	return d.fail(ctx, logger, ev, fmt.Errorf("%w: unknown event kind %q", domain.ErrInvalidChoicePayload, ev.Kind))
}

func (d *Dispatcher) choose(ctx context.Context, logger *slog.Logger, ev domain.Event) []domain.Render {
	if ev.StepIndex < 0 {
		return d.fail(ctx, logger, ev, fmt.Errorf("%w: negative step index %d", domain.ErrInvalidChoicePayload, ev.StepIndex))
	}

	res, err := d.engine.Submit(ctx, ev.SessionID, ev.StepIndex, ev.Label)
	if err != nil {
		// The Engine already reported invalid labels through its own hooks.
		if errors.Is(err, domain.ErrInvalidChoicePayload) {
			logger.Warn("Rejected choice", "step", ev.StepIndex, "label", ev.Label, "err", err)
			return []domain.Render{d.errorRender(d.catalog.invalid)}
		}
		return d.fail(ctx, logger, ev, err)
	}

	switch res.Outcome {
	case domain.OutcomeStale:
		return []domain.Render{{
			Kind:      domain.RenderStale,
			StepIndex: ev.StepIndex,
			Message:   execute(d.catalog.stale, d.baseData()),
		}}

	case domain.OutcomeCompleted:
		return []domain.Render{
			d.acceptedRender(logger, ev.StepIndex, res.Chosen),
			{
				Kind:        domain.RenderFinal,
				ChoiceCount: len(res.Choices),
				Message: execute(d.catalog.final, MessageData{
					Total:       d.engine.Total(),
					ChoicesMade: len(res.Choices),
				}),
			},
		}

	default:
		if res.Step == nil {
			return d.fail(ctx, logger, ev, fmt.Errorf("%w: accepted choice without a next step", domain.ErrIndexOutOfRange))
		}
		return []domain.Render{
			d.acceptedRender(logger, ev.StepIndex, res.Chosen),
			d.stepRender(res.Cursor, *res.Step),
		}
	}
}

// withFirstStep appends the first step after a notice.
func (d *Dispatcher) withFirstStep(ctx context.Context, logger *slog.Logger, ev domain.Event, notice domain.Render) []domain.Render {
	step, err := d.engine.Story().Get(0)
	if err != nil {
		return d.fail(ctx, logger, ev, err)
	}
	return []domain.Render{notice, d.stepRender(0, step)}
}

// fail converts a per-event error into a single error render.
func (d *Dispatcher) fail(ctx context.Context, logger *slog.Logger, ev domain.Event, err error) []domain.Render {
	switch {
	case errors.Is(err, domain.ErrInvalidChoicePayload):
		d.reject(ctx, ev.SessionID, ev.StepIndex, ev.Label, err)
		return []domain.Render{d.errorRender(d.catalog.invalid)}
	case errors.Is(err, domain.ErrIndexOutOfRange):
		logger.Error("Session state is out of sync with the story", "err", err)
	default:
		logger.Error("Failed to handle event", "err", err)
	}
	return []domain.Render{d.errorRender(d.catalog.err)}
}

// reject logs and reports a payload refused before reaching the Engine.
func (d *Dispatcher) reject(ctx context.Context, sessionID string, index int, label domain.Label, err error) {
	d.logger.Warn("Rejected payload", "session_id", sessionID, "err", err)
	if d.hooks.OnInvalid != nil {
		d.hooks.OnInvalid(ctx, &domain.ChoiceEvent{
			HookBase: domain.HookBase{
				Timestamp: time.Now().UTC(),
				Type:      domain.HookInvalid,
				SessionID: sessionID,
			},
			StepIndex: index,
			Label:     label,
			Err:       err.Error(),
		})
	}
}

func (d *Dispatcher) baseData() MessageData {
	return MessageData{Total: d.engine.Total()}
}

func (d *Dispatcher) notice(tmpl *template.Template, data MessageData) domain.Render {
	return domain.Render{
		Kind:    domain.RenderNotice,
		Message: execute(tmpl, data),
	}
}

func (d *Dispatcher) errorRender(tmpl *template.Template) domain.Render {
	return domain.Render{
		Kind:    domain.RenderError,
		Message: execute(tmpl, d.baseData()),
	}
}

func (d *Dispatcher) stepRender(index int, step domain.Step) domain.Render {
	data := MessageData{
		StepID: step.ID,
		Total:  d.engine.Total(),
		Text:   step.Text,
	}
	return domain.Render{
		Kind:      domain.RenderStep,
		StepIndex: index,
		Header:    execute(d.catalog.header, data),
		Text:      step.Text,
		OptionA:   step.OptionA,
		OptionB:   step.OptionB,
		Message:   execute(d.catalog.prompt, data),
	}
}

// acceptedRender echoes the answered step. If the step cannot be read back the
// echo still carries the chosen option.
func (d *Dispatcher) acceptedRender(logger *slog.Logger, index int, chosen domain.Choice) domain.Render {
	step, err := d.engine.Story().Get(index)
	if err != nil {
		logger.Error("Failed to read answered step", "step", index, "err", err)
		step = domain.Step{ID: index + 1}
	}
	return domain.Render{
		Kind:      domain.RenderAccepted,
		StepIndex: index,
		Text:      step.Text,
		Message: execute(d.catalog.accepted, MessageData{
			StepID: step.ID,
			Total:  d.engine.Total(),
			Text:   step.Text,
			Choice: chosen.Text,
		}),
	}
}
