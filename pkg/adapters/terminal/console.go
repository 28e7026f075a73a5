package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/internal/presentation/tui"
	"github.com/aretw0/storyline/pkg/domain"
	"golang.org/x/term"
)

// Dispatcher turns events into renders; see pkg/dispatch.
type Dispatcher interface {
	Handle(ctx context.Context, ev domain.Event) []domain.Render
	HandleCallback(ctx context.Context, sessionID, data string) []domain.Render
}

// Console runs one session against a reader and a writer.
type Console struct {
	dispatcher Dispatcher
	sessionID  string
	in         io.Reader
	out        io.Writer
	render     tui.Renderer
	logger     *slog.Logger
	maxInput   int
	restart    bool

	// lastStep is the index of the last step shown, or -1.
	lastStep int
}

// Option configures a Console.
type Option func(*Console)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Console) {
		if in != nil {
			c.in = in
		}
		if out != nil {
			c.out = out
		}
	}
}

// WithRenderer renders step text and endings as markdown.
func WithRenderer(r tui.Renderer) Option {
	return func(c *Console) {
		c.render = r
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxInputSize caps the length of an input line.
func WithMaxInputSize(n int) Option {
	return func(c *Console) {
		c.maxInput = n
	}
}

// WithRestart starts a fresh journey instead of resuming the stored one.
func WithRestart(restart bool) Option {
	return func(c *Console) {
		c.restart = restart
	}
}

// New creates a Console for sessionID.
func New(d Dispatcher, sessionID string, opts ...Option) *Console {
	c := &Console{
		dispatcher: d,
		sessionID:  sessionID,
		in:         os.Stdin,
		out:        os.Stdout,
		logger:     logging.NewNop(),
		maxInput:   DefaultMaxInputSize,
		lastStep:   -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type line struct {
	text string
	err  error
}

// Run shows the current step and processes input until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	first := domain.EventCurrent
	if c.restart {
		first = domain.EventStart
	}
	c.print(c.dispatcher.Handle(ctx, domain.Event{Kind: first, SessionID: c.sessionID}))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan line)
	go c.pump(ctx, lines)

	for {
		fmt.Fprint(c.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				return nil
			}
			if l.err != nil {
				return fmt.Errorf("failed to read input: %w", l.err)
			}
			if quit := c.handleLine(ctx, l.text); quit {
				return nil
			}
		}
	}
}

// pump reads lines until EOF or error, closing out when done.
func (c *Console) pump(ctx context.Context, out chan<- line) {
	defer close(out)
	reader := bufio.NewReader(c.in)
	for {
		text, err := reader.ReadString('\n')
		if text != "" {
			select {
			case out <- line{text: text}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case out <- line{err: err}:
				case <-ctx.Done():
				}
			}
			return
		}
	}
}

func (c *Console) handleLine(ctx context.Context, raw string) bool {
	text, err := SanitizeInput(raw, c.maxInput)
	if err != nil {
		c.logger.Warn("Rejected input", "session_id", c.sessionID, "err", err)
		fmt.Fprintln(c.out, "Input rejected:", err)
		return false
	}

	cmd := parseLine(text)
	switch cmd.kind {
	case cmdNone:
		return false
	case cmdQuit:
		return true
	case cmdCallback:
		c.print(c.dispatcher.HandleCallback(ctx, c.sessionID, cmd.data))
	case cmdChoice:
		if c.lastStep < 0 {
			c.print(c.dispatcher.Handle(ctx, domain.Event{Kind: domain.EventCurrent, SessionID: c.sessionID}))
			return false
		}
		c.print(c.dispatcher.Handle(ctx, domain.ChoiceEventFor(c.sessionID, c.lastStep, cmd.label)))
	case cmdEvent:
		c.print(c.dispatcher.Handle(ctx, domain.Event{Kind: cmd.event, SessionID: c.sessionID}))
	}
	return false
}

func (c *Console) print(renders []domain.Render) {
	for _, r := range renders {
		switch r.Kind {
		case domain.RenderStep:
			c.lastStep = r.StepIndex
			fmt.Fprintln(c.out)
			if r.Header != "" {
				fmt.Fprintln(c.out, r.Header)
			}
			fmt.Fprintln(c.out, c.markdown(r.Text))
			fmt.Fprintf(c.out, "  1) %s\n  2) %s\n", r.OptionA, r.OptionB)
			if r.Message != "" {
				fmt.Fprintln(c.out, r.Message)
			}
		case domain.RenderFinal:
			c.lastStep = -1
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, c.markdown(r.Message))
		default:
			fmt.Fprintln(c.out, r.Message)
		}
	}
}

func (c *Console) markdown(s string) string {
	if c.render == nil {
		return s
	}
	out, err := c.render(s)
	if err != nil {
		c.logger.Debug("Markdown rendering failed", "err", err)
		return s
	}
	return strings.TrimSpace(out)
}
