package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultConcurrency bounds how many updates are handled at once.
const DefaultConcurrency = 16

// pollTimeout is the long polling timeout in seconds.
const pollTimeout = 60

// Sender is the subset of *tgbotapi.BotAPI used to deliver renders.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UpdateSource is the subset of *tgbotapi.BotAPI used to receive updates.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Dispatcher turns events into renders; see pkg/dispatch.
type Dispatcher interface {
	Handle(ctx context.Context, ev domain.Event) []domain.Render
	HandleCallback(ctx context.Context, sessionID, data string) []domain.Render
}

// Bot connects Telegram updates to the dispatcher.
type Bot struct {
	sender     Sender
	dispatcher Dispatcher
	logger     *slog.Logger
	workers    int
}

// Option configures the Bot.
type Option func(*Bot)

// WithLogger configures a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithConcurrency sets how many updates are processed in parallel.
func WithConcurrency(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.workers = n
		}
	}
}

// New creates a Bot delivering through sender.
func New(sender Sender, dispatcher Dispatcher, opts ...Option) *Bot {
	b := &Bot{
		sender:     sender,
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
		workers:    DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect authenticates with the Bot API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, nil
}

// Run polls updates from source until ctx is done, then waits for in-flight updates.
func (b *Bot) Run(ctx context.Context, source UpdateSource) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := source.GetUpdatesChan(u)

	var stopOnce sync.Once
	stop := func() { stopOnce.Do(source.StopReceivingUpdates) }
	defer stop()

	// In-flight updates finish even after ctx is cancelled.
	handlerCtx := context.WithoutCancel(ctx)

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping telegram bot")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				b.HandleUpdate(handlerCtx, update)
			}()
		}
	}
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// commandEvents maps bot commands to dispatcher events.
var commandEvents = map[string]domain.EventKind{
	"start":    domain.EventStart,
	"reset":    domain.EventReset,
	"progress": domain.EventProgress,
	"help":     domain.EventHelp,
	"step":     domain.EventCurrent,
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	kind, ok := commandEvents[msg.Command()]
	if !ok {
		kind = domain.EventHelp
	}

	sessionID := sessionKey(msg.From)
	renders := b.dispatcher.Handle(ctx, domain.Event{Kind: kind, SessionID: sessionID})
	for _, r := range renders {
		b.send(msg.Chat.ID, r)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		b.answer(cq.ID, "")
		return
	}

	renders := b.dispatcher.HandleCallback(ctx, sessionKey(cq.From), cq.Data)

	answer := ""
	for _, r := range renders {
		switch r.Kind {
		case domain.RenderStale:
			answer = r.Message
		case domain.RenderAccepted, domain.RenderError:
			if cq.Message != nil && cq.Message.Chat != nil {
				b.edit(cq.Message.Chat.ID, cq.Message.MessageID, r.Message)
			} else if r.Kind == domain.RenderError {
				b.logger.Warn("Cannot show error for a callback without message", "session_id", sessionKey(cq.From))
			}
		default:
			if cq.Message != nil && cq.Message.Chat != nil {
				b.send(cq.Message.Chat.ID, r)
			}
		}
	}
	b.answer(cq.ID, answer)
}

// send delivers a render as a new message; step renders carry the choice keyboard.
func (b *Bot) send(chatID int64, r domain.Render) {
	msg := tgbotapi.NewMessage(chatID, r.Body())
	if r.Kind == domain.RenderStep {
		msg.ReplyMarkup = keyboard(r)
	}
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "kind", r.Kind, "err", err)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.sender.Send(edit); err != nil {
		// Old messages cannot be edited; the next step is still delivered.
		b.logger.Debug("Failed to edit message", "chat_id", chatID, "message_id", messageID, "err", err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Warn("Failed to answer callback", "callback_id", callbackID, "err", err)
	}
}

func keyboard(r domain.Render) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(r.OptionA, domain.FormatCallbackData(r.StepIndex, domain.LabelA)),
			tgbotapi.NewInlineKeyboardButtonData(r.OptionB, domain.FormatCallbackData(r.StepIndex, domain.LabelB)),
		),
	)
}

func sessionKey(user *tgbotapi.User) string {
	return strconv.FormatInt(user.ID, 10)
}
