package telegram_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/storyline"
	"github.com/aretw0/storyline/internal/testutils"
	"github.com/aretw0/storyline/pkg/adapters/telegram"
	"github.com/aretw0/storyline/pkg/dispatch"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	edits    []tgbotapi.EditMessageTextConfig
	answers  []tgbotapi.CallbackConfig
	sendErr  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		f.messages = append(f.messages, v)
	case tgbotapi.EditMessageTextConfig:
		f.edits = append(f.edits, v)
	default:
		return tgbotapi.Message{}, fmt.Errorf("unexpected chattable %T", c)
	}
	return tgbotapi.Message{MessageID: len(f.messages)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := c.(tgbotapi.CallbackConfig); ok {
		f.answers = append(f.answers, v)
		return &tgbotapi.APIResponse{Ok: true}, nil
	}
	return nil, fmt.Errorf("unexpected chattable %T", c)
}

func (f *fakeSender) snapshot() ([]tgbotapi.MessageConfig, []tgbotapi.EditMessageTextConfig, []tgbotapi.CallbackConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.messages...),
		append([]tgbotapi.EditMessageTextConfig(nil), f.edits...),
		append([]tgbotapi.CallbackConfig(nil), f.answers...)
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped int
	mu      sync.Mutex
}

func (f *fakeSource) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.ch
}

func (f *fakeSource) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func newBot(t *testing.T, steps int) (*telegram.Bot, *fakeSender) {
	t.Helper()
	eng, err := storyline.New(testutils.Story(t, steps))
	require.NoError(t, err)
	d, err := dispatch.New(eng)
	require.NoError(t, err)

	sender := &fakeSender{}
	return telegram.New(sender, d), sender
}

const (
	userID int64 = 42
	chatID int64 = 1001
)

func command(cmd string) tgbotapi.Update {
	text := "/" + cmd
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userID},
			Chat:      &tgbotapi.Chat{ID: chatID},
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		},
	}
}

func press(id, data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   id,
			From: &tgbotapi.User{ID: userID},
			Data: data,
			Message: &tgbotapi.Message{
				MessageID: messageID,
				Chat:      &tgbotapi.Chat{ID: chatID},
			},
		},
	}
}

func TestBot_StartSendsWelcomeAndKeyboard(t *testing.T) {
	bot, sender := newBot(t, 3)

	bot.HandleUpdate(context.Background(), command("start"))

	messages, _, _ := sender.snapshot()
	require.Len(t, messages, 2)
	assert.Equal(t, chatID, messages[0].ChatID)
	assert.Nil(t, messages[0].ReplyMarkup)

	assert.Contains(t, messages[1].Text, "Step 1/3")
	assert.Contains(t, messages[1].Text, "Text 1")
	markup, ok := messages[1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "A1", row[0].Text)
	assert.Equal(t, "choose|0|a", *row[0].CallbackData)
	assert.Equal(t, "B1", row[1].Text)
	assert.Equal(t, "choose|0|b", *row[1].CallbackData)
}

func TestBot_ChoiceEditsAndAdvances(t *testing.T) {
	bot, sender := newBot(t, 3)
	ctx := context.Background()

	bot.HandleUpdate(ctx, command("start"))
	bot.HandleUpdate(ctx, press("cb1", "choose|0|b", 7))

	messages, edits, answers := sender.snapshot()
	require.Len(t, edits, 1)
	assert.Equal(t, 7, edits[0].MessageID)
	assert.Contains(t, edits[0].Text, "B1")

	require.Len(t, messages, 3)
	assert.Contains(t, messages[2].Text, "Step 2/3")

	require.Len(t, answers, 1)
	assert.Equal(t, "cb1", answers[0].CallbackQueryID)
	assert.Empty(t, answers[0].Text)
}

func TestBot_StalePressAnswersOnly(t *testing.T) {
	bot, sender := newBot(t, 3)
	ctx := context.Background()

	bot.HandleUpdate(ctx, command("start"))
	bot.HandleUpdate(ctx, press("cb1", "choose|0|a", 7))
	bot.HandleUpdate(ctx, press("cb2", "choose|0|b", 7))

	messages, edits, answers := sender.snapshot()
	assert.Len(t, messages, 3)
	assert.Len(t, edits, 1)
	require.Len(t, answers, 2)
	assert.Equal(t, "cb2", answers[1].CallbackQueryID)
	assert.Equal(t, "This step has already been passed.", answers[1].Text)
}

func TestBot_FinalMessage(t *testing.T) {
	bot, sender := newBot(t, 2)
	ctx := context.Background()

	bot.HandleUpdate(ctx, command("start"))
	bot.HandleUpdate(ctx, press("cb1", "choose|0|a", 2))
	bot.HandleUpdate(ctx, press("cb2", "choose|1|a", 3))

	messages, _, answers := sender.snapshot()
	last := messages[len(messages)-1]
	assert.Nil(t, last.ReplyMarkup)
	assert.NotContains(t, last.Text, "Step")
	assert.Len(t, answers, 2)
}

func TestBot_InvalidPayloadEditsError(t *testing.T) {
	bot, sender := newBot(t, 3)
	ctx := context.Background()

	bot.HandleUpdate(ctx, command("start"))
	bot.HandleUpdate(ctx, press("cb1", "garbage", 5))

	messages, edits, answers := sender.snapshot()
	assert.Len(t, messages, 2)
	require.Len(t, edits, 1)
	assert.Equal(t, 5, edits[0].MessageID)
	require.Len(t, answers, 1)
}

func TestBot_Commands(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{cmd: "progress", want: "step 1 of 3"},
		{cmd: "step", want: "Step 1/3"},
		{cmd: "unknown", want: "/start"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			bot, sender := newBot(t, 3)
			bot.HandleUpdate(context.Background(), command(tt.cmd))

			messages, _, _ := sender.snapshot()
			require.NotEmpty(t, messages)
			assert.Contains(t, messages[0].Text, tt.want)
		})
	}
}

func TestBot_IgnoresPlainText(t *testing.T) {
	bot, sender := newBot(t, 3)
	bot.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: "hello",
		},
	})

	messages, _, _ := sender.snapshot()
	assert.Empty(t, messages)
}

func TestBot_SendFailureDoesNotPanic(t *testing.T) {
	bot, sender := newBot(t, 3)
	sender.sendErr = errors.New("network down")

	assert.NotPanics(t, func() {
		bot.HandleUpdate(context.Background(), command("start"))
		bot.HandleUpdate(context.Background(), press("cb1", "choose|0|a", 1))
	})

	_, _, answers := sender.snapshot()
	assert.Len(t, answers, 1)
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	bot, sender := newBot(t, 3)
	source := &fakeSource{ch: make(chan tgbotapi.Update, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx, source) }()

	source.ch <- command("start")
	require.Eventually(t, func() bool {
		messages, _, _ := sender.snapshot()
		return len(messages) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Equal(t, 1, source.stopped)
}
