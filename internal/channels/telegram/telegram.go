// Package telegram connects the agent router to the Telegram Bot API
// using long polling.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/openclaw/internal/channels"
)

// Telegram caps messages at 4096 chars; replies are chunked below that.
const maxMessageLen = 4000

// Channel polls Telegram for messages and replies through the dispatcher.
type Channel struct {
	bot        *telego.Bot
	dispatcher channels.Dispatcher
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

func New(token string, dispatcher channels.Dispatcher) (*Channel, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Channel{bot: bot, dispatcher: dispatcher}, nil
}

func (c *Channel) Name() string { return "telegram" }

// Start begins long polling for updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram bot connected", "username", c.bot.Username())

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				if update.Message != nil && update.Message.Text != "" {
					c.handleMessage(pollCtx, update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop cancels long polling and waits for the polling goroutine so
// Telegram releases the getUpdates lock before a restart.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")
	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}
	return nil
}

func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	slog.Debug("telegram message received", "user", userID, "len", len(msg.Text))

	response, err := c.dispatcher.Run(ctx, "telegram", userID, msg.Text)
	if err != nil {
		slog.Error("telegram turn failed", "user", userID, "error", err)
		response = "Something went wrong handling that message."
	}
	if response == "" {
		return
	}

	chatID := tu.ID(msg.Chat.ID)
	for _, chunk := range splitMessage(response, maxMessageLen) {
		if _, err := c.bot.SendMessage(ctx, tu.Message(chatID, chunk)); err != nil {
			slog.Error("telegram send failed", "chat", msg.Chat.ID, "error", err)
			return
		}
	}
}

// splitMessage chunks text for Telegram's length limit, preferring to
// break at a newline.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for len(text) > maxLen {
		cutAt := maxLen
		for i := maxLen; i > maxLen/2; i-- {
			if text[i-1] == '\n' {
				cutAt = i
				break
			}
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
