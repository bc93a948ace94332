// Package discord connects the agent router to Discord gateway events.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/openclaw/internal/channels"
)

// Discord rejects messages over 2000 chars.
const maxMessageLen = 2000

// Channel receives Discord messages and replies through the dispatcher.
type Channel struct {
	session    *discordgo.Session
	dispatcher channels.Dispatcher
	botUserID  string
}

func New(token string, dispatcher channels.Dispatcher) (*Channel, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Channel{session: session, dispatcher: dispatcher}, nil
}

func (c *Channel) Name() string { return "discord" }

// Start opens the gateway connection and begins receiving events.
func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUserID = user.ID

	slog.Info("discord bot connected", "username", user.Username, "id", user.ID)
	return nil
}

// Stop closes the gateway connection.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping discord bot")
	return c.session.Close()
}

func (c *Channel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == c.botUserID || m.Author.Bot || m.Content == "" {
		return
	}

	slog.Debug("discord message received", "user", m.Author.ID, "len", len(m.Content))

	response, err := c.dispatcher.Run(context.Background(), "discord", m.Author.ID, m.Content)
	if err != nil {
		slog.Error("discord turn failed", "user", m.Author.ID, "error", err)
		response = "Something went wrong handling that message."
	}
	if response == "" {
		return
	}

	for _, chunk := range splitMessage(response, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			slog.Error("discord send failed", "channel", m.ChannelID, "error", err)
			return
		}
	}
}

// splitMessage chunks text for Discord's length limit, preferring to
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
