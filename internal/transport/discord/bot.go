// Package discord runs the Discord gateway listener.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/tosachii/ryosa/internal/config"
	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/service/brain"
	"github.com/tosachii/ryosa/pkg/log"
)

type Bot struct {
	session *discordgo.Session
	cfg     *config.DiscordConfig
	engine  *brain.Engine
}

func NewBot(ctx context.Context, cfg *config.DiscordConfig, engine *brain.Engine) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	bot := &Bot{session: session, cfg: cfg, engine: engine}
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		bot.handleMessage(ctx, s, m)
	})
	return bot, nil
}

// Start opens the gateway and holds until the context dies. discordgo keeps
// its own reconnect loop, so no retrier here.
func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting discord listener")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	<-ctx.Done()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	return b.session.Close()
}

func (b *Bot) handleMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	// Gateway echoes our own messages back; drop them before the engine
	// even sees them. Other bots are dropped too.
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if b.cfg.ChannelID != "" && m.ChannelID != b.cfg.ChannelID {
		return
	}

	displayName := m.Author.GlobalName
	if displayName == "" {
		displayName = m.Author.Username
	}
	event := core.ChatEvent{
		UserID:      m.Author.Username,
		DisplayName: displayName,
		Platform:    core.PlatformDiscord,
		Channel:     m.ChannelID,
		Text:        m.Content,
		Timestamp:   m.Timestamp,
	}

	result := b.engine.Handle(ctx, event)
	if result.Reply == "" {
		return
	}
	switch result.Outcome {
	case brain.OutcomeResponded, brain.OutcomeFallback:
		if _, err := s.ChannelMessageSend(m.ChannelID, result.Reply); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msg("failed to send discord message")
		}
	}
}
