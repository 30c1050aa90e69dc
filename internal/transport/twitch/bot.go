// Package twitch runs the IRC listener. One client, one channel, reconnect
// with backoff.
package twitch

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"github.com/tosachii/ryosa/internal/config"
	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/service/brain"
	"github.com/tosachii/ryosa/pkg/log"
	"github.com/tosachii/ryosa/pkg/retry"
)

type Bot struct {
	client  *twitchirc.Client
	cfg     *config.TwitchConfig
	engine  *brain.Engine
	retrier *retry.Retrier
	closed  atomic.Bool
}

func NewBot(ctx context.Context, cfg *config.TwitchConfig, engine *brain.Engine) *Bot {
	token := cfg.Token
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	bot := &Bot{
		client:  twitchirc.NewClient(cfg.BotUsername, token),
		cfg:     cfg,
		engine:  engine,
		retrier: retry.NewDefaultRetrier(),
	}

	bot.client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		bot.handleMessage(ctx, msg)
	})
	bot.client.Join(cfg.Channel)
	return bot
}

// Start blocks in the IRC read loop and reconnects with backoff until the
// context dies or Shutdown is called.
func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("channel", b.cfg.Channel).Msg("starting twitch listener")

	err := b.retrier.Do(ctx, func() error {
		if b.closed.Load() {
			return nil
		}
		if err := b.client.Connect(); err != nil {
			if b.closed.Load() {
				return nil
			}
			log.FromCtx(ctx).Warn().Err(err).Msg("twitch connection dropped, reconnecting")
			return err
		}
		return nil
	})
	if err != nil && !b.closed.Load() {
		return fmt.Errorf("twitch connect: %w", err)
	}
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.closed.Store(true)
	return b.client.Disconnect()
}

func (b *Bot) handleMessage(ctx context.Context, msg twitchirc.PrivateMessage) {
	event := core.ChatEvent{
		UserID:      msg.User.Name,
		DisplayName: msg.User.DisplayName,
		Platform:    core.PlatformTwitch,
		Channel:     "#" + msg.Channel,
		Text:        msg.Message,
		Timestamp:   msg.Time,
	}

	result := b.engine.Handle(ctx, event)
	if result.Reply == "" {
		return
	}
	switch result.Outcome {
	case brain.OutcomeResponded, brain.OutcomeFallback:
		b.client.Say(msg.Channel, result.Reply)
	}
}
