package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/tosachii/ryosa/pkg/log"
)

type TwitchConfig struct {
	Token       string `env:"TWITCH_TOKEN,required,notEmpty"`
	Channel     string `env:"TWITCH_CHANNEL,required,notEmpty"`
	BotUsername string `env:"TWITCH_BOT_USERNAME" envDefault:"ryosaia"`
}

func NewTwitchConfig(ctx context.Context) *TwitchConfig {
	c := &TwitchConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Twitch config")
	}
	return c
}
