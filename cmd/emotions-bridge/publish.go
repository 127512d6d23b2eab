package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fbot/emotions-bridge/pkg/events"
)

type PublishCommand struct {
	Period  time.Duration `long:"period" description:"Time between emotions (overrides events.cycle_period)"`
	Channel string        `long:"channel" description:"Redis channel (overrides events.redis_channel)"`
	Once    string        `long:"once" description:"Publish this emotion once and exit"`
}

func (c *PublishCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fatal("%v", err)
	}
	log := newLogger(os.Stderr)

	channel := cfg.Events.RedisChannel
	if c.Channel != "" {
		channel = c.Channel
	}
	period := cfg.Events.CyclePeriod
	if c.Period > 0 {
		period = c.Period
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := events.NewRedisClient(ctx, cfg.Events.RedisAddr)
	if err != nil {
		fatal("%v", err)
	}
	defer client.Close()
	pub := events.NewRedisPublisher(client, channel)

	publish := func(emotion string) {
		n, err := pub.Publish(ctx, emotion)
		if err != nil {
			log.Error().Err(err).Str("emotion", emotion).Msg("Publish failed")
			return
		}
		log.Info().Str("emotion", emotion).Str("channel", channel).Int64("receivers", n).Msg("Published")
	}

	if c.Once != "" {
		publish(c.Once)
		return nil
	}

	err = events.NewCycle(period).Run(ctx, publish)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
