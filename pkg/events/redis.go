package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultRedisChannel = "fbot_face/emotion"

// NewRedisClient connects to addr and checks that the server answers.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisSource subscribes to a pub/sub channel of emotion names.
type RedisSource struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewRedisSource(client *redis.Client, channel string, log zerolog.Logger) *RedisSource {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSource{client: client, channel: channel, log: log}
}

func (s *RedisSource) Run(ctx context.Context, emit func(string)) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.log.Info().Str("channel", s.channel).Msg("Subscribed to emotion channel")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("subscription to %s closed", s.channel)
			}
			emotion, err := ParseEmotion(msg.Payload)
			if err != nil {
				s.log.Warn().Err(err).Str("payload", msg.Payload).Msg("Ignoring notification")
				continue
			}
			emit(emotion)
		}
	}
}

// RedisPublisher publishes emotion names on a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish returns the number of subscribers that received the emotion.
func (p *RedisPublisher) Publish(ctx context.Context, emotion string) (int64, error) {
	n, err := p.client.Publish(ctx, p.channel, emotion).Result()
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return n, nil
}
