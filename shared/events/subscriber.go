package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handler processes one event. A non-nil error leaves the message unacknowledged
// so it stays in the group's pending list.
type Handler func(ctx context.Context, event Event) error

// SubscriberConfig describes one consumer in a Redis stream consumer group.
// Types limits dispatch to the listed event types; other events are acknowledged
// and skipped. An empty Types dispatches everything.
type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Types         []string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	RetryDelay    time.Duration
	Logger        zerolog.Logger
}

type Subscriber struct {
	client *redis.Client
	cfg    SubscriberConfig
	types  map[string]bool
}

func NewSubscriber(client *redis.Client, cfg SubscriberConfig) *Subscriber {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = 5 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	types := make(map[string]bool, len(cfg.Types))
	for _, t := range cfg.Types {
		types[t] = true
	}
	return &Subscriber{client: client, cfg: cfg, types: types}
}

// Start joins the consumer group (creating stream and group on first use) and
// consumes until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log := s.cfg.Logger.With().Str("stream", s.cfg.Stream).Str("group", s.cfg.Group).Str("consumer", s.cfg.Consumer).Logger()
	log.Info().Msg("subscriber started")

	for {
		if err := s.poll(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("subscriber stopping")
				return ctx.Err()
			}
			log.Error().Err(err).Dur("retry_in", s.cfg.RetryDelay).Msg("stream read failed")
			select {
			case <-ctx.Done():
				log.Info().Msg("subscriber stopping")
				return ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}
	}
}

func (s *Subscriber) poll(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.BlockDuration,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if !s.dispatch(ctx, msg) {
				continue
			}
			if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, msg.ID).Err(); err != nil {
				s.cfg.Logger.Error().Err(err).Str("message_id", msg.ID).Msg("failed to ack message")
			}
		}
	}
	return nil
}

// dispatch reports whether msg should be acknowledged. Malformed messages are
// acknowledged so they cannot block the group.
func (s *Subscriber) dispatch(ctx context.Context, msg redis.XMessage) bool {
	event, err := parseMessage(msg.Values)
	if err != nil {
		s.cfg.Logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed message")
		return true
	}
	if !s.wants(event.Type) {
		return true
	}
	if err := s.cfg.Handler(ctx, event); err != nil {
		s.cfg.Logger.Error().Err(err).Str("message_id", msg.ID).Str("type", event.Type).Msg("event handler failed")
		return false
	}
	return true
}

func (s *Subscriber) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

func parseMessage(values map[string]any) (Event, error) {
	raw, ok := values["event"].(string)
	if !ok {
		return Event{}, fmt.Errorf("invalid message format")
	}

	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
