package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces channel names in Redis pub/sub.
const KeyPrefix = "tracker:channel:"

// Key returns the Redis pub/sub channel for a channel name.
func Key(name string) string {
	return KeyPrefix + name
}

// envelope is the wire form of one notification.
type envelope struct {
	Tag  domain.Tag `json:"tag"`
	From string     `json:"from"`
}

func encode(tag domain.Tag, from string) ([]byte, error) {
	return json.Marshal(envelope{Tag: tag, From: from})
}

func decode(payload string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	return env, nil
}

// RedisBroker connects endpoints across processes with PUBLISH/SUBSCRIBE.
type RedisBroker struct {
	client *redis.Client
	log    logger.Logger
}

// NewRedisBroker creates a broker on an established client.
func NewRedisBroker(client *redis.Client, log logger.Logger) *RedisBroker {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisBroker{client: client, log: log}
}

func (b *RedisBroker) Open(_ context.Context, name string) (Channel, error) {
	return &redisChannel{
		name:   name,
		id:     uuid.NewString(),
		broker: b,
	}, nil
}

// Close is a no-op: the client belongs to the caller.
func (b *RedisBroker) Close() error { return nil }

type redisChannel struct {
	name   string
	id     string
	broker *RedisBroker

	mu     sync.Mutex
	closed bool
	subs   []*redis.PubSub
}

func (c *redisChannel) Name() string { return c.name }

func (c *redisChannel) Send(ctx context.Context, tag domain.Tag) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	payload, err := encode(tag, c.id)
	if err != nil {
		return err
	}
	if err := c.broker.client.Publish(ctx, Key(c.name), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s on %s: %w", tag, c.name, err)
	}
	return nil
}

func (c *redisChannel) Subscribe(ctx context.Context, h Handler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	ps := c.broker.client.Subscribe(ctx, Key(c.name))
	// Wait for the subscription confirmation so tags sent after return are seen.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", c.name, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ps.Close()
		return ErrClosed
	}
	c.subs = append(c.subs, ps)
	c.mu.Unlock()

	msgs := ps.Channel()
	go func() {
		defer func() { _ = ps.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				env, err := decode(msg.Payload)
				if err != nil {
					c.broker.log.Warn("dropping malformed notification",
						logger.String("channel", c.name), logger.Error(err))
					continue
				}
				if env.From == c.id {
					continue
				}
				h(ctx, env.Tag)
			}
		}
	}()
	return nil
}

func (c *redisChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for _, ps := range c.subs {
		_ = ps.Close()
	}
	c.subs = nil
	return nil
}
