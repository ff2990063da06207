package channel

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// DefaultBuffer is the inbox size of one subscription.
const DefaultBuffer = 64

// MemoryBroker connects endpoints inside one process.
type MemoryBroker struct {
	buffer int
	log    logger.Logger

	mu        sync.RWMutex
	endpoints map[string]map[*memoryChannel]struct{}
}

// NewMemoryBroker creates a broker whose subscriptions buffer up to buffer tags.
// A full inbox drops the tag.
func NewMemoryBroker(buffer int, log logger.Logger) *MemoryBroker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = logger.Nop()
	}
	return &MemoryBroker{
		buffer:    buffer,
		log:       log,
		endpoints: make(map[string]map[*memoryChannel]struct{}),
	}
}

func (b *MemoryBroker) Open(_ context.Context, name string) (Channel, error) {
	ch := &memoryChannel{name: name, broker: b, subs: make(map[*subscription]struct{})}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.endpoints[name] == nil {
		b.endpoints[name] = make(map[*memoryChannel]struct{})
	}
	b.endpoints[name][ch] = struct{}{}
	return ch, nil
}

// Close detaches every endpoint.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	var all []*memoryChannel
	for _, set := range b.endpoints {
		for ch := range set {
			all = append(all, ch)
		}
	}
	b.mu.Unlock()

	for _, ch := range all {
		_ = ch.Close()
	}
	return nil
}

func (b *MemoryBroker) detach(ch *memoryChannel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.endpoints[ch.name], ch)
	if len(b.endpoints[ch.name]) == 0 {
		delete(b.endpoints, ch.name)
	}
}

func (b *MemoryBroker) broadcast(from *memoryChannel, tag domain.Tag) {
	b.mu.RLock()
	peers := make([]*memoryChannel, 0, len(b.endpoints[from.name]))
	for ch := range b.endpoints[from.name] {
		if ch != from {
			peers = append(peers, ch)
		}
	}
	b.mu.RUnlock()

	for _, ch := range peers {
		ch.deliver(tag)
	}
}

type memoryChannel struct {
	name   string
	broker *MemoryBroker

	mu     sync.Mutex
	closed bool
	subs   map[*subscription]struct{}
}

type subscription struct {
	inbox chan domain.Tag
	done  chan struct{}
	once  sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (c *memoryChannel) Name() string { return c.name }

func (c *memoryChannel) Send(_ context.Context, tag domain.Tag) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	c.broker.broadcast(c, tag)
	return nil
}

func (c *memoryChannel) Subscribe(ctx context.Context, h Handler) error {
	sub := &subscription{
		inbox: make(chan domain.Tag, c.broker.buffer),
		done:  make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	go func() {
		defer c.unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case tag := <-sub.inbox:
				h(ctx, tag)
			}
		}
	}()
	return nil
}

func (c *memoryChannel) unsubscribe(sub *subscription) {
	c.mu.Lock()
	delete(c.subs, sub)
	c.mu.Unlock()
}

func (c *memoryChannel) deliver(tag domain.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for sub := range c.subs {
		select {
		case sub.inbox <- tag:
		default:
			c.broker.log.Warn("channel inbox full, dropping tag",
				logger.String("channel", c.name),
				logger.String("tag", string(tag)))
		}
	}
}

func (c *memoryChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for sub := range c.subs {
		sub.stop()
	}
	c.mu.Unlock()

	c.broker.detach(c)
	return nil
}
