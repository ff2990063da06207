package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects tags delivered to a handler.
type recorder struct {
	mu   sync.Mutex
	tags []domain.Tag
}

func (r *recorder) handle(_ context.Context, tag domain.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
}

func (r *recorder) snapshot() []domain.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Tag(nil), r.tags...)
}

func open(t *testing.T, b Broker, name string) Channel {
	t.Helper()
	ch, err := b.Open(context.Background(), name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestSendReachesOtherEndpoints(t *testing.T) {
	b := NewMemoryBroker(8, nil)
	page := open(t, b, "sw_channel")
	worker := open(t, b, "sw_channel")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got recorder
	require.NoError(t, worker.Subscribe(ctx, got.handle))

	require.NoError(t, page.Send(ctx, domain.TagFetchJokes))
	require.NoError(t, page.Send(ctx, domain.TagDataUpdated))

	assert.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.Tag{domain.TagFetchJokes, domain.TagDataUpdated}, got.snapshot())
}

func TestSendIsNotEchoed(t *testing.T) {
	b := NewMemoryBroker(8, nil)
	page := open(t, b, "sw_channel")
	other := open(t, b, "sw_channel")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var self, peer recorder
	require.NoError(t, page.Subscribe(ctx, self.handle))
	require.NoError(t, other.Subscribe(ctx, peer.handle))

	require.NoError(t, page.Send(ctx, domain.TagFetchJokes))

	assert.Eventually(t, func() bool { return len(peer.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, self.snapshot())
}

func TestChannelsAreIsolatedByName(t *testing.T) {
	b := NewMemoryBroker(8, nil)
	a := open(t, b, "sw_channel")
	other := open(t, b, "another_channel")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got recorder
	require.NoError(t, other.Subscribe(ctx, got.handle))
	require.NoError(t, a.Send(ctx, domain.TagFetchJokes))

	assert.Never(t, func() bool { return len(got.snapshot()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestNoQueueingForLateListeners(t *testing.T) {
	b := NewMemoryBroker(8, nil)
	page := open(t, b, "sw_channel")
	worker := open(t, b, "sw_channel")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, page.Send(ctx, domain.TagFetchJokes))

	var got recorder
	require.NoError(t, worker.Subscribe(ctx, got.handle))

	assert.Never(t, func() bool { return len(got.snapshot()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestFullInboxDrops(t *testing.T) {
	b := NewMemoryBroker(1, nil)
	page := open(t, b, "sw_channel")
	worker := open(t, b, "sw_channel")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var got recorder
	require.NoError(t, worker.Subscribe(ctx, func(ctx context.Context, tag domain.Tag) {
		<-release
		got.handle(ctx, tag)
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, page.Send(ctx, domain.TagDataUpdated))
	}
	close(release)

	// one in flight plus one buffered at most
	assert.Never(t, func() bool { return len(got.snapshot()) > 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestClosedEndpoint(t *testing.T) {
	b := NewMemoryBroker(8, nil)
	ch, err := b.Open(context.Background(), "sw_channel")
	require.NoError(t, err)
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	assert.ErrorIs(t, ch.Send(context.Background(), domain.TagFetchJokes), ErrClosed)
	assert.ErrorIs(t, ch.Subscribe(context.Background(), func(context.Context, domain.Tag) {}), ErrClosed)
}

func TestRouter(t *testing.T) {
	var fetched, updated int
	r := NewRouter(nil).
		On(domain.TagFetchJokes, func(context.Context) { fetched++ }).
		On(domain.TagDataUpdated, func(context.Context) { updated++ })

	h := r.Handler()
	h(context.Background(), domain.TagFetchJokes)
	h(context.Background(), "Hello from PWA!")
	h(context.Background(), domain.TagDataUpdated)
	h(context.Background(), domain.TagDataUpdated)

	assert.Equal(t, 1, fetched)
	assert.Equal(t, 2, updated)
}

func TestEnvelope(t *testing.T) {
	payload, err := encode(domain.TagFetchError, "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"fetch-error","from":"abc"}`, string(payload))

	env, err := decode(string(payload))
	require.NoError(t, err)
	assert.Equal(t, domain.TagFetchError, env.Tag)

	_, err = decode("not json")
	assert.Error(t, err)
	assert.Equal(t, "tracker:channel:sw_channel", Key("sw_channel"))
}
