// Package channel is a named broadcast pipe carrying notification tags
// between the page side and the worker side.
//
// Delivery is fire-and-forget: a send reaches the listeners attached at that
// moment, at most once, and never the endpoint that sent it. Each listener
// sees one sender's tags in the order they were sent.
package channel

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/tracker/internal/domain"
)

// ErrClosed is returned when using a closed endpoint.
var ErrClosed = errors.New("channel closed")

// Handler receives one tag. Handlers of one subscription run sequentially.
type Handler func(ctx context.Context, tag domain.Tag)

// Channel is one endpoint attached to a named channel.
type Channel interface {
	Name() string
	// Send broadcasts tag to every other endpoint without waiting for them.
	Send(ctx context.Context, tag domain.Tag) error
	// Subscribe attaches h before returning. Dispatch stops when ctx ends
	// or the endpoint closes.
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}

// Broker opens endpoints.
type Broker interface {
	Open(ctx context.Context, name string) (Channel, error)
	Close() error
}
