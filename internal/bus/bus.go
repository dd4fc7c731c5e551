// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is a typed in-process publish/subscribe transport.
package bus

import "context"

// Topic names a stream of messages.
type Topic string

// Subscriber receives messages published on one topic after it subscribed.
type Subscriber[T any] interface {
	// C returns a read-only message channel. It is closed by Close.
	C() <-chan T
	// Close unsubscribes. It is safe to call more than once.
	Close() error
}

// Bus is the event transport abstraction.
type Bus[T any] interface {
	Publish(ctx context.Context, topic Topic, msg T) error
	Subscribe(ctx context.Context, topic Topic) (Subscriber[T], error)
}
