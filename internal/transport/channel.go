package transport

import (
	"context"
	"sync"
)

// Channel is an in-memory Source and Sink. Commands beyond QueueDepth drop
// the oldest unread one, like a keep-last publisher.
type Channel struct {
	in   chan Message
	out  chan int
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
}

func NewChannel() *Channel {
	return &Channel{
		in:   make(chan Message, QueueDepth),
		out:  make(chan int, QueueDepth),
		done: make(chan struct{}),
	}
}

// Send injects an inbound message.
func (c *Channel) Send(ctx context.Context, m Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.in <- m:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) Receive(ctx context.Context) (Message, error) {
	select {
	case m := <-c.in:
		return m, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Channel) Publish(ctx context.Context, pwm int) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		select {
		case c.out <- pwm:
			return nil
		default:
		}
		select {
		case <-c.out:
		default:
		}
	}
}

// Commands exposes published commands.
func (c *Channel) Commands() <-chan int {
	return c.out
}

func (c *Channel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
