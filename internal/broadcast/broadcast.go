// Package broadcast provides a single-writer, multi-reader state cell.
//
// A Channel holds the latest published value. Subscribers receive the value
// current at subscription time followed by every later publication, in
// publish order, without coalescing. Each subscriber has its own unbounded
// queue so a slow reader never blocks the publisher or other readers.
package broadcast

import "sync"

// Channel is an observable value. Only the owning component should call Publish.
type Channel[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]*Subscription[T]
	nextID uint64
	closed bool
}

// New creates a channel holding initial
func New[T any](initial T) *Channel[T] {
	return &Channel[T]{
		value: initial,
		subs:  make(map[uint64]*Subscription[T]),
	}
}

// Get returns the current value
func (c *Channel[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Publish sets the current value and queues it for every subscriber
func (c *Channel[T]) Publish(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.value = v
	for _, sub := range c.subs {
		sub.push(v)
	}
}

// Subscribe registers a reader. The current value is delivered first.
func (c *Channel[T]) Subscribe() *Subscription[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &Subscription[T]{
		out:    make(chan T),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if c.closed {
		sub.stop()
		close(sub.out)
		return sub
	}

	id := c.nextID
	c.nextID++
	sub.cancel = func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
	c.subs[id] = sub
	sub.push(c.value)
	go sub.pump()
	return sub
}

// Close stops every subscription. Later publications are ignored.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[uint64]*Subscription[T])
	c.closed = true
	c.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

// Subscription is one reader's view of a Channel
type Subscription[T any] struct {
	out    chan T
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
	cancel func()

	mu    sync.Mutex
	queue []T
}

// C returns the channel values are delivered on. It is closed after Unsubscribe.
func (s *Subscription[T]) C() <-chan T {
	return s.out
}

// Unsubscribe detaches the reader and closes C. Safe to call more than once
// and on a nil subscription.
func (s *Subscription[T]) Unsubscribe() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.stop()
}

func (s *Subscription[T]) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		pending := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, v := range pending {
			select {
			case s.out <- v:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.notify:
		case <-s.done:
			return
		}
	}
}
