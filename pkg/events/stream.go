package events

import "sync"

// subscriberBuffer is the per-subscriber channel capacity. Emit never blocks;
// a subscriber that falls this far behind starts losing events.
const subscriberBuffer = 64

// Stream is a typed fan-out event stream. One Stream instance exists per
// event kind; subscribers receive events in emission order, independently of
// each other.
type Stream[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	closed bool
}

func NewStream[T any]() *Stream[T] {
	return &Stream[T]{subs: make(map[chan T]struct{})}
}

// Subscription is a live registration on a Stream. Receive from C until
// Unsubscribe is called; C is closed on unsubscribe or stream close.
type Subscription[T any] struct {
	C      <-chan T
	stream *Stream[T]
	ch     chan T
	once   sync.Once
}

func (s *Stream[T]) Subscribe() *Subscription[T] {
	ch := make(chan T, subscriberBuffer)
	s.mu.Lock()
	if s.closed {
		close(ch)
	} else {
		s.subs[ch] = struct{}{}
	}
	s.mu.Unlock()
	return &Subscription[T]{C: ch, stream: s, ch: ch}
}

func (sub *Subscription[T]) Unsubscribe() {
	sub.once.Do(func() {
		sub.stream.mu.Lock()
		if _, ok := sub.stream.subs[sub.ch]; ok {
			delete(sub.stream.subs, sub.ch)
			close(sub.ch)
		}
		sub.stream.mu.Unlock()
	})
}

// Emit delivers v to every current subscriber without blocking.
func (s *Stream[T]) Emit(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Close terminates the stream and closes every subscriber channel.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
