package engine

import "sync"

// eventStream fans events out to subscribers. Slow subscribers drop events
// rather than block publishers. A bounded backlog of recent non-count events
// is replayed to new subscribers.
type eventStream struct {
	mu       sync.Mutex
	closed   bool
	subs     map[chan Event]struct{}
	backlog  []Event
	capacity int
}

func newEventStream(capacity int) *eventStream {
	if capacity <= 0 {
		capacity = 1
	}
	return &eventStream{
		subs:     make(map[chan Event]struct{}),
		capacity: capacity,
	}
}

func (s *eventStream) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	for _, evt := range s.backlog {
		select {
		case ch <- evt:
		default:
		}
	}
	s.subs[ch] = struct{}{}

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, release
}

// Publish holds the lock across the non-blocking sends so a concurrent
// release never closes a channel mid-send.
func (s *eventStream) Publish(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if evt.Type != EventTypeCount {
		s.backlog = append(s.backlog, evt)
		if len(s.backlog) > s.capacity {
			s.backlog = s.backlog[len(s.backlog)-s.capacity:]
		}
	}
	for ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (s *eventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	s.backlog = nil
}
