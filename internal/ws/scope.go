package ws

import "sync"

type Subscription struct {
	c     *Channel
	event string
	id    uint64
	once  sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.c.unsubscribe(s.event, s.id) })
}

// Scope groups the subscriptions of one mounted screen so they are released
// together, exactly once.
type Scope struct {
	c *Channel

	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

func NewScope(c *Channel) *Scope {
	return &Scope{c: c}
}

// On subscribes within the scope. After Close it is a no-op.
func (s *Scope) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.subs = append(s.subs, s.c.Subscribe(event, h))
}

func (s *Scope) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.closed = true
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
