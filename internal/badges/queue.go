package badges

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/boss-battle-client/internal/engine"
)

const DefaultTTL = 5 * time.Second

type Item struct {
	ID          string    `json:"id"`
	BadgeID     string    `json:"badgeId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Until       time.Time `json:"until"`
}

// Queue holds earned-badge notices in arrival order. Each entry expires on
// its own clock; a new arrival never shortens or extends another.
type Queue struct {
	ttl time.Duration

	mu     sync.Mutex
	items  []Item
	timers map[string]*time.Timer
	closed bool
}

func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{ttl: ttl, timers: make(map[string]*time.Timer)}
}

func (q *Queue) Push(b engine.Badge) Item {
	it := Item{
		ID:          uuid.NewString(),
		BadgeID:     b.BadgeID,
		Name:        b.Name,
		Description: b.Description,
		Icon:        b.Icon,
		Until:       time.Now().Add(q.ttl),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return it
	}
	q.items = append(q.items, it)
	q.timers[it.ID] = time.AfterFunc(q.ttl, func() { q.remove(it.ID) })
	return it
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.timers, id)
	q.items = slices.DeleteFunc(q.items, func(it Item) bool { return it.ID == id })
}

// Items returns the live entries, oldest first.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
}
