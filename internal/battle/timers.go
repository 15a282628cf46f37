package battle

import (
	"time"

	"github.com/DoyleJ11/boss-battle-client/internal/engine"
)

// timers runs the clocks the engine asks for. It is only touched from the
// battle loop; fires come back through the inbox carrying the generation
// they were started with, and the engine drops any that are stale.
type timers struct {
	post  func(engine.TimerFired)
	stops map[engine.TimerID]chan struct{}
}

func newTimers(post func(engine.TimerFired)) *timers {
	return &timers{post: post, stops: make(map[engine.TimerID]chan struct{})}
}

func (t *timers) start(st engine.StartTimer) {
	t.stop(st.Timer)

	first := st.After
	if first <= 0 {
		first = st.Every
	}
	if first <= 0 {
		return
	}
	done := make(chan struct{})
	t.stops[st.Timer] = done
	fired := engine.TimerFired{Timer: st.Timer, Gen: st.Gen}
	every := st.Every

	go func() {
		tm := time.NewTimer(first)
		defer tm.Stop()
		select {
		case <-done:
			return
		case <-tm.C:
		}
		t.post(fired)
		if every <= 0 {
			return
		}

		tk := time.NewTicker(every)
		defer tk.Stop()
		for {
			select {
			case <-done:
				return
			case <-tk.C:
				t.post(fired)
			}
		}
	}()
}

func (t *timers) stop(id engine.TimerID) {
	if done, ok := t.stops[id]; ok {
		close(done)
		delete(t.stops, id)
	}
}

func (t *timers) stopAll() {
	for id := range t.stops {
		t.stop(id)
	}
}

func (t *timers) running() int { return len(t.stops) }
