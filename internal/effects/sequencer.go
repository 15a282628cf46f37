package effects

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boss-battle-client/internal/engine"
)

const (
	SoundJoin      = "join"
	SoundCorrect   = "correct"
	SoundWrong     = "wrong"
	SoundTimeout   = "timeout"
	SoundHeartLost = "heart-lost"
	SoundHeartbeat = "heartbeat"
	SoundRevive    = "revive"
	SoundDeath     = "death"
	SoundVictory   = "victory"

	RoutePodium = "/podium"
)

// Sink is whatever actually plays sounds and draws: a UI binding, a bot
// driver, or just a log.
type Sink interface {
	Play(sound string)
	StartLoop(sound string)
	StopLoop(sound string)
	Flash(on bool)
	Toast(text string)
	Navigate(route string)
}

type Floating struct {
	ID     string    `json:"id"`
	Amount int       `json:"amount"`
	Source string    `json:"source"`
	Color  string    `json:"color"`
	X      float64   `json:"x"` // percent of screen width
	Y      float64   `json:"y"` // percent of screen height
	Until  time.Time `json:"until"`
}

var categoryColors = map[string]string{
	"fast":   "#22c55e",
	"normal": "#facc15",
	"slow":   "#f97316",
}

const defaultColor = "#ffffff"

func ColorFor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return defaultColor
}

type Options struct {
	FlashDuration time.Duration
	NumberTTL     time.Duration
	Logger        *zap.Logger
}

// Sequencer turns engine cues into sink calls. Cues are already one per
// transition; the sequencer adds the time-based parts: the boss flash window
// and the floating number lifetimes.
type Sequencer struct {
	sink Sink
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	fired    map[engine.CueKind]bool
	flashing bool
	flash    *time.Timer
	looping  bool
	numbers  []Floating
	expiry   map[string]*time.Timer
	closed   bool
}

func NewSequencer(sink Sink, opts Options) *Sequencer {
	if opts.FlashDuration <= 0 {
		opts.FlashDuration = 400 * time.Millisecond
	}
	if opts.NumberTTL <= 0 {
		opts.NumberTTL = 1200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Sequencer{
		sink:   sink,
		opts:   opts,
		log:    opts.Logger.Named("effects"),
		fired:  make(map[engine.CueKind]bool),
		expiry: make(map[string]*time.Timer),
	}
}

// onceOnly cues never replay for the lifetime of the screen.
var onceOnly = map[engine.CueKind]bool{
	engine.CueJoined:         true,
	engine.CueDefeatBanner:   true,
	engine.CueNavigatePodium: true,
}

func (q *Sequencer) Cue(c engine.Cue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if onceOnly[c.Kind] {
		if q.fired[c.Kind] {
			return
		}
		q.fired[c.Kind] = true
	}
	q.log.Debug("cue", zap.String("cue", string(c.Kind)), zap.String("text", c.Text), zap.Int("value", c.Value))

	switch c.Kind {
	case engine.CueJoined:
		q.sink.Play(SoundJoin)
		if c.Text != "" {
			q.sink.Toast("Joined " + c.Text)
		}
	case engine.CueCorrect:
		q.sink.Play(SoundCorrect)
	case engine.CueWrong:
		q.sink.Play(SoundWrong)
	case engine.CueTimeout:
		q.sink.Play(SoundTimeout)
	case engine.CueBossHit:
		q.startFlash()
	case engine.CueHeartLost:
		q.sink.Play(SoundHeartLost)
	case engine.CueKnockedOut:
		if !q.looping {
			q.looping = true
			q.sink.StartLoop(SoundHeartbeat)
		}
	case engine.CueStopLoop:
		q.stopLoop()
	case engine.CueRevived:
		q.sink.Play(SoundRevive)
	case engine.CueDied:
		q.sink.Play(SoundDeath)
	case engine.CueTeammateDown:
		q.sink.Toast(c.Text + " was knocked out")
	case engine.CueTeammateRevived:
		q.sink.Toast(c.Text + " is back in the fight")
	case engine.CueTeammateDied:
		q.sink.Toast(c.Text + " is out")
	case engine.CueReviveAccepted:
		q.sink.Toast("Revived " + c.Text)
	case engine.CueReviveRejected:
		q.sink.Toast("Revival failed: " + c.Text)
	case engine.CueDefeatBanner:
		q.sink.Play(SoundVictory)
		q.sink.Toast("Boss defeated!")
	case engine.CueDefeatCountdown:
		q.sink.Toast(fmt.Sprintf("Podium in %d", c.Value))
	case engine.CueNavigatePodium:
		q.sink.Navigate(RoutePodium)
	}
}

// startFlash opens the flash window. A hit inside an open window does not
// restart it.
func (q *Sequencer) startFlash() {
	if q.flashing {
		return
	}
	q.flashing = true
	q.sink.Flash(true)
	q.flash = time.AfterFunc(q.opts.FlashDuration, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if !q.flashing || q.closed {
			return
		}
		q.flashing = false
		q.sink.Flash(false)
	})
}

func (q *Sequencer) stopLoop() {
	if !q.looping {
		return
	}
	q.looping = false
	q.sink.StopLoop(SoundHeartbeat)
}

// Damage spawns one floating number. It is removed after NumberTTL no matter
// what else happens.
func (q *Sequencer) Damage(d engine.DamageNumber) Floating {
	q.mu.Lock()
	defer q.mu.Unlock()
	f := Floating{
		ID:     uuid.NewString(),
		Amount: d.Amount,
		Source: d.Source,
		Color:  ColorFor(d.Category),
		X:      20 + rand.Float64()*60,
		Y:      30 + rand.Float64()*30,
		Until:  time.Now().Add(q.opts.NumberTTL),
	}
	if q.closed {
		return f
	}
	q.numbers = append(q.numbers, f)
	q.expiry[f.ID] = time.AfterFunc(q.opts.NumberTTL, func() { q.expire(f.ID) })
	return f
}

func (q *Sequencer) expire(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.expiry, id)
	q.numbers = slices.DeleteFunc(q.numbers, func(f Floating) bool { return f.ID == id })
}

func (q *Sequencer) Numbers() []Floating {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.numbers)
}

func (q *Sequencer) Flashing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flashing
}

// Close silences everything: loops stop, pending flash and number timers are
// dropped. Safe to call more than once.
func (q *Sequencer) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.stopLoop()
	if q.flash != nil {
		q.flash.Stop()
	}
	if q.flashing {
		q.flashing = false
		q.sink.Flash(false)
	}
	for id, t := range q.expiry {
		t.Stop()
		delete(q.expiry, id)
	}
	q.numbers = nil
}
