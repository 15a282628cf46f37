package engine

import "time"

// Effect is an instruction produced by Apply for the runtime to carry out.
type Effect interface{ isEffect() }

// Emit sends one outbound message on the transport.
type Emit struct {
	Event   string
	Payload any
}

// StartTimer arms (or re-arms) a timer. The first fire comes after After, or
// after Every when After is zero; a positive Every keeps it repeating.
type StartTimer struct {
	Timer TimerID
	Gen   uint64
	After time.Duration
	Every time.Duration
}

type StopTimer struct {
	Timer TimerID
}

// Cue is a one-shot audio/visual/toast side effect tied to a transition.
type Cue struct {
	Kind  CueKind
	Text  string
	Value int
}

// DamageNumber is cosmetic: it never feeds back into HP state.
type DamageNumber struct {
	Amount   int
	Category string
	Source   string
}

type Badge struct {
	BadgeID     string
	Name        string
	Description string
	Icon        string
}

// Remember asks the runtime to persist the player's identity for this
// session so a later mount can reconnect instead of joining fresh.
type Remember struct {
	SessionKey string
	PlayerID   string
}

func (Emit) isEffect()         {}
func (StartTimer) isEffect()   {}
func (StopTimer) isEffect()    {}
func (Cue) isEffect()          {}
func (DamageNumber) isEffect() {}
func (Badge) isEffect()        {}
func (Remember) isEffect()     {}

type CueKind string

const (
	CueJoined          CueKind = "joined"
	CueCorrect         CueKind = "correct"
	CueWrong           CueKind = "wrong"
	CueTimeout         CueKind = "timeout"
	CueBossHit         CueKind = "boss-hit"
	CueHeartLost       CueKind = "heart-lost"
	CueKnockedOut      CueKind = "knocked-out" // starts the looped heartbeat
	CueStopLoop        CueKind = "stop-loop"
	CueRevived         CueKind = "revived"
	CueDied            CueKind = "died"
	CueTeammateDown    CueKind = "teammate-down"
	CueTeammateRevived CueKind = "teammate-revived"
	CueTeammateDied    CueKind = "teammate-died"
	CueReviveAccepted  CueKind = "revive-accepted"
	CueReviveRejected  CueKind = "revive-rejected"
	CueDefeatBanner    CueKind = "defeat-banner"
	CueDefeatCountdown CueKind = "defeat-countdown"
	CueNavigatePodium  CueKind = "navigate-podium"
)

type TimerID int

const (
	TimerRound TimerID = iota
	TimerSettle
	TimerRevival
	TimerTeammates
	TimerDefeat
	timerCount
)

func (t TimerID) String() string {
	switch t {
	case TimerRound:
		return "round"
	case TimerSettle:
		return "settle"
	case TimerRevival:
		return "revival"
	case TimerTeammates:
		return "teammates"
	case TimerDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// TimerGens holds one generation counter per timer. Every start and stop
// bumps the counter, so a fire carrying an older generation is ignored.
type TimerGens [timerCount]uint64

func (g TimerGens) current(id TimerID, gen uint64) bool {
	if id < 0 || id >= timerCount {
		return false
	}
	return g[id] == gen
}

func startTimer(s State, id TimerID, after, every time.Duration, effects *[]Effect) State {
	s.Timers[id]++
	*effects = append(*effects, StartTimer{Timer: id, Gen: s.Timers[id], After: after, Every: every})
	return s
}

func stopTimer(s State, id TimerID, effects *[]Effect) State {
	s.Timers[id]++
	*effects = append(*effects, StopTimer{Timer: id})
	return s
}
