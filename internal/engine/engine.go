package engine

import (
	"errors"
	"time"

	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

var ErrNotMounted = errors.New("battle screen not mounted")
var ErrNotAnswerable = errors.New("round is not answerable")
var ErrStaleQuestion = errors.New("question has been superseded")
var ErrUnknownChoice = errors.New("unknown choice")
var ErrPlayerDead = errors.New("player is dead")
var ErrReviveInFlight = errors.New("revival attempt already pending")
var ErrInvalidReviveCode = errors.New("invalid revival code")
var ErrLeft = errors.New("player left the battle")
var ErrUnsupportedEvent = errors.New("unsupported event")

type BattleStatus string

const (
	StatusQueued   BattleStatus = "queued"
	StatusCooldown BattleStatus = "cooldown"
	StatusInBattle BattleStatus = "in-battle"
	StatusDefeated BattleStatus = "defeated"
)

type Lifecycle string

const (
	LifecycleActive     Lifecycle = "active"
	LifecycleKnockedOut Lifecycle = "knocked-out"
	LifecycleDead       Lifecycle = "dead"
)

type RoundPhase string

const (
	PhaseAwaitingQuestion RoundPhase = "awaiting-question"
	PhaseAnswerable       RoundPhase = "answerable"
	PhaseAwaitingResult   RoundPhase = "awaiting-result"
	PhaseSuspended        RoundPhase = "suspended"
)

type JoinKind string

const (
	JoinFirst     JoinKind = "first-join"
	JoinReconnect JoinKind = "reconnect"
	JoinMidBattle JoinKind = "mid-battle"
)

type Session struct {
	SessionKey    string       `json:"sessionKey"`
	SessionID     string       `json:"sessionId"`
	BossID        string       `json:"bossId"`
	JoinCode      string       `json:"joinCode"`
	Status        BattleStatus `json:"status"`
	BossCurrentHP int          `json:"bossCurrentHp"`
	BossMaxHP     int          `json:"bossMaxHp"`
}

type Player struct {
	UserID     string    `json:"userId"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	TeamID     string    `json:"teamId"`
	TeamName   string    `json:"teamName"`
	Hearts     int       `json:"hearts"`
	Lifecycle  Lifecycle `json:"lifecycle"`
}

type Choice struct {
	ServerIndex  int    `json:"serverIndex"`
	DisplayIndex int    `json:"displayIndex"`
	Text         string `json:"text"`
}

type Round struct {
	QuestionID         string     `json:"questionId"`
	Text               string     `json:"text"`
	Choices            []Choice   `json:"choices"`
	CorrectServerIndex int        `json:"-"`
	TimeLimit          int        `json:"timeLimit"`
	QuestionNumber     int        `json:"questionNumber"`
	Phase              RoundPhase `json:"phase"`
	SecondsLeft        int        `json:"secondsLeft"`
	Selected           int        `json:"selected"` // display index, -1 when nothing picked
	ReceivedAt         time.Time  `json:"-"`
	Requested          bool       `json:"-"` // question-request outstanding for this AwaitingQuestion
}

type Knockout struct {
	RevivalCode string `json:"revivalCode"`
	SecondsLeft int    `json:"secondsLeft"`
}

type RevivalTicket struct {
	PlayerID         string `json:"playerId"`
	PlayerName       string `json:"playerName"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

type Defeat struct {
	Triggered     bool `json:"triggered"`
	BannerShown   bool `json:"bannerShown"`
	CountdownLeft int  `json:"countdownLeft"`
	Navigated     bool `json:"navigated"`
}

type Connection struct {
	Connected      bool `json:"connected"`
	Epoch          int  `json:"epoch"`
	RequestedEpoch int  `json:"-"`
}

type Identity struct {
	Kind              JoinKind `json:"kind"`
	LastKnownPlayerID string   `json:"lastKnownPlayerId"`
}

type Rules struct {
	MaxHearts         int
	TickInterval      time.Duration
	SettleDelay       time.Duration
	RevivalSeconds    int
	DefeatBannerDelay time.Duration
	DefeatCountdown   int
}

type State struct {
	Mounted        bool            `json:"mounted"`
	Left           bool            `json:"left"`
	Resynced       bool            `json:"resynced"`
	Joined         bool            `json:"joined"`
	Identity       Identity        `json:"identity"`
	Conn           Connection      `json:"conn"`
	Session        Session         `json:"session"`
	Player         Player          `json:"player"`
	Round          Round           `json:"round"`
	Knockout       Knockout        `json:"knockout"`
	Teammates      []RevivalTicket `json:"teammates"`
	ReviveInFlight bool            `json:"reviveInFlight"`
	Defeat         Defeat          `json:"defeat"`
	Timers         TimerGens       `json:"-"`
	Rules          Rules           `json:"-"`
}

// Event is anything the reducer consumes: server messages, local player
// commands, connection lifecycle notices and timer fires.
type Event interface{ isEvent() }

type Mount struct {
	SessionKey        string
	BossID            string
	JoinCode          string
	UserID            string
	PlayerName        string
	LastKnownPlayerID string
}

type Connected struct{}
type Disconnected struct{}

type SnapshotReceived struct {
	Snapshot       types.Snapshot
	AlreadyStarted bool
}

type QuestionReceived struct {
	Question types.QuestionReceived
	At       time.Time
}

type AnswerResult struct{ Result types.AnswerResult }
type PlayerAttacked struct{ Attack types.PlayerAttacked }
type BossDefeated struct{ Notice types.BossDefeated }
type StatusChanged struct{ Status types.BattleStatus }
type TeamInfo struct{ Info types.TeamInfo }
type JoinedBattle struct{ Joined types.JoinedBattle }
type TeammateKnockedOut struct{ Notice types.TeammateNotice }
type TeammateRevived struct{ Notice types.TeammateNotice }
type TeammateDied struct{ Notice types.TeammateNotice }
type PlayerKnockedOut struct{ Notice types.PlayerKnockedOut }
type PlayerDied struct{ Notice types.PlayerDied }
type PlayerRevived struct{ Notice types.PlayerRevived }
type BadgeEarned struct{ Badge types.BadgeEarned }
type ReviveSucceeded struct{ Outcome types.ReviveOutcome }
type ReviveFailed struct{ Outcome types.ReviveOutcome }

type SubmitAnswer struct {
	QuestionID   string
	DisplayIndex int
	At           time.Time
}

type SubmitRevivalCode struct{ Code string }
type Leave struct{}

type TimerFired struct {
	Timer TimerID
	Gen   uint64
}

func (Mount) isEvent()              {}
func (Connected) isEvent()          {}
func (Disconnected) isEvent()       {}
func (SnapshotReceived) isEvent()   {}
func (QuestionReceived) isEvent()   {}
func (AnswerResult) isEvent()       {}
func (PlayerAttacked) isEvent()     {}
func (BossDefeated) isEvent()       {}
func (StatusChanged) isEvent()      {}
func (TeamInfo) isEvent()           {}
func (JoinedBattle) isEvent()       {}
func (TeammateKnockedOut) isEvent() {}
func (TeammateRevived) isEvent()    {}
func (TeammateDied) isEvent()       {}
func (PlayerKnockedOut) isEvent()   {}
func (PlayerDied) isEvent()         {}
func (PlayerRevived) isEvent()      {}
func (BadgeEarned) isEvent()        {}
func (ReviveSucceeded) isEvent()    {}
func (ReviveFailed) isEvent()       {}
func (SubmitAnswer) isEvent()       {}
func (SubmitRevivalCode) isEvent()  {}
func (Leave) isEvent()              {}
func (TimerFired) isEvent()         {}

/*
	Mount/Connected      -> Emit(reconnect-request) once per connection epoch
	SnapshotReceived     -> overwrite session/player, Cue(joined) once, maybe Emit(question-request)
	QuestionReceived     -> StopTimer(settle) + StartTimer(round)
	SubmitAnswer         -> StopTimer(round) + Emit(submit-answer)
	TimerFired(round)    -> countdown, at zero Emit(submit-answer, timeout)
	AnswerResult         -> health + cues, StartTimer(settle) or suspend
	TimerFired(settle)   -> Emit(question-request)
	knockout notices     -> StartTimer(revival) + Cue(loop), revival/death stop it
*/

// Apply is the single transition function. Rejected local commands return
// the unchanged state and an error; nothing is emitted for them.
func Apply(s State, ev Event) ([]Effect, State, error) {
	if _, ok := ev.(Mount); !ok && !s.Mounted {
		return nil, s, ErrNotMounted
	}

	switch e := ev.(type) {
	case Mount:
		return mount(s, e)
	case Connected:
		return connected(s)
	case Disconnected:
		s.Conn.Connected = false
		return nil, s, nil
	case SnapshotReceived:
		return applySnapshot(s, e.Snapshot, e.AlreadyStarted)
	case TeamInfo:
		return applyTeamInfo(s, e.Info)
	case JoinedBattle:
		return applyJoined(s, e.Joined)

	case QuestionReceived:
		return receiveQuestion(s, e)
	case SubmitAnswer:
		return submitAnswer(s, e)
	case AnswerResult:
		return applyResult(s, e.Result)

	case StatusChanged:
		var effects []Effect
		s = applyStatus(s, e.Status, &effects)
		return effects, s, nil
	case PlayerAttacked:
		return applyAttack(s, e.Attack)
	case BossDefeated:
		var effects []Effect
		s = triggerDefeat(s, &effects)
		return effects, s, nil

	case PlayerKnockedOut:
		var effects []Effect
		s = knockOut(s, e.Notice.RevivalCode, e.Notice.SecondsRemaining, &effects)
		return effects, s, nil
	case PlayerDied:
		var effects []Effect
		s = die(s, &effects)
		return effects, s, nil
	case PlayerRevived:
		return revive(s, e.Notice)
	case TeammateKnockedOut:
		return trackTeammate(s, e.Notice)
	case TeammateRevived:
		return untrackTeammate(s, e.Notice, CueTeammateRevived)
	case TeammateDied:
		return untrackTeammate(s, e.Notice, CueTeammateDied)
	case SubmitRevivalCode:
		return submitRevivalCode(s, e.Code)
	case ReviveSucceeded:
		s.ReviveInFlight = false
		return []Effect{Cue{Kind: CueReviveAccepted, Text: e.Outcome.PlayerName}}, s, nil
	case ReviveFailed:
		s.ReviveInFlight = false
		return []Effect{Cue{Kind: CueReviveRejected, Text: e.Outcome.Message}}, s, nil

	case BadgeEarned:
		return []Effect{Badge{
			BadgeID:     e.Badge.BadgeID,
			Name:        e.Badge.Name,
			Description: e.Badge.Description,
			Icon:        e.Badge.Icon,
		}}, s, nil

	case Leave:
		return leave(s)
	case TimerFired:
		return fire(s, e)

	default:
		return nil, s, ErrUnsupportedEvent
	}
}

func leave(s State) ([]Effect, State, error) {
	if s.Left {
		return nil, s, nil
	}
	var effects []Effect
	s.Left = true
	s = suspendRound(s, &effects)
	if s.Player.Lifecycle == LifecycleKnockedOut {
		effects = append(effects, Cue{Kind: CueStopLoop})
	}
	for _, id := range []TimerID{TimerRevival, TimerTeammates, TimerDefeat} {
		s = stopTimer(s, id, &effects)
	}
	effects = append(effects, Emit{Event: types.CmdLeaveBoss, Payload: types.LeaveBoss{SessionKey: s.Session.SessionKey}})
	return effects, s, nil
}

func fire(s State, e TimerFired) ([]Effect, State, error) {
	if !s.Timers.current(e.Timer, e.Gen) {
		// Stale fire from a timer that has since been stopped or re-armed.
		return nil, s, nil
	}
	switch e.Timer {
	case TimerRound:
		return tickRound(s)
	case TimerSettle:
		return settle(s)
	case TimerRevival:
		return tickRevival(s)
	case TimerTeammates:
		return tickTeammates(s)
	case TimerDefeat:
		return tickDefeat(s)
	default:
		return nil, s, ErrUnsupportedEvent
	}
}
