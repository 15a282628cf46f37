package types

import "encoding/json"

// Envelope is the single frame shape on the battle socket in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Server -> Client
const (
	EvtReconnected          = "reconnected"
	EvtBattleAlreadyStarted = "battle-already-started"
	EvtQuestionReceived     = "question-received"
	EvtAnswerResult         = "answer-result"
	EvtPlayerAttacked       = "player-attacked"
	EvtBossDefeated         = "boss-defeated"
	EvtBattleStatusSync     = "battle-status-sync"
	EvtBattleStatusUpdate   = "battle-status-update"
	EvtTeamInfo             = "player:team-info"
	EvtJoinedBattle         = "player:joined-battle"
	EvtTeammateKnockedOut   = "teammate:knocked-out"
	EvtPlayerKnockedOut     = "player-knocked-out"
	EvtPlayerDied           = "player-died"
	EvtTeammateDied         = "teammate-died"
	EvtPlayerRevived        = "player-revived"
	EvtTeammateRevived      = "teammate-revived"
	EvtBadgeEarned          = "badge-earned"
	EvtReviveSuccess        = "revive-success"
	EvtReviveFailed         = "revive-failed"
)

// Client -> Server
const (
	CmdReconnectRequest = "reconnect-request"
	CmdQuestionRequest  = "question-request"
	CmdSubmitAnswer     = "submit-answer"
	CmdReviveTeammate   = "revive-teammate"
	CmdLeaveBoss        = "leave-boss"
)

// NoAnswer is the choice index submitted when the round timer runs out.
const NoAnswer = -1

type Choice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type QuestionReceived struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Choices        []Choice `json:"choices"`
	CorrectIndex   int      `json:"correctIndex"`
	TimeLimit      int      `json:"timeLimit"` // seconds
	QuestionNumber int      `json:"questionNumber"`
}

// BattleStatus is the authoritative HP/heart block carried by results and
// status broadcasts. Any field may be absent on a partial update: boss HP on
// per-player heart syncs, PlayerHearts on team-wide boss updates.
type BattleStatus struct {
	Status        string `json:"status,omitempty"`
	BossCurrentHP *int   `json:"bossCurrentHp,omitempty"`
	BossMaxHP     *int   `json:"bossMaxHp,omitempty"`
	PlayerHearts  *int   `json:"playerHearts,omitempty"`
	IsKnockedOut  bool   `json:"isKnockedOut,omitempty"`
	RevivalCode   string `json:"revivalCode,omitempty"`
}

type AnswerResult struct {
	QuestionID       string       `json:"questionId,omitempty"`
	IsCorrect        bool         `json:"isCorrect"`
	Damage           int          `json:"damage"`
	ResponseCategory string       `json:"responseCategory"`
	BattleStatus     BattleStatus `json:"battleStatus"`
}

type PlayerAttacked struct {
	BossCurrentHP    int    `json:"bossCurrentHp"`
	Damage           int    `json:"damage"`
	ResponseCategory string `json:"responseCategory"`
	PlayerNickname   string `json:"playerNickname"`
}

type BossDefeated struct {
	SessionID string `json:"sessionId,omitempty"`
	FinalBlow string `json:"finalBlow,omitempty"`
}

type TeamInfo struct {
	PlayerID string `json:"playerId,omitempty"`
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

type JoinedBattle struct {
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	TeamID     string `json:"teamId,omitempty"`
	TeamName   string `json:"teamName,omitempty"`
}

// TeammateNotice covers teammate knocked-out / revived / died. Names are the
// stable key: the id is not always present at knockout time.
type TeammateNotice struct {
	PlayerID         string `json:"playerId,omitempty"`
	PlayerName       string `json:"playerName"`
	SecondsRemaining int    `json:"secondsRemaining,omitempty"`
	RevivedBy        string `json:"revivedBy,omitempty"`
}

type PlayerKnockedOut struct {
	RevivalCode      string `json:"revivalCode"`
	SecondsRemaining int    `json:"secondsRemaining,omitempty"`
}

type PlayerDied struct {
	Reason string `json:"reason,omitempty"`
}

type PlayerRevived struct {
	PlayerHearts int    `json:"playerHearts"`
	RevivedBy    string `json:"revivedBy,omitempty"`
}

type BadgeEarned struct {
	BadgeID     string `json:"badgeId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

type ReviveOutcome struct {
	PlayerName string `json:"playerName,omitempty"`
	Message    string `json:"message,omitempty"`
}

type UserInfo struct {
	UserID            string `json:"userId,omitempty"`
	Username          string `json:"username"`
	LastKnownPlayerID string `json:"lastKnownPlayerId,omitempty"`
}

type ReconnectRequest struct {
	SessionKey string   `json:"sessionKey"`
	UserInfo   UserInfo `json:"userInfo"`
}

type QuestionRequest struct {
	SessionKey string `json:"sessionKey"`
}

type SubmitAnswer struct {
	SessionKey   string `json:"sessionKey"`
	QuestionID   string `json:"questionId"`
	ChoiceIndex  int    `json:"choiceIndex"`
	ResponseTime int64  `json:"responseTime"` // milliseconds
	IsTimeout    bool   `json:"isTimeout,omitempty"`
}

type ReviveTeammate struct {
	SessionKey string `json:"sessionKey"`
	ReviveCode string `json:"reviveCode"`
}

type LeaveBoss struct {
	SessionKey string `json:"sessionKey"`
}
