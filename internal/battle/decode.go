package battle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DoyleJ11/boss-battle-client/internal/engine"
	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

// ServerEvents lists every inbound event name the screen subscribes to.
var ServerEvents = []string{
	types.EvtReconnected,
	types.EvtBattleAlreadyStarted,
	types.EvtQuestionReceived,
	types.EvtAnswerResult,
	types.EvtPlayerAttacked,
	types.EvtBossDefeated,
	types.EvtBattleStatusSync,
	types.EvtBattleStatusUpdate,
	types.EvtTeamInfo,
	types.EvtJoinedBattle,
	types.EvtTeammateKnockedOut,
	types.EvtPlayerKnockedOut,
	types.EvtPlayerDied,
	types.EvtTeammateDied,
	types.EvtPlayerRevived,
	types.EvtTeammateRevived,
	types.EvtBadgeEarned,
	types.EvtReviveSuccess,
	types.EvtReviveFailed,
}

func unmarshal[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

func wrap[T any](raw json.RawMessage, f func(T) engine.Event) (engine.Event, error) {
	v, err := unmarshal[T](raw)
	if err != nil {
		return nil, err
	}
	return f(v), nil
}

// decode turns one server frame into an engine event.
func decode(event string, raw json.RawMessage, at time.Time) (engine.Event, error) {
	var (
		ev  engine.Event
		err error
	)
	switch event {
	case types.EvtReconnected, types.EvtBattleAlreadyStarted:
		started := event == types.EvtBattleAlreadyStarted
		ev, err = wrap(raw, func(s types.Snapshot) engine.Event {
			return engine.SnapshotReceived{Snapshot: s, AlreadyStarted: started}
		})
	case types.EvtQuestionReceived:
		ev, err = wrap(raw, func(q types.QuestionReceived) engine.Event {
			return engine.QuestionReceived{Question: q, At: at}
		})
	case types.EvtAnswerResult:
		ev, err = wrap(raw, func(r types.AnswerResult) engine.Event { return engine.AnswerResult{Result: r} })
	case types.EvtPlayerAttacked:
		ev, err = wrap(raw, func(a types.PlayerAttacked) engine.Event { return engine.PlayerAttacked{Attack: a} })
	case types.EvtBossDefeated:
		ev, err = wrap(raw, func(n types.BossDefeated) engine.Event { return engine.BossDefeated{Notice: n} })
	case types.EvtBattleStatusSync, types.EvtBattleStatusUpdate:
		ev, err = wrap(raw, func(s types.BattleStatus) engine.Event { return engine.StatusChanged{Status: s} })
	case types.EvtTeamInfo:
		ev, err = wrap(raw, func(i types.TeamInfo) engine.Event { return engine.TeamInfo{Info: i} })
	case types.EvtJoinedBattle:
		ev, err = wrap(raw, func(j types.JoinedBattle) engine.Event { return engine.JoinedBattle{Joined: j} })
	case types.EvtTeammateKnockedOut:
		ev, err = wrap(raw, func(n types.TeammateNotice) engine.Event { return engine.TeammateKnockedOut{Notice: n} })
	case types.EvtTeammateRevived:
		ev, err = wrap(raw, func(n types.TeammateNotice) engine.Event { return engine.TeammateRevived{Notice: n} })
	case types.EvtTeammateDied:
		ev, err = wrap(raw, func(n types.TeammateNotice) engine.Event { return engine.TeammateDied{Notice: n} })
	case types.EvtPlayerKnockedOut:
		ev, err = wrap(raw, func(n types.PlayerKnockedOut) engine.Event { return engine.PlayerKnockedOut{Notice: n} })
	case types.EvtPlayerDied:
		ev, err = wrap(raw, func(n types.PlayerDied) engine.Event { return engine.PlayerDied{Notice: n} })
	case types.EvtPlayerRevived:
		ev, err = wrap(raw, func(n types.PlayerRevived) engine.Event { return engine.PlayerRevived{Notice: n} })
	case types.EvtBadgeEarned:
		ev, err = wrap(raw, func(b types.BadgeEarned) engine.Event { return engine.BadgeEarned{Badge: b} })
	case types.EvtReviveSuccess:
		ev, err = wrap(raw, func(o types.ReviveOutcome) engine.Event { return engine.ReviveSucceeded{Outcome: o} })
	case types.EvtReviveFailed:
		ev, err = wrap(raw, func(o types.ReviveOutcome) engine.Event { return engine.ReviveFailed{Outcome: o} })
	default:
		return nil, fmt.Errorf("unknown event %q", event)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", event, err)
	}
	return ev, nil
}
