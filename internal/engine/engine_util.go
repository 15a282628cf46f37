package engine

import "time"

func DefaultRules() Rules {
	return Rules{
		MaxHearts:         3,
		TickInterval:      time.Second,
		SettleDelay:       1500 * time.Millisecond,
		RevivalSeconds:    60,
		DefeatBannerDelay: 2 * time.Second,
		DefeatCountdown:   5,
	}
}

func NewState(rules Rules) State {
	return State{
		Session: Session{Status: StatusQueued},
		Player:  Player{Hearts: rules.MaxHearts, Lifecycle: LifecycleActive},
		Round:   Round{Phase: PhaseAwaitingQuestion, Selected: -1},
		Rules:   rules,
	}
}

func NewEmptyState() State {
	return NewState(DefaultRules())
}

func ContainsEffect[T Effect](effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(T); ok {
			return true
		}
	}
	return false
}

// Emitted returns the outbound messages in order.
func Emitted(effects []Effect) []Emit {
	var out []Emit
	for _, e := range effects {
		if em, ok := e.(Emit); ok {
			out = append(out, em)
		}
	}
	return out
}

func Cues(effects []Effect) []CueKind {
	var out []CueKind
	for _, e := range effects {
		if c, ok := e.(Cue); ok {
			out = append(out, c.Kind)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func statusRank(st BattleStatus) int {
	switch st {
	case StatusInBattle:
		return 1
	case StatusDefeated:
		return 2
	default:
		return 0
	}
}

func parseStatus(raw string) (BattleStatus, bool) {
	switch st := BattleStatus(raw); st {
	case StatusQueued, StatusCooldown, StatusInBattle, StatusDefeated:
		return st, true
	default:
		return "", false
	}
}
