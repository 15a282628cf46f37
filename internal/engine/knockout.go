package engine

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

const ReviveCodeLength = 6

var upper = cases.Upper(language.Und)

// knockOut moves an active player to KnockedOut. Repeated notices only fill
// in a revival code that was missing the first time.
func knockOut(s State, code string, seconds int, effects *[]Effect) State {
	switch s.Player.Lifecycle {
	case LifecycleDead:
		return s
	case LifecycleKnockedOut:
		if s.Knockout.RevivalCode == "" && code != "" {
			s.Knockout.RevivalCode = code
		}
		return s
	}

	if seconds <= 0 {
		seconds = s.Rules.RevivalSeconds
	}
	s = suspendRound(s, effects)
	s.Player.Lifecycle = LifecycleKnockedOut
	s.Player.Hearts = 0
	s.Knockout = Knockout{RevivalCode: code, SecondsLeft: seconds}
	*effects = append(*effects, Cue{Kind: CueKnockedOut, Text: code, Value: seconds})
	if s.Defeat.Triggered {
		return s
	}
	s = startTimer(s, TimerRevival, 0, s.Rules.TickInterval, effects)
	return s
}

// resumeKnockout applies a knocked-out snapshot. The server's code and
// countdown replace the local ones, and a locally inferred Dead comes back.
func resumeKnockout(s State, code string, seconds int, effects *[]Effect) State {
	if s.Player.Lifecycle == LifecycleActive {
		return knockOut(s, code, seconds, effects)
	}
	if seconds <= 0 {
		seconds = s.Rules.RevivalSeconds
	}
	if code == "" {
		code = s.Knockout.RevivalCode
	}
	wasDead := s.Player.Lifecycle == LifecycleDead
	s.Player.Lifecycle = LifecycleKnockedOut
	s.Player.Hearts = 0
	s.Knockout = Knockout{RevivalCode: code, SecondsLeft: seconds}
	if wasDead {
		*effects = append(*effects, Cue{Kind: CueKnockedOut, Text: code, Value: seconds})
	}
	if s.Defeat.Triggered {
		return s
	}
	s = startTimer(s, TimerRevival, 0, s.Rules.TickInterval, effects)
	return s
}

// die is terminal and idempotent: a server death notice arriving after the
// local countdown already expired changes nothing.
func die(s State, effects *[]Effect) State {
	if s.Player.Lifecycle == LifecycleDead {
		return s
	}
	if s.Player.Lifecycle == LifecycleKnockedOut {
		s = stopTimer(s, TimerRevival, effects)
		*effects = append(*effects, Cue{Kind: CueStopLoop})
	}
	s = suspendRound(s, effects)
	s.Player.Lifecycle = LifecycleDead
	s.Player.Hearts = 0
	s.Knockout = Knockout{}
	s.ReviveInFlight = false
	*effects = append(*effects, Cue{Kind: CueDied})
	return s
}

// restore returns a knocked-out (or, from a snapshot, dead) player to Active.
func restore(s State, hearts int, effects *[]Effect) State {
	if s.Player.Lifecycle == LifecycleKnockedOut {
		s = stopTimer(s, TimerRevival, effects)
		*effects = append(*effects, Cue{Kind: CueStopLoop})
	}
	s.Player.Lifecycle = LifecycleActive
	s.Player.Hearts = clamp(hearts, 1, s.Rules.MaxHearts)
	s.Knockout = Knockout{}
	*effects = append(*effects, Cue{Kind: CueRevived, Value: s.Player.Hearts})
	return s
}

func revive(s State, n types.PlayerRevived) ([]Effect, State, error) {
	if s.Player.Lifecycle != LifecycleKnockedOut {
		return nil, s, nil
	}
	var effects []Effect
	s = restore(s, n.PlayerHearts, &effects)
	s = maybeRequestQuestion(s, &effects)
	return effects, s, nil
}

func tickRevival(s State) ([]Effect, State, error) {
	if s.Player.Lifecycle != LifecycleKnockedOut {
		return nil, s, nil
	}
	if s.Knockout.SecondsLeft > 0 {
		s.Knockout.SecondsLeft--
	}
	if s.Knockout.SecondsLeft > 0 {
		return nil, s, nil
	}
	// No revival arrived in time; the server's own death notice may follow.
	var effects []Effect
	s = die(s, &effects)
	return effects, s, nil
}

func trackTeammate(s State, n types.TeammateNotice) ([]Effect, State, error) {
	name := strings.TrimSpace(n.PlayerName)
	if name == "" || (n.PlayerID != "" && n.PlayerID == s.Player.PlayerID) {
		return nil, s, nil
	}
	if slices.ContainsFunc(s.Teammates, func(t RevivalTicket) bool { return t.PlayerName == name }) {
		return nil, s, nil
	}

	seconds := n.SecondsRemaining
	if seconds <= 0 {
		seconds = s.Rules.RevivalSeconds
	}
	var effects []Effect
	wasEmpty := len(s.Teammates) == 0
	s.Teammates = append(slices.Clone(s.Teammates), RevivalTicket{
		PlayerID:         n.PlayerID,
		PlayerName:       name,
		SecondsRemaining: seconds,
	})
	effects = append(effects, Cue{Kind: CueTeammateDown, Text: name})
	if wasEmpty {
		s = startTimer(s, TimerTeammates, 0, s.Rules.TickInterval, &effects)
	}
	return effects, s, nil
}

func untrackTeammate(s State, n types.TeammateNotice, kind CueKind) ([]Effect, State, error) {
	name := strings.TrimSpace(n.PlayerName)
	idx := slices.IndexFunc(s.Teammates, func(t RevivalTicket) bool { return t.PlayerName == name })
	if idx < 0 {
		return nil, s, nil
	}
	var effects []Effect
	// Revived or gone, the teammate no longer takes codes.
	s.ReviveInFlight = false
	s.Teammates = slices.Delete(slices.Clone(s.Teammates), idx, idx+1)
	effects = append(effects, Cue{Kind: kind, Text: name})
	if len(s.Teammates) == 0 {
		s = stopTimer(s, TimerTeammates, &effects)
	}
	return effects, s, nil
}

func tickTeammates(s State) ([]Effect, State, error) {
	if len(s.Teammates) == 0 {
		return nil, s, nil
	}
	next := make([]RevivalTicket, 0, len(s.Teammates))
	for _, t := range s.Teammates {
		t.SecondsRemaining--
		if t.SecondsRemaining > 0 {
			next = append(next, t)
		}
	}
	s.Teammates = next

	var effects []Effect
	if len(next) == 0 {
		s = stopTimer(s, TimerTeammates, &effects)
	}
	return effects, s, nil
}

// NormalizeReviveCode uppercases and validates a typed revival code.
func NormalizeReviveCode(raw string) (string, error) {
	code := upper.String(strings.TrimSpace(raw))
	if utf8.RuneCountInString(code) != ReviveCodeLength {
		return "", ErrInvalidReviveCode
	}
	return code, nil
}

func submitRevivalCode(s State, raw string) ([]Effect, State, error) {
	switch {
	case s.Left:
		return nil, s, ErrLeft
	case s.Player.Lifecycle == LifecycleDead:
		return nil, s, ErrPlayerDead
	case s.ReviveInFlight:
		return nil, s, ErrReviveInFlight
	}
	code, err := NormalizeReviveCode(raw)
	if err != nil {
		return nil, s, err
	}

	s.ReviveInFlight = true
	return []Effect{Emit{
		Event:   types.CmdReviveTeammate,
		Payload: types.ReviveTeammate{SessionKey: s.Session.SessionKey, ReviveCode: code},
	}}, s, nil
}
