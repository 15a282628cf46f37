package engine

import "github.com/DoyleJ11/boss-battle-client/pkg/types"

func mount(s State, m Mount) ([]Effect, State, error) {
	if s.Mounted {
		return nil, s, nil
	}
	s.Mounted = true
	s.Session.SessionKey = m.SessionKey
	s.Session.BossID = m.BossID
	s.Session.JoinCode = m.JoinCode
	s.Player.UserID = m.UserID
	s.Player.PlayerName = m.PlayerName
	s.Identity.LastKnownPlayerID = m.LastKnownPlayerID
	s.Identity.Kind = JoinFirst
	if m.LastKnownPlayerID != "" {
		s.Identity.Kind = JoinReconnect
	}

	var effects []Effect
	if s.Conn.Connected {
		s = requestResync(s, &effects)
	}
	return effects, s, nil
}

func connected(s State) ([]Effect, State, error) {
	if s.Conn.Connected {
		// Duplicate connect notice within the same epoch.
		return nil, s, nil
	}
	s.Conn.Connected = true
	s.Conn.Epoch++

	var effects []Effect
	s = requestResync(s, &effects)
	return effects, s, nil
}

// requestResync sends at most one reconnect-request per connection epoch.
func requestResync(s State, effects *[]Effect) State {
	if s.Left || s.Conn.RequestedEpoch >= s.Conn.Epoch {
		return s
	}
	s.Conn.RequestedEpoch = s.Conn.Epoch

	lastKnown := s.Player.PlayerID
	if lastKnown == "" {
		lastKnown = s.Identity.LastKnownPlayerID
	}
	*effects = append(*effects, Emit{
		Event: types.CmdReconnectRequest,
		Payload: types.ReconnectRequest{
			SessionKey: s.Session.SessionKey,
			UserInfo: types.UserInfo{
				UserID:            s.Player.UserID,
				Username:          s.Player.PlayerName,
				LastKnownPlayerID: lastKnown,
			},
		},
	})
	return s
}

// applySnapshot overwrites local state with the server's view. Local values
// may be stale by an arbitrary amount of time, so nothing local survives
// except the round that is currently being answered.
func applySnapshot(s State, snap types.Snapshot, alreadyStarted bool) ([]Effect, State, error) {
	var effects []Effect

	if snap.SessionID != "" {
		s.Session.SessionID = snap.SessionID
	}
	if snap.BossID != "" {
		s.Session.BossID = snap.BossID
	}
	if alreadyStarted && s.Identity.Kind == JoinFirst {
		s.Identity.Kind = JoinMidBattle
	}
	s = rememberPlayer(s, snap.PlayerID, &effects)
	if snap.TeamID != "" || snap.TeamName != "" {
		s.Player.TeamID = snap.TeamID
		s.Player.TeamName = snap.TeamName
	}

	// Any revive reply was lost with the old connection.
	s.ReviveInFlight = false

	hearts := snap.PlayerHearts
	switch {
	case snap.IsDead:
		s = die(s, &effects)
	case snap.IsKnockedOut:
		s = resumeKnockout(s, snap.RevivalCode, snap.RevivalSecondsLeft, &effects)
	default:
		if s.Player.Lifecycle != LifecycleActive {
			s = restore(s, hearts, &effects)
		}
		s.Player.Hearts = clamp(hearts, 1, s.Rules.MaxHearts)
	}

	s = applyStatus(s, types.BattleStatus{
		Status:        snap.Status,
		BossCurrentHP: &snap.BossCurrentHP,
		BossMaxHP:     &snap.BossMaxHP,
	}, &effects)

	if !s.Resynced {
		s.Resynced = true
	}
	if !s.Joined {
		s.Joined = true
		effects = append(effects, Cue{Kind: CueJoined, Text: s.Player.TeamName})
	}

	// A submission or result lost across the disconnect would otherwise
	// leave the round waiting forever.
	if s.Round.Phase == PhaseAwaitingResult {
		s = stopTimer(s, TimerSettle, &effects)
		s.Round.Phase = PhaseAwaitingQuestion
		s.Round.Requested = false
	}
	s = maybeRequestQuestion(s, &effects)
	return effects, s, nil
}

func applyTeamInfo(s State, info types.TeamInfo) ([]Effect, State, error) {
	var effects []Effect
	s.Player.TeamID = info.TeamID
	s.Player.TeamName = info.TeamName
	s = rememberPlayer(s, info.PlayerID, &effects)
	return effects, s, nil
}

func applyJoined(s State, j types.JoinedBattle) ([]Effect, State, error) {
	var effects []Effect
	s = rememberPlayer(s, j.PlayerID, &effects)
	if j.TeamID != "" {
		s.Player.TeamID = j.TeamID
	}
	if j.TeamName != "" {
		s.Player.TeamName = j.TeamName
	}
	if !s.Joined {
		s.Joined = true
		effects = append(effects, Cue{Kind: CueJoined, Text: s.Player.TeamName})
	}
	return effects, s, nil
}

func rememberPlayer(s State, playerID string, effects *[]Effect) State {
	if playerID == "" || playerID == s.Player.PlayerID {
		return s
	}
	s.Player.PlayerID = playerID
	*effects = append(*effects, Remember{SessionKey: s.Session.SessionKey, PlayerID: playerID})
	return s
}
