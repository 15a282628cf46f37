package engine

import "github.com/DoyleJ11/boss-battle-client/pkg/types"

// applyStatus replaces boss HP and player hearts wholesale from an
// authoritative battle-status block. Nothing here is derived from damage.
func applyStatus(s State, bs types.BattleStatus, effects *[]Effect) State {
	if st, ok := parseStatus(bs.Status); ok {
		s = advanceStatus(s, st, effects)
	}

	if bs.BossMaxHP != nil && *bs.BossMaxHP > 0 {
		s.Session.BossMaxHP = *bs.BossMaxHP
	}
	// Absent HP leaves the boss where it was.
	if bs.BossCurrentHP != nil {
		prevHP := s.Session.BossCurrentHP
		hp := max(*bs.BossCurrentHP, 0)
		if s.Session.BossMaxHP > 0 {
			hp = min(hp, s.Session.BossMaxHP)
		}
		s.Session.BossCurrentHP = hp
		if hp < prevHP {
			*effects = append(*effects, Cue{Kind: CueBossHit, Value: prevHP - hp})
		}
	}

	if bs.PlayerHearts != nil {
		s = applyHearts(s, *bs.PlayerHearts, bs.IsKnockedOut, effects)
	}
	if bs.IsKnockedOut {
		s = knockOut(s, bs.RevivalCode, 0, effects)
	}

	if bs.BossCurrentHP != nil && s.Session.BossMaxHP > 0 && s.Session.BossCurrentHP == 0 {
		s = triggerDefeat(s, effects)
	}
	return s
}

// applyHearts keeps hearts == 0 exactly when the player is not active.
// Only knockout/revival messages move the lifecycle, so a zero without the
// knockout flag holds the last heart until the knockout notice arrives.
func applyHearts(s State, hearts int, knockedOut bool, effects *[]Effect) State {
	hearts = clamp(hearts, 0, s.Rules.MaxHearts)
	if s.Player.Lifecycle != LifecycleActive {
		s.Player.Hearts = 0
		return s
	}
	if hearts == 0 && !knockedOut {
		hearts = 1
	}
	if hearts < s.Player.Hearts {
		*effects = append(*effects, Cue{Kind: CueHeartLost, Value: hearts})
	}
	s.Player.Hearts = hearts
	return s
}

// advanceStatus only moves forward: queued/cooldown -> in-battle -> defeated.
func advanceStatus(s State, st BattleStatus, effects *[]Effect) State {
	if statusRank(st) < statusRank(s.Session.Status) {
		return s
	}
	prev := s.Session.Status
	s.Session.Status = st
	switch {
	case st == StatusDefeated:
		s = triggerDefeat(s, effects)
	case st == StatusInBattle && prev != StatusInBattle:
		s = maybeRequestQuestion(s, effects)
	}
	return s
}

func applyAttack(s State, a types.PlayerAttacked) ([]Effect, State, error) {
	var effects []Effect
	if a.Damage > 0 {
		effects = append(effects, DamageNumber{Amount: a.Damage, Category: a.ResponseCategory, Source: a.PlayerNickname})
	}
	hp := a.BossCurrentHP
	s = applyStatus(s, types.BattleStatus{BossCurrentHP: &hp}, &effects)
	return effects, s, nil
}
