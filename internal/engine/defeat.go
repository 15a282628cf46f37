package engine

// triggerDefeat is one-way: the first call starts the banner delay, every
// later call is a no-op.
func triggerDefeat(s State, effects *[]Effect) State {
	if s.Defeat.Triggered {
		return s
	}
	s.Defeat.Triggered = true
	s.Session.Status = StatusDefeated
	s.Session.BossCurrentHP = 0

	s = suspendRound(s, effects)
	if s.Player.Lifecycle == LifecycleKnockedOut {
		s = stopTimer(s, TimerRevival, effects)
		*effects = append(*effects, Cue{Kind: CueStopLoop})
	}
	s = startTimer(s, TimerDefeat, s.Rules.DefeatBannerDelay, 0, effects)
	return s
}

func tickDefeat(s State) ([]Effect, State, error) {
	if !s.Defeat.Triggered || s.Defeat.Navigated {
		return nil, s, nil
	}
	var effects []Effect

	if !s.Defeat.BannerShown {
		s.Defeat.BannerShown = true
		s.Defeat.CountdownLeft = s.Rules.DefeatCountdown
		effects = append(effects, Cue{Kind: CueDefeatBanner, Value: s.Defeat.CountdownLeft})
		if s.Defeat.CountdownLeft > 0 {
			s = startTimer(s, TimerDefeat, 0, s.Rules.TickInterval, &effects)
			return effects, s, nil
		}
	} else {
		s.Defeat.CountdownLeft--
		if s.Defeat.CountdownLeft > 0 {
			effects = append(effects, Cue{Kind: CueDefeatCountdown, Value: s.Defeat.CountdownLeft})
			return effects, s, nil
		}
	}

	s.Defeat.CountdownLeft = 0
	s.Defeat.Navigated = true
	s = stopTimer(s, TimerDefeat, &effects)
	effects = append(effects, Cue{Kind: CueNavigatePodium})
	return effects, s, nil
}
