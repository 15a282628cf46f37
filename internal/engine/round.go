package engine

import (
	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

// canPlay reports whether this client may take part in rounds right now.
func canPlay(s State) bool {
	return !s.Left &&
		s.Resynced &&
		s.Player.Lifecycle == LifecycleActive &&
		s.Session.Status == StatusInBattle &&
		!s.Defeat.Triggered
}

// maybeRequestQuestion enters AwaitingQuestion and asks for the next question.
// It is the only place a question-request is emitted.
func maybeRequestQuestion(s State, effects *[]Effect) State {
	if !canPlay(s) {
		return s
	}
	switch s.Round.Phase {
	case PhaseAnswerable, PhaseAwaitingResult:
		return s
	}
	if s.Round.Phase == PhaseAwaitingQuestion && s.Round.Requested {
		return s
	}
	s.Round.Phase = PhaseAwaitingQuestion
	s.Round.Requested = true
	*effects = append(*effects, Emit{
		Event:   types.CmdQuestionRequest,
		Payload: types.QuestionRequest{SessionKey: s.Session.SessionKey},
	})
	return s
}

// suspendRound abandons whatever round is in flight and silences its timers.
func suspendRound(s State, effects *[]Effect) State {
	if s.Round.Phase == PhaseAnswerable {
		s = stopTimer(s, TimerRound, effects)
	}
	if s.Round.Phase == PhaseAwaitingResult {
		s = stopTimer(s, TimerSettle, effects)
	}
	s.Round.Phase = PhaseSuspended
	s.Round.Requested = false
	return s
}

func receiveQuestion(s State, e QuestionReceived) ([]Effect, State, error) {
	q := e.Question
	if s.Left || s.Player.Lifecycle != LifecycleActive || s.Defeat.Triggered {
		return nil, s, nil
	}
	if q.ID == s.Round.QuestionID && (s.Round.Phase == PhaseAnswerable || s.Round.Phase == PhaseAwaitingResult) {
		// Redelivery of the round already in progress.
		return nil, s, nil
	}

	var effects []Effect
	// A new question always supersedes the previous round and its timers.
	s = stopTimer(s, TimerRound, &effects)
	s = stopTimer(s, TimerSettle, &effects)

	choices := make([]Choice, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = Choice{ServerIndex: c.Index, DisplayIndex: i, Text: c.Text}
	}
	s.Round = Round{
		QuestionID:         q.ID,
		Text:               q.Text,
		Choices:            choices,
		CorrectServerIndex: q.CorrectIndex,
		TimeLimit:          q.TimeLimit,
		QuestionNumber:     q.QuestionNumber,
		Phase:              PhaseAnswerable,
		SecondsLeft:        q.TimeLimit,
		Selected:           -1,
		ReceivedAt:         e.At,
	}
	if statusRank(s.Session.Status) < statusRank(StatusInBattle) {
		s.Session.Status = StatusInBattle
	}
	s = startTimer(s, TimerRound, 0, s.Rules.TickInterval, &effects)
	return effects, s, nil
}

func submitAnswer(s State, e SubmitAnswer) ([]Effect, State, error) {
	switch {
	case s.Left:
		return nil, s, ErrLeft
	case s.Player.Lifecycle == LifecycleDead:
		return nil, s, ErrPlayerDead
	case s.Round.Phase != PhaseAnswerable:
		return nil, s, ErrNotAnswerable
	case e.QuestionID != s.Round.QuestionID:
		return nil, s, ErrStaleQuestion
	case e.DisplayIndex < 0 || e.DisplayIndex >= len(s.Round.Choices):
		return nil, s, ErrUnknownChoice
	}

	var effects []Effect
	s = stopTimer(s, TimerRound, &effects)
	s.Round.Phase = PhaseAwaitingResult
	s.Round.Selected = e.DisplayIndex

	limitMs := int64(s.Round.TimeLimit) * 1000
	elapsed := e.At.Sub(s.Round.ReceivedAt).Milliseconds()
	if elapsed < 0 || s.Round.ReceivedAt.IsZero() || e.At.IsZero() {
		elapsed = 0
	}
	if limitMs > 0 && elapsed > limitMs {
		elapsed = limitMs
	}

	effects = append(effects, Emit{
		Event: types.CmdSubmitAnswer,
		Payload: types.SubmitAnswer{
			SessionKey:   s.Session.SessionKey,
			QuestionID:   s.Round.QuestionID,
			ChoiceIndex:  s.Round.Choices[e.DisplayIndex].ServerIndex,
			ResponseTime: elapsed,
		},
	})
	return effects, s, nil
}

func tickRound(s State) ([]Effect, State, error) {
	if s.Round.Phase != PhaseAnswerable {
		return nil, s, nil
	}
	if s.Round.SecondsLeft > 0 {
		s.Round.SecondsLeft--
	}
	if s.Round.SecondsLeft > 0 {
		return nil, s, nil
	}

	var effects []Effect
	s = stopTimer(s, TimerRound, &effects)
	s.Round.Phase = PhaseAwaitingResult
	effects = append(effects,
		Emit{
			Event: types.CmdSubmitAnswer,
			Payload: types.SubmitAnswer{
				SessionKey:   s.Session.SessionKey,
				QuestionID:   s.Round.QuestionID,
				ChoiceIndex:  types.NoAnswer,
				ResponseTime: int64(s.Round.TimeLimit) * 1000,
				IsTimeout:    true,
			},
		},
		Cue{Kind: CueTimeout},
	)
	return effects, s, nil
}

func applyResult(s State, r types.AnswerResult) ([]Effect, State, error) {
	var effects []Effect

	if r.IsCorrect {
		effects = append(effects, Cue{Kind: CueCorrect, Value: r.Damage})
	} else {
		effects = append(effects, Cue{Kind: CueWrong})
	}
	if r.IsCorrect && r.Damage > 0 {
		effects = append(effects, DamageNumber{Amount: r.Damage, Category: r.ResponseCategory, Source: s.Player.PlayerName})
	}

	s = applyStatus(s, r.BattleStatus, &effects)

	// A late result for a superseded round still carries authoritative HP,
	// but it must not move the current round.
	if s.Round.Phase != PhaseAwaitingResult {
		return effects, s, nil
	}
	if r.QuestionID != "" && r.QuestionID != s.Round.QuestionID {
		return effects, s, nil
	}
	if !canPlay(s) {
		s = suspendRound(s, &effects)
		return effects, s, nil
	}
	s = startTimer(s, TimerSettle, s.Rules.SettleDelay, 0, &effects)
	return effects, s, nil
}

func settle(s State) ([]Effect, State, error) {
	if s.Round.Phase != PhaseAwaitingResult {
		return nil, s, nil
	}
	var effects []Effect
	if !canPlay(s) {
		s = suspendRound(s, &effects)
		return effects, s, nil
	}
	s.Round.Phase = PhaseAwaitingQuestion
	s.Round.Requested = false
	s = maybeRequestQuestion(s, &effects)
	return effects, s, nil
}
