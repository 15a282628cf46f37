package effects

import "go.uber.org/zap"

// LogSink renders effects as log lines. It is the sink a headless client runs
// with.
type LogSink struct {
	Log *zap.Logger
	// OnNavigate, when set, is called after the navigation is logged.
	OnNavigate func(route string)
}

func (s LogSink) Play(sound string)      { s.Log.Info("play", zap.String("sound", sound)) }
func (s LogSink) StartLoop(sound string) { s.Log.Info("loop start", zap.String("sound", sound)) }
func (s LogSink) StopLoop(sound string)  { s.Log.Info("loop stop", zap.String("sound", sound)) }
func (s LogSink) Flash(on bool)          { s.Log.Debug("flash", zap.Bool("on", on)) }
func (s LogSink) Toast(text string)      { s.Log.Info("toast", zap.String("text", text)) }

func (s LogSink) Navigate(route string) {
	s.Log.Info("navigate", zap.String("route", route))
	if s.OnNavigate != nil {
		s.OnNavigate(route)
	}
}
