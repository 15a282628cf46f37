package battle

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/boss-battle-client/internal/badges"
	"github.com/DoyleJ11/boss-battle-client/internal/effects"
	"github.com/DoyleJ11/boss-battle-client/internal/engine"
	"github.com/DoyleJ11/boss-battle-client/internal/metrics"
	"github.com/DoyleJ11/boss-battle-client/internal/prefs"
	"github.com/DoyleJ11/boss-battle-client/internal/ws"
	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

var ErrClosed = errors.New("battle screen closed")

// Transport is the write side of the battle socket.
type Transport interface {
	Emit(ctx context.Context, event string, payload any) error
	Connected() bool
}

// Subscriber is the read side, scoped to this screen. *ws.Scope fits.
type Subscriber interface {
	On(event string, h ws.Handler)
	Close()
}

type IdentityStore interface {
	Save(ctx context.Context, userID string, id prefs.Identity) error
}

type Msg interface{ isBattleMsg() }

type FromServer struct{ Event engine.Event }

type FromPlayer struct {
	Cmd   engine.Event
	Reply chan error
}

type GetState struct{ Reply chan View }

// Watch registers an observer. Observers that fall behind are dropped and
// their outbox closed.
type Watch struct {
	ID     string
	Outbox chan View
}

type Unwatch struct{ ID string }

type Shutdown struct{}

type timerMsg struct{ fired engine.TimerFired }

func (FromServer) isBattleMsg() {}
func (FromPlayer) isBattleMsg() {}
func (GetState) isBattleMsg()   {}
func (Watch) isBattleMsg()      {}
func (Unwatch) isBattleMsg()    {}
func (Shutdown) isBattleMsg()   {}
func (timerMsg) isBattleMsg()   {}

type View struct {
	Version     int          `json:"version"`
	NumWatchers int          `json:"numWatchers"`
	State       engine.State `json:"state"`
}

type Options struct {
	Mount      engine.Mount
	Rules      engine.Rules
	Transport  Transport
	Scope      Subscriber
	Sequencer  *effects.Sequencer
	Badges     *badges.Queue
	Identities IdentityStore
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// Battle is one mounted battle screen. A single goroutine owns the engine
// state; everything else talks to it through the inbox.
type Battle struct {
	opts Options
	log  *zap.Logger
	now  func() time.Time

	inbox    chan Msg
	state    engine.State
	version  int
	watchers map[string]chan View
	timers   *timers

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	bg        sync.WaitGroup
}

func New(parent context.Context, opts Options) *Battle {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}

	ctx, cancel := context.WithCancel(parent)
	b := &Battle{
		opts:     opts,
		log:      opts.Logger.Named("battle").With(zap.String("session_key", opts.Mount.SessionKey)),
		now:      opts.Now,
		inbox:    make(chan Msg, 64),
		state:    engine.NewState(opts.Rules),
		watchers: make(map[string]chan View),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	b.timers = newTimers(func(f engine.TimerFired) { b.post(timerMsg{fired: f}) })

	// Mount goes in first so it precedes anything the socket delivers.
	b.inbox <- FromServer{Event: opts.Mount}
	go b.loop()

	b.subscribe()
	b.opts.Metrics.ScreenMounted()
	return b
}

func (b *Battle) subscribe() {
	if b.opts.Scope == nil {
		return
	}
	b.opts.Scope.On(ws.EventConnect, func(json.RawMessage) {
		b.opts.Metrics.Connected()
		b.post(FromServer{Event: engine.Connected{}})
	})
	b.opts.Scope.On(ws.EventDisconnect, func(json.RawMessage) {
		b.post(FromServer{Event: engine.Disconnected{}})
	})
	for _, name := range ServerEvents {
		b.opts.Scope.On(name, func(raw json.RawMessage) {
			b.opts.Metrics.InboundMsg(name)
			ev, err := decode(name, raw, b.now())
			if err != nil {
				b.log.Warn("dropping server message", zap.String("event", name), zap.Error(err))
				return
			}
			b.post(FromServer{Event: ev})
		})
	}
	// Connected before we subscribed: the engine ignores a duplicate.
	if b.opts.Transport != nil && b.opts.Transport.Connected() {
		b.post(FromServer{Event: engine.Connected{}})
	}
}

func (b *Battle) post(m Msg) {
	select {
	case b.inbox <- m:
	case <-b.ctx.Done():
	}
}

func (b *Battle) loop() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case m := <-b.inbox:
			switch msg := m.(type) {
			case FromServer:
				if err := b.apply(msg.Event); err != nil {
					b.log.Debug("server event rejected", zap.Error(err))
				}

			case FromPlayer:
				err := b.apply(msg.Cmd)
				if err != nil {
					b.opts.Metrics.RejectedCmd(err.Error())
				}
				msg.Reply <- err

			case timerMsg:
				_ = b.apply(msg.fired)

			case GetState:
				msg.Reply <- b.view()

			case Watch:
				b.watchers[msg.ID] = msg.Outbox
				b.send(msg.ID, msg.Outbox, b.view())

			case Unwatch:
				if ch, ok := b.watchers[msg.ID]; ok {
					close(ch)
					delete(b.watchers, msg.ID)
				}

			case Shutdown:
				b.shutdown()
				return
			}
		}
	}
}

func (b *Battle) view() View {
	return View{Version: b.version, NumWatchers: len(b.watchers), State: b.state}
}

func (b *Battle) apply(ev engine.Event) error {
	out, next, err := engine.Apply(b.state, ev)
	if err != nil {
		return err
	}
	b.state = next
	b.version++
	for _, e := range out {
		b.run(e)
	}
	b.broadcast()
	return nil
}

func (b *Battle) run(e engine.Effect) {
	switch e := e.(type) {
	case engine.Emit:
		b.emit(e)
	case engine.StartTimer:
		b.timers.start(e)
	case engine.StopTimer:
		b.timers.stop(e.Timer)
	case engine.Cue:
		if b.opts.Sequencer != nil {
			b.opts.Sequencer.Cue(e)
		}
	case engine.DamageNumber:
		if b.opts.Sequencer != nil {
			b.opts.Sequencer.Damage(e)
		}
	case engine.Badge:
		if b.opts.Badges != nil {
			b.opts.Badges.Push(e)
		}
	case engine.Remember:
		b.remember(e)
	}
}

// emit writes synchronously so outbound order matches effect order. A write
// that fails while offline is recovered by the resync after reconnect.
func (b *Battle) emit(e engine.Emit) {
	if sub, ok := e.Payload.(types.SubmitAnswer); ok && sub.IsTimeout {
		b.opts.Metrics.TimeoutSubmitted()
	}
	if b.opts.Transport == nil {
		return
	}
	if err := b.opts.Transport.Emit(b.ctx, e.Event, e.Payload); err != nil {
		b.opts.Metrics.EmitFailed(e.Event)
		b.log.Warn("emit failed", zap.String("event", e.Event), zap.Error(err))
		return
	}
	b.opts.Metrics.OutboundMsg(e.Event)
}

func (b *Battle) remember(e engine.Remember) {
	if b.opts.Identities == nil {
		return
	}
	userID := b.state.Player.UserID
	b.bg.Add(1)
	go func() {
		defer b.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := b.opts.Identities.Save(ctx, userID, prefs.Identity{SessionKey: e.SessionKey, PlayerID: e.PlayerID})
		if err != nil {
			b.log.Warn("identity not saved", zap.String("player_id", e.PlayerID), zap.Error(err))
		}
	}()
}

func (b *Battle) broadcast() {
	v := b.view()
	for id, ch := range b.watchers {
		b.send(id, ch, v)
	}
}

func (b *Battle) send(id string, ch chan View, v View) {
	select {
	case ch <- v:
	default:
		// Watcher is slow/full - drop it.
		close(ch)
		delete(b.watchers, id)
	}
}

func (b *Battle) shutdown() {
	b.cancel()
	if b.opts.Scope != nil {
		b.opts.Scope.Close()
	}
	b.timers.stopAll()
	if b.opts.Sequencer != nil {
		b.opts.Sequencer.Close()
	}
	if b.opts.Badges != nil {
		b.opts.Badges.Close()
	}
	for id, ch := range b.watchers {
		close(ch)
		delete(b.watchers, id)
	}
	b.bg.Wait()
	b.opts.Metrics.ScreenUnmounted()
}

// Handle runs one local player command through the engine and returns its
// rejection, if any.
func (b *Battle) Handle(ctx context.Context, cmd engine.Event) error {
	if sub, ok := cmd.(engine.SubmitAnswer); ok && sub.At.IsZero() {
		sub.At = b.now()
		cmd = sub
	}
	reply := make(chan error, 1)
	select {
	case b.inbox <- FromPlayer{Cmd: cmd, Reply: reply}:
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Battle) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case b.inbox <- GetState{Reply: reply}:
	case <-b.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-b.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Watch registers outbox for every new View. It returns ErrClosed once the
// screen is unmounted; callers should still select on Done, since a
// registration racing the shutdown is never answered.
func (b *Battle) Watch(id string, outbox chan View) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.inbox <- Watch{ID: id, Outbox: outbox}:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

func (b *Battle) Unwatch(id string) { b.post(Unwatch{ID: id}) }

func (b *Battle) Badges() []badges.Item {
	if b.opts.Badges == nil {
		return nil
	}
	return b.opts.Badges.Items()
}

func (b *Battle) Numbers() []effects.Floating {
	if b.opts.Sequencer == nil {
		return nil
	}
	return b.opts.Sequencer.Numbers()
}

func (b *Battle) SessionKey() string { return b.opts.Mount.SessionKey }

func (b *Battle) Inbox() chan<- Msg { return b.inbox }

func (b *Battle) Done() <-chan struct{} { return b.done }

// Close unmounts the screen: handlers deregistered, timers cleared, loops
// silenced. Safe to call more than once.
func (b *Battle) Close() error {
	b.closeOnce.Do(func() {
		select {
		case b.inbox <- Shutdown{}:
		case <-b.done:
		case <-time.After(time.Second):
			b.cancel()
		}
	})
	<-b.done
	return nil
}
