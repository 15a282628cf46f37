package hub

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/boss-battle-client/internal/battle"
)

var ErrNotMounted = errors.New("no battle mounted for session")

type HubMsg interface{ isHubMsg() }

// Builder creates the screen when MountBattle finds none. It runs on the hub
// goroutine with the hub's context as parent.
type Builder func(ctx context.Context) *battle.Battle

// MountBattle returns the screen for SessionKey, building it if needed.
type MountBattle struct {
	SessionKey string
	Build      Builder
	Reply      chan *battle.Battle
}

type GetBattle struct {
	SessionKey string
	Reply      chan *battle.Battle
}

type UnmountBattle struct {
	SessionKey string
	Reply      chan error
}

type ListBattles struct {
	Reply chan []string
}

type ShutdownHub struct {
	Reply chan error
}

func (MountBattle) isHubMsg()   {}
func (GetBattle) isHubMsg()     {}
func (UnmountBattle) isHubMsg() {}
func (ListBattles) isHubMsg()   {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox   chan HubMsg
	battles map[string]*battle.Battle
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		battles: make(map[string]*battle.Battle),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			_ = h.closeAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case MountBattle:
				if b := h.battles[msg.SessionKey]; b != nil {
					msg.Reply <- b
					break
				}
				if msg.Build == nil {
					msg.Reply <- nil
					break
				}
				b := msg.Build(h.ctx)
				h.battles[msg.SessionKey] = b
				msg.Reply <- b

			case GetBattle:
				msg.Reply <- h.battles[msg.SessionKey] // May be nil

			case UnmountBattle:
				b := h.battles[msg.SessionKey]
				delete(h.battles, msg.SessionKey)
				var err error
				if b == nil {
					err = ErrNotMounted
				} else {
					err = b.Close()
				}
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case ListBattles:
				keys := make([]string, 0, len(h.battles))
				for k := range h.battles {
					keys = append(keys, k)
				}
				slices.Sort(keys)
				msg.Reply <- keys

			case ShutdownHub:
				err := h.closeAll()
				h.cancel()
				if msg.Reply != nil {
					msg.Reply <- err
				}
				return
			}
		}
	}
}

func (h *Hub) closeAll() error {
	var err error
	for key, b := range h.battles {
		err = multierr.Append(err, b.Close())
		delete(h.battles, key)
	}
	return err
}

// Convenience wrappers for callers outside the hub goroutine.

func (h *Hub) Mount(ctx context.Context, key string, build Builder) (*battle.Battle, error) {
	reply := make(chan *battle.Battle, 1)
	if err := h.send(ctx, MountBattle{SessionKey: key, Build: build, Reply: reply}); err != nil {
		return nil, err
	}
	return recv(ctx, h, reply)
}

func (h *Hub) Get(ctx context.Context, key string) (*battle.Battle, error) {
	reply := make(chan *battle.Battle, 1)
	if err := h.send(ctx, GetBattle{SessionKey: key, Reply: reply}); err != nil {
		return nil, err
	}
	b, err := recv(ctx, h, reply)
	if err == nil && b == nil {
		return nil, ErrNotMounted
	}
	return b, err
}

func (h *Hub) Unmount(ctx context.Context, key string) error {
	reply := make(chan error, 1)
	if err := h.send(ctx, UnmountBattle{SessionKey: key, Reply: reply}); err != nil {
		return err
	}
	err, rerr := recv(ctx, h, reply)
	if rerr != nil {
		return rerr
	}
	return err
}

func (h *Hub) List(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := h.send(ctx, ListBattles{Reply: reply}); err != nil {
		return nil, err
	}
	return recv(ctx, h, reply)
}

// Shutdown closes every mounted screen and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case h.inbox <- ShutdownHub{Reply: reply}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var errStopped = errors.New("hub stopped")

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func recv[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, errStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
