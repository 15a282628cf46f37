package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

var ErrNotConnected = errors.New("battle socket not connected")
var ErrClosed = errors.New("battle socket closed")

// Synthetic lifecycle notices, delivered through Subscribe like server events.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

type Handler func(payload json.RawMessage)

type Options struct {
	URL             string
	Header          http.Header
	InitialInterval time.Duration
	MaxInterval     time.Duration
	WriteTimeout    time.Duration
	Logger          *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type entry struct {
	id uint64
	h  Handler
}

// Channel is one persistent connection to the battle server. It redials on
// its own after a drop; losing the connection is never returned as an error,
// it only shows up as a disconnect notice to subscribers.
type Channel struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]entry
	nextID   uint64

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Dial starts the connect loop and returns immediately.
func Dial(parent context.Context, opts Options) *Channel {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(parent)
	c := &Channel{
		opts:     opts,
		log:      opts.Logger.Named("ws"),
		handlers: make(map[string][]entry),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Channel) run() {
	defer close(c.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval

	attempt := 0
	for {
		conn, _, err := websocket.Dial(c.ctx, c.opts.URL, &websocket.DialOptions{HTTPHeader: c.opts.Header})
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			attempt++
			wait := b.NextBackOff()
			c.log.Warn("dial failed", zap.Int("attempt", attempt), zap.Duration("retry_in", wait), zap.Error(err))
			if !c.sleep(wait) {
				return
			}
			continue
		}

		attempt = 0
		b.Reset()
		c.setConn(conn)
		c.dispatch(EventConnect, nil)

		err = c.readLoop(conn)

		c.setConn(nil)
		_ = conn.CloseNow()
		c.dispatch(EventDisconnect, nil)
		if c.ctx.Err() != nil {
			return
		}
		wait := b.NextBackOff()
		c.log.Warn("connection lost", zap.Duration("retry_in", wait), zap.Error(err))
		if !c.sleep(wait) {
			return
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return err
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			c.log.Warn("dropping malformed frame", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}
		c.dispatch(env.Type, env.Payload)
	}
}

func (c *Channel) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// dispatch runs on the read goroutine, so handlers see server order.
func (c *Channel) dispatch(event string, payload json.RawMessage) {
	c.mu.Lock()
	hs := append([]entry(nil), c.handlers[event]...)
	c.mu.Unlock()
	for _, e := range hs {
		e.h(payload)
	}
}

func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Subscribe registers h for event until the returned Subscription is
// cancelled.
func (c *Channel) Subscribe(event string, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.handlers[event] = append(c.handlers[event], entry{id: c.nextID, h: h})
	return &Subscription{c: c, event: event, id: c.nextID}
}

func (c *Channel) unsubscribe(event string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hs := c.handlers[event]
	for i, e := range hs {
		if e.id == id {
			c.handlers[event] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(c.handlers[event]) == 0 {
		delete(c.handlers, event)
	}
}

func (c *Channel) handlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, hs := range c.handlers {
		n += len(hs)
	}
	return n
}

// Emit writes one envelope. It fails fast with ErrNotConnected while the
// socket is down; the caller's recovery is the resync after reconnect.
func (c *Channel) Emit(ctx context.Context, event string, payload any) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	frame, err := json.Marshal(types.Envelope{Type: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// Close stops reconnecting and drops the socket. Safe to call repeatedly.
// Cancelling the read context is enough: the library closes the connection
// when a pending Read is cancelled.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

func (c *Channel) Done() <-chan struct{} { return c.done }
