package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

type testServer struct {
	*httptest.Server
	conns chan *websocket.Conn
	stop  chan struct{}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{conns: make(chan *websocket.Conn, 4), stop: make(chan struct{})}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- conn
		<-ts.stop
	}))
	t.Cleanup(func() {
		close(ts.stop)
		ts.Server.Close()
	})
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-ts.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for client connection")
		return nil
	}
}

func recv[T any](t *testing.T, ch <-chan T, within time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out after %v", within)
		var zero T
		return zero
	}
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(context.Background(), conn, types.Envelope{Type: event, Payload: raw}))
}

func dial(t *testing.T, url string) *Channel {
	t.Helper()
	c := Dial(context.Background(), Options{URL: url, InitialInterval: 20 * time.Millisecond, MaxInterval: 50 * time.Millisecond})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestChannel_DeliversServerEventsInOrder(t *testing.T) {
	ts := newTestServer(t)
	c := dial(t, ts.wsURL())

	got := make(chan string, 4)
	c.Subscribe(types.EvtQuestionReceived, func(p json.RawMessage) {
		var q types.QuestionReceived
		if err := json.Unmarshal(p, &q); err == nil {
			got <- q.ID
		}
	})

	server := ts.accept(t)
	sendEnvelope(t, server, types.EvtQuestionReceived, types.QuestionReceived{ID: "q1"})
	sendEnvelope(t, server, types.EvtQuestionReceived, types.QuestionReceived{ID: "q2"})

	assert.Equal(t, "q1", recv(t, got, time.Second))
	assert.Equal(t, "q2", recv(t, got, time.Second))
}

func TestChannel_EmitReachesServer(t *testing.T) {
	ts := newTestServer(t)
	c := dial(t, ts.wsURL())

	connected := make(chan struct{}, 1)
	c.Subscribe(EventConnect, func(json.RawMessage) { connected <- struct{}{} })
	server := ts.accept(t)
	recv(t, connected, time.Second)

	require.NoError(t, c.Emit(context.Background(), types.CmdQuestionRequest, types.QuestionRequest{SessionKey: "sk-1"}))

	var env types.Envelope
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Read(ctx, server, &env))
	assert.Equal(t, types.CmdQuestionRequest, env.Type)

	var req types.QuestionRequest
	require.NoError(t, json.Unmarshal(env.Payload, &req))
	assert.Equal(t, "sk-1", req.SessionKey)
}

func TestChannel_MalformedFrameIsDropped(t *testing.T) {
	ts := newTestServer(t)
	c := dial(t, ts.wsURL())

	got := make(chan struct{}, 1)
	lost := make(chan struct{}, 1)
	c.Subscribe(types.EvtBossDefeated, func(json.RawMessage) { got <- struct{}{} })
	c.Subscribe(EventDisconnect, func(json.RawMessage) { lost <- struct{}{} })

	server := ts.accept(t)
	require.NoError(t, server.Write(context.Background(), websocket.MessageText, []byte("{not json")))
	sendEnvelope(t, server, types.EvtBossDefeated, types.BossDefeated{SessionID: "s1"})

	recv(t, got, time.Second)
	select {
	case <-lost:
		t.Fatalf("malformed frame dropped the connection")
	default:
	}
}

func TestChannel_ReconnectsAfterDrop(t *testing.T) {
	ts := newTestServer(t)
	c := dial(t, ts.wsURL())

	notices := make(chan string, 8)
	c.Subscribe(EventConnect, func(json.RawMessage) { notices <- EventConnect })
	c.Subscribe(EventDisconnect, func(json.RawMessage) { notices <- EventDisconnect })

	first := ts.accept(t)
	assert.Equal(t, EventConnect, recv(t, notices, time.Second))

	_ = first.CloseNow()
	assert.Equal(t, EventDisconnect, recv(t, notices, time.Second))

	second := ts.accept(t)
	assert.Equal(t, EventConnect, recv(t, notices, 2*time.Second))
	assert.True(t, c.Connected())

	got := make(chan struct{}, 1)
	c.Subscribe(types.EvtBattleStatusUpdate, func(json.RawMessage) { got <- struct{}{} })
	sendEnvelope(t, second, types.EvtBattleStatusUpdate, types.BattleStatus{Status: "in-battle"})
	recv(t, got, time.Second)
}

func TestChannel_EmitWhileOffline(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ts.Close()

	c := Dial(context.Background(), Options{URL: url, InitialInterval: 10 * time.Millisecond})
	err := c.Emit(context.Background(), types.CmdLeaveBoss, types.LeaveBoss{SessionKey: "sk-1"})
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")
	assert.ErrorIs(t, c.Emit(context.Background(), types.CmdLeaveBoss, nil), ErrClosed)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatalf("connect loop still running after Close")
	}
}

func TestScope_CloseReleasesEveryHandlerOnce(t *testing.T) {
	ts := newTestServer(t)
	c := dial(t, ts.wsURL())

	calls := make(chan string, 4)
	scope := NewScope(c)
	scope.On(types.EvtPlayerDied, func(json.RawMessage) { calls <- "scoped" })
	scope.On(types.EvtTeammateDied, func(json.RawMessage) { calls <- "scoped" })
	c.Subscribe(types.EvtPlayerDied, func(json.RawMessage) { calls <- "outside" })
	require.Equal(t, 3, c.handlerCount())

	scope.Close()
	scope.Close()
	scope.On(types.EvtPlayerDied, func(json.RawMessage) { calls <- "late" })
	assert.Equal(t, 1, c.handlerCount())

	server := ts.accept(t)
	sendEnvelope(t, server, types.EvtPlayerDied, types.PlayerDied{})
	assert.Equal(t, "outside", recv(t, calls, time.Second))
	select {
	case v := <-calls:
		t.Fatalf("handler %q ran after scope closed", v)
	case <-time.After(50 * time.Millisecond):
	}
}
