package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/boss-battle-client/internal/battle"
	"github.com/DoyleJ11/boss-battle-client/internal/engine"
	"github.com/DoyleJ11/boss-battle-client/internal/hub"
	"github.com/DoyleJ11/boss-battle-client/internal/metrics"
	"github.com/DoyleJ11/boss-battle-client/pkg/types"
)

const key = "sk-1"

func setup(t *testing.T) (*httptest.Server, *hub.Hub, *battle.Battle) {
	t.Helper()
	ctx := context.Background()
	h := hub.NewHub(ctx)
	b, err := h.Mount(ctx, key, func(ctx context.Context) *battle.Battle {
		return battle.New(ctx, battle.Options{Mount: engine.Mount{SessionKey: key, UserID: "u-1"}})
	})
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(h, metrics.New(), nil))
	t.Cleanup(func() {
		srv.Close()
		_ = h.Shutdown(context.Background())
	})
	return srv, h, b
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func ask(t *testing.T, b *battle.Battle, id string) {
	t.Helper()
	b.Inbox() <- battle.FromServer{Event: engine.QuestionReceived{
		Question: types.QuestionReceived{
			ID:        id,
			Text:      "2+2?",
			Choices:   []types.Choice{{Index: 1, Text: "4"}, {Index: 0, Text: "5"}},
			TimeLimit: 20,
		},
		At: time.Now(),
	}}
	// A state read queues behind the question, so it has been applied.
	_, err := b.State(context.Background())
	require.NoError(t, err)
}

func TestHealthzAndMetrics(t *testing.T) {
	srv, _, _ := setup(t)

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestListAndState(t *testing.T) {
	srv, _, b := setup(t)
	ask(t, b, "q1")

	res, err := http.Get(srv.URL + "/sessions/")
	require.NoError(t, err)
	defer res.Body.Close()
	var list struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	assert.Equal(t, []string{key}, list.Sessions)

	res2, err := http.Get(srv.URL + "/sessions/" + key + "/state")
	require.NoError(t, err)
	defer res2.Body.Close()
	require.Equal(t, http.StatusOK, res2.StatusCode)

	var got StateResponse
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&got))
	assert.Equal(t, "q1", got.State.Round.QuestionID)
	assert.Equal(t, engine.PhaseAnswerable, got.State.Round.Phase)
	assert.Positive(t, got.Version)
}

func TestStateUnknownSession(t *testing.T) {
	srv, _, _ := setup(t)
	res, err := http.Get(srv.URL + "/sessions/nope/state")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSubmitAnswer(t *testing.T) {
	srv, _, b := setup(t)
	url := srv.URL + "/sessions/" + key + "/answer"

	res := post(t, url, `{"questionId":"q1","displayIndex":0}`)
	assert.Equal(t, http.StatusConflict, res.StatusCode, "nothing to answer yet")

	ask(t, b, "q1")

	res = post(t, url, `{"questionId":"q1","displayIndex":7}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res = post(t, url, `{"questionId":"q0","displayIndex":0}`)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res = post(t, url, `{"questionId":"q1","displayIndex":0}`)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	res = post(t, url, `{"questionId":"q1","displayIndex":1}`)
	assert.Equal(t, http.StatusConflict, res.StatusCode, "one answer per round")

	res = post(t, url, `not json`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRevive(t *testing.T) {
	srv, _, _ := setup(t)
	url := srv.URL + "/sessions/" + key + "/revive"

	res := post(t, url, `{"code":"ab"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res = post(t, url, `{"code":" ab12cd "}`)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	res = post(t, url, `{"code":"AB12CD"}`)
	assert.Equal(t, http.StatusConflict, res.StatusCode, "attempt already pending")
}

func TestLeaveUnmounts(t *testing.T) {
	srv, h, b := setup(t)

	res := post(t, srv.URL+"/sessions/"+key+"/leave", ``)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("screen still mounted")
	}
	_, err := h.Get(context.Background(), key)
	assert.ErrorIs(t, err, hub.ErrNotMounted)

	res = post(t, srv.URL+"/sessions/"+key+"/leave", ``)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestWatchStreamsVersions(t *testing.T) {
	srv, _, b := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/"+key+"/watch", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	sc := bufio.NewScanner(res.Body)
	next := func() battle.View {
		for sc.Scan() {
			line := sc.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var v battle.View
				require.NoError(t, json.Unmarshal([]byte(data), &v))
				return v
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return battle.View{}
	}

	first := next()
	ask(t, b, "q1")
	second := next()
	assert.Greater(t, second.Version, first.Version)
	assert.Equal(t, "q1", second.State.Round.QuestionID)
}

func TestWatchClosedScreenReturnsGone(t *testing.T) {
	srv, _, b := setup(t)
	require.NoError(t, b.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/"+key+"/watch", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "handler must not hold the stream open")
	defer res.Body.Close()
	assert.Equal(t, http.StatusGone, res.StatusCode)
}
