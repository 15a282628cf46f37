package joincode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/boss-sessions/join/{code}", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "code") {
		case "ABC123":
			_ = json.NewEncoder(w).Encode(Session{SessionKey: "sk-1", BossID: "boss-7", Status: "in-battle"})
		case "BROKEN":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "EMPTY1":
			_ = json.NewEncoder(w).Encode(Session{})
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve(t *testing.T) {
	srv := newAPI(t)
	res := NewResolver(srv.URL+"/", nil)

	cases := []struct {
		name    string
		code    string
		wantKey string
		wantErr error
	}{
		{name: "known code, any case", code: " abc123 ", wantKey: "sk-1"},
		{name: "unknown code", code: "ZZZZZZ", wantErr: ErrNotFound},
		{name: "no session key", code: "EMPTY1", wantErr: ErrNotFound},
		{name: "blank", code: "  ", wantErr: ErrEmptyCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := res.Resolve(context.Background(), tc.code)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantKey, s.SessionKey)
			assert.Equal(t, "boss-7", s.BossID)
		})
	}
}

func TestResolve_ServerError(t *testing.T) {
	srv := newAPI(t)
	_, err := NewResolver(srv.URL, nil).Resolve(context.Background(), "BROKEN")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
