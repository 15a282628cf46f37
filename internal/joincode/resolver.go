package joincode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNotFound = errors.New("join code not found")
var ErrEmptyCode = errors.New("join code is empty")

// Session is what the REST API knows about a join code.
type Session struct {
	SessionKey string `json:"sessionKey"`
	BossID     string `json:"bossId"`
	Status     string `json:"status"`
}

type Resolver struct {
	base   string
	client *http.Client
}

func NewResolver(baseURL string, client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Resolver{base: strings.TrimRight(baseURL, "/"), client: client}
}

// Resolve looks up a human-entered code. Codes are case-insensitive.
func (r *Resolver) Resolve(ctx context.Context, code string) (Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Session{}, ErrEmptyCode
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/boss-sessions/join/"+url.PathEscape(code), nil)
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("resolve %s: %w", code, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	case resp.StatusCode != http.StatusOK:
		return Session{}, fmt.Errorf("resolve %s: unexpected status %d", code, resp.StatusCode)
	}

	var s Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Session{}, fmt.Errorf("resolve %s: decode: %w", code, err)
	}
	if s.SessionKey == "" {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return s, nil
}
