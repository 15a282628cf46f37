package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Identity records which player id this user had in a session, so a later
// mount can ask to reconnect instead of joining fresh.
type Identity struct {
	SessionKey string    `json:"sessionKey"`
	PlayerID   string    `json:"playerId"`
	SavedAt    time.Time `json:"savedAt"`
}

type Identities struct {
	store Store
	ttl   time.Duration
}

func NewIdentities(store Store, ttl time.Duration) *Identities {
	return &Identities{store: store, ttl: ttl}
}

func identityKey(sessionKey, userID string) string {
	return "identity:" + sessionKey + ":" + userID
}

func (i *Identities) Save(ctx context.Context, userID string, id Identity) error {
	if id.SavedAt.IsZero() {
		id.SavedAt = time.Now()
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := i.store.Put(ctx, identityKey(id.SessionKey, userID), string(data), i.ttl); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// Load returns ErrNotFound when nothing unexpired is stored.
func (i *Identities) Load(ctx context.Context, sessionKey, userID string) (Identity, error) {
	raw, err := i.store.Get(ctx, identityKey(sessionKey, userID))
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return id, nil
}

func (i *Identities) Forget(ctx context.Context, sessionKey, userID string) error {
	return i.store.Delete(ctx, identityKey(sessionKey, userID))
}
