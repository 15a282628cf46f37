package types

// Snapshot is the full session state sent on `reconnected` and
// `battle-already-started`. It always overwrites whatever the client holds.
//
//	status: "queued" | "cooldown" | "in-battle" | "defeated"
//	playerHearts: 0..3
//	revivalCode / revivalSecondsLeft: only while knocked out
type Snapshot struct {
	SessionID          string `json:"sessionId"`
	BossID             string `json:"bossId,omitempty"`
	Status             string `json:"status"`
	BossCurrentHP      int    `json:"bossCurrentHp"`
	BossMaxHP          int    `json:"bossMaxHp"`
	PlayerID           string `json:"playerId,omitempty"`
	PlayerHearts       int    `json:"playerHearts"`
	IsKnockedOut       bool   `json:"isKnockedOut,omitempty"`
	IsDead             bool   `json:"isDead,omitempty"`
	RevivalCode        string `json:"revivalCode,omitempty"`
	RevivalSecondsLeft int    `json:"revivalSecondsLeft,omitempty"`
	TeamID             string `json:"teamId,omitempty"`
	TeamName           string `json:"teamName,omitempty"`
}
