package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/boss-battle-client/internal/engine"
)

const Prefix = "BATTLE_"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	ServerURL  string `env:"SERVER_URL" envDefault:"ws://localhost:8080/battle"`
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	JoinCode   string `env:"JOIN_CODE"`
	PlayerID   string `env:"PLAYER_ID"`
	PlayerName string `env:"PLAYER_NAME" envDefault:"player"`
	StatusAddr string `env:"STATUS_ADDR" envDefault:":8090"`

	PrefsDSN    string        `env:"PREFS_DSN" envDefault:"battle-prefs.db"`
	RedisAddr   string        `env:"REDIS_ADDR"`
	IdentityTTL time.Duration `env:"IDENTITY_TTL" envDefault:"2h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	TickInterval         time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	SettleDelay          time.Duration `env:"SETTLE_DELAY" envDefault:"1500ms"`
	RevivalWindow        time.Duration `env:"REVIVAL_WINDOW" envDefault:"60s"`
	DefeatBannerDelay    time.Duration `env:"DEFEAT_BANNER_DELAY" envDefault:"2s"`
	DefeatCountdown      int           `env:"DEFEAT_COUNTDOWN" envDefault:"5"`
	FlashDuration        time.Duration `env:"FLASH_DURATION" envDefault:"400ms"`
	DamageNumberTTL      time.Duration `env:"DAMAGE_NUMBER_TTL" envDefault:"1200ms"`
	BadgeTTL             time.Duration `env:"BADGE_TTL" envDefault:"5s"`
	ReconnectMaxInterval time.Duration `env:"RECONNECT_MAX_INTERVAL" envDefault:"10s"`
}

// Load reads an optional .env file, then BATTLE_* variables. Variables
// already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JoinCode == "" {
		return fmt.Errorf("%w: %sJOIN_CODE is required", ErrInvalid, Prefix)
	}
	if c.PlayerID == "" {
		return fmt.Errorf("%w: %sPLAYER_ID is required", ErrInvalid, Prefix)
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("%w: %sSERVER_URL must be a ws:// or wss:// url", ErrInvalid, Prefix)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: %sTICK_INTERVAL must be positive", ErrInvalid, Prefix)
	}
	if c.RevivalWindow < c.TickInterval {
		return fmt.Errorf("%w: %sREVIVAL_WINDOW shorter than one tick", ErrInvalid, Prefix)
	}
	if c.DefeatCountdown < 0 {
		return fmt.Errorf("%w: %sDEFEAT_COUNTDOWN must not be negative", ErrInvalid, Prefix)
	}
	return nil
}

// Rules converts the timing keys into engine rules. The revival window is
// counted in ticks.
func (c Config) Rules() engine.Rules {
	r := engine.DefaultRules()
	r.TickInterval = c.TickInterval
	r.SettleDelay = c.SettleDelay
	r.RevivalSeconds = int(c.RevivalWindow / c.TickInterval)
	r.DefeatBannerDelay = c.DefeatBannerDelay
	r.DefeatCountdown = c.DefeatCountdown
	return r
}
