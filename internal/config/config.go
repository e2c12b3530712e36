package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// ErrInvalid marks configuration that parses but cannot run. Startup treats it
// as fatal.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	BaseURL  string     `env:"BASE_URL"`
	// StaticDir, when set, is served as the front end.
	StaticDir string `env:"STATIC_DIR"`

	// StoreDriver is one of sqlite, postgres or memory.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/luckydraw.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	Members        luckydraw.Roster `env:"MEMBERS,required"`
	TotalBoxes     int              `env:"TOTAL_BOXES" envDefault:"18"`
	MaxDraws       int              `env:"MAX_DRAWS" envDefault:"3"`
	RewardPolicy   luckydraw.Policy `env:"REWARD_POLICY" envDefault:"sequence"`
	RewardWeights  luckydraw.Table  `env:"REWARD_WEIGHTS" envDefault:"5000:50,10000:30,20000:14,50000:5,100000:0.9,200000:0.1"`
	RewardSequence []int64          `env:"REWARD_SEQUENCE" envDefault:"20000,10000,50000" envSeparator:","`

	AdminPassword string        `env:"ADMIN_PASSWORD,required"`
	AdminResetPIN string        `env:"ADMIN_RESET_PIN,required"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case "sqlite", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required when STORE_DRIVER=postgres", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalid, c.StoreDriver)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: POLL_INTERVAL must be positive", ErrInvalid)
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

// Rules converts the game settings into domain rules.
func (c Config) Rules() (luckydraw.Rules, error) {
	r := luckydraw.Rules{
		Members:    c.Members,
		TotalBoxes: c.TotalBoxes,
		MaxDraws:   c.MaxDraws,
		Policy:     c.RewardPolicy,
		Weights:    c.RewardWeights,
		Sequence:   c.RewardSequence,
	}
	if err := r.Validate(); err != nil {
		return luckydraw.Rules{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if limit := r.DrawCap(); limit > r.TotalBoxes {
		return luckydraw.Rules{}, fmt.Errorf("%w: draw cap %d exceeds %d boxes", ErrInvalid, limit, r.TotalBoxes)
	}
	return r, nil
}
