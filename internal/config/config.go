package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/freeeve/flagstrike/pkg/ctf"
)

// EnvPrefix prefixes every environment override, e.g. FLAGSTRIKE_ROWS.
const EnvPrefix = "FLAGSTRIKE"

// Config holds application configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Dev      bool   `mapstructure:"dev"`

	DatabaseURL   string `mapstructure:"database_url"`
	RedisURL      string `mapstructure:"redis_url"`
	SpectatorAddr string `mapstructure:"spectator_addr"`

	Rows            int    `mapstructure:"rows"`
	Cols            int    `mapstructure:"cols"`
	UnitsPerTeam    int    `mapstructure:"units_per_team"`
	Seed            int64  `mapstructure:"seed"`
	HumanTeam       string `mapstructure:"human_team"` // "a", "b", or "" for a random side
	FirstTeam       string `mapstructure:"first_team"` // "a", "b", or "" for random
	Opponent        string `mapstructure:"opponent"`
	MaxRounds       int    `mapstructure:"max_rounds"`
	EliminatedBlock bool   `mapstructure:"eliminated_block"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("dev", false)

	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("spectator_addr", "")

	v.SetDefault("rows", 8)
	v.SetDefault("cols", 8)
	v.SetDefault("units_per_team", 4)
	v.SetDefault("seed", 0)
	v.SetDefault("human_team", "")
	v.SetDefault("first_team", "")
	v.SetDefault("opponent", "greedy")
	v.SetDefault("max_rounds", 200)
	v.SetDefault("eliminated_block", false)
}

// Load reads defaults, then the optional config file at path (any format
// viper understands), then FLAGSTRIKE_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the board parameters and team fields.
func (c *Config) Validate() error {
	if err := c.Setup().Validate(); err != nil {
		return err
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be positive, got %d", c.MaxRounds)
	}
	for key, val := range map[string]string{"human_team": c.HumanTeam, "first_team": c.FirstTeam} {
		if val == "" {
			continue
		}
		if _, err := ctf.ParseTeam(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// Setup returns the board parameters for ctf.NewGame.
func (c *Config) Setup() ctf.Setup {
	return ctf.Setup{Rows: c.Rows, Cols: c.Cols, UnitsPerTeam: c.UnitsPerTeam}
}

// Rules returns the engine rule switches.
func (c *Config) Rules() ctf.Rules {
	return ctf.Rules{EliminatedBlock: c.EliminatedBlock}
}

// PickTeam resolves a configured team, rolling one when it is empty.
func PickTeam(configured string, rng ctf.RandSource) ctf.Team {
	if t, err := ctf.ParseTeam(configured); err == nil {
		return t
	}
	return ctf.RandomTeam(rng)
}
