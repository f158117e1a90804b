package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the server configuration sourced from environment variables.
type Env struct {
	Addr                string `env:"DRIFTGUARD_ADDR" envDefault:":8080"`
	TickRate            int    `env:"DRIFTGUARD_TICK_RATE" envDefault:"20"`
	InventorySize       int    `env:"DRIFTGUARD_INVENTORY_SIZE" envDefault:"46"`
	TrackableEnd        int    `env:"DRIFTGUARD_TRACKABLE_END" envDefault:"44"`
	VerificationHorizon uint64 `env:"DRIFTGUARD_VERIFICATION_HORIZON" envDefault:"5"`
	LogSeverity         int    `env:"DRIFTGUARD_LOG_SEVERITY" envDefault:"1"`
	LogJSONPath         string `env:"DRIFTGUARD_LOG_JSON_PATH"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickRate <= 0 {
		return Env{}, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRate)
	}
	if cfg.InventorySize <= 0 {
		return Env{}, fmt.Errorf("inventory size must be positive, got %d", cfg.InventorySize)
	}
	if cfg.TrackableEnd >= cfg.InventorySize {
		return Env{}, fmt.Errorf("trackable end %d out of range for inventory size %d", cfg.TrackableEnd, cfg.InventorySize)
	}
	return cfg, nil
}
