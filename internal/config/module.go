package config

import (
	"time"

	"go.uber.org/fx"
)

// Module exposes configuration and the business time zone to fx graphs.
var Module = fx.Provide(Load, location)

func location(cfg *Config) *time.Location {
	if cfg.Location == nil {
		return time.UTC
	}
	return cfg.Location
}
