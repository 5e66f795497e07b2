// Package config loads per-binary settings from the environment and holds
// the fatal-exit helper shared by the cmd entry points.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables declared via `env` struct
// tags. Each binary defines its own config struct and parses it once at
// startup.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
