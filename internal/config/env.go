package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment overrides relman honours.
type Env struct {
	Package       string `env:"RELMAN_PACKAGE"`
	Repository    string `env:"RELMAN_REPOSITORY"`
	UploadRetries int    `env:"RELMAN_UPLOAD_RETRIES" envDefault:"-1"`
	LogLevel      string `env:"RELMAN_LOG_LEVEL" envDefault:"info"`
	OTelEndpoint  string `env:"RELMAN_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses the relman environment overrides.
func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}
