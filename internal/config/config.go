package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration, loaded from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpires time.Duration `env:"JWT_EXPIRES" envDefault:"60m"`

	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE" envDefault:"+91"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioVerifySID  string `env:"TWILIO_VERIFY_SID"`

	// OTPDevMode swaps the Twilio gateway for a static provider that accepts
	// one fixed code. Twilio credentials are only optional in this mode.
	OTPDevMode bool `env:"OTP_DEV_MODE"`
}

// Load reads configuration from environment variables and fails fast on
// missing critical settings rather than falling back to local defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.JWTExpires <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES must be positive, got %s", cfg.JWTExpires)
	}

	if !cfg.OTPDevMode {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioVerifySID == "" {
			return nil, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_VERIFY_SID are required unless OTP_DEV_MODE=true")
		}
	}

	return cfg, nil
}
