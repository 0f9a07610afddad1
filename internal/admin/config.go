package admin

import (
	"os"
	"strings"
	"time"
)

const (
	defaultIssuer   = "ai-readiness-assessment"
	defaultAudience = "ai-readiness-admin"
	defaultTokenTTL = 24 * time.Hour
)

// Config holds the admin credentials and token settings.
type Config struct {
	Password     string
	PasswordHash string
	JWTSecret    string
	Issuer       string
	Audience     string
	TokenTTL     time.Duration
}

// ConfigFromEnv reads admin config from environment variables.
func ConfigFromEnv() Config {
	cfg := Config{
		Password:     os.Getenv("ADMIN_PASSWORD"),
		PasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
		JWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
		Issuer:       strings.TrimSpace(os.Getenv("ADMIN_JWT_ISSUER")),
		Audience:     strings.TrimSpace(os.Getenv("ADMIN_JWT_AUDIENCE")),
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Issuer == "" {
		c.Issuer = defaultIssuer
	}
	if c.Audience == "" {
		c.Audience = defaultAudience
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	return c
}

// Configured reports whether a password and a signing secret are present.
func (c Config) Configured() bool {
	return (c.Password != "" || c.PasswordHash != "") && c.JWTSecret != ""
}
