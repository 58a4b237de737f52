package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	DatabaseDSN string `env:"DATABASE_DSN,required"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// LINE Login channel used to verify id_tokens presented at registration.
	LineChannelID string `env:"LINE_CHANNEL_ID,required"`
	LineIssuer    string `env:"LINE_ISSUER" envDefault:"https://access.line.me"`
	LineJWKSURL   string `env:"LINE_JWKS_URL" envDefault:"https://api.line.me/oauth2/v2.1/certs"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL,required"`

	// RegistrationCooldown bounds how often the same external subject may
	// open a new pending registration.
	RegistrationCooldown time.Duration `env:"REGISTRATION_COOLDOWN" envDefault:"10m"`
	// PendingTTL is how long an unresolved registration stays claimable.
	PendingTTL time.Duration `env:"PENDING_TTL" envDefault:"15m"`
	// RefreshLookahead is the margin before token expiry at which a
	// proactive refresh is triggered.
	RefreshLookahead time.Duration `env:"REFRESH_LOOKAHEAD" envDefault:"3m"`

	KeyCacheTTL time.Duration `env:"KEY_CACHE_TTL" envDefault:"1h"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
