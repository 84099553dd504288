package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

const (
	CodeStorePostgres = "postgres"
	CodeStoreRedis    = "redis"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	JWTSecret         string `env:"JWT_SECRET,required"`
	JWTTTLMinutes     int    `env:"JWT_TTL_MINUTES" envDefault:"120"`
	CodeStore         string `env:"CODE_STORE" envDefault:"postgres"`
	SMTPHost          string `env:"SMTP_HOST"`
	SMTPPort          int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser          string `env:"SMTP_USER"`
	SMTPPass          string `env:"SMTP_PASS"`
	SMTPFrom          string `env:"SMTP_FROM"`
	SMTPFromName      string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS        bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	MigrationsEnabled bool   `env:"MIGRATIONS_ENABLED" envDefault:"true"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.CodeStore = strings.ToLower(strings.TrimSpace(cfg.CodeStore))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	switch c.CodeStore {
	case CodeStorePostgres:
	case CodeStoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("config: REDIS_ADDR is required when CODE_STORE=redis")
		}
	default:
		return fmt.Errorf("config: unknown CODE_STORE %q", c.CodeStore)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("config: JWT_SECRET must not be blank")
	}
	if c.JWTTTLMinutes <= 0 {
		return fmt.Errorf("config: JWT_TTL_MINUTES must be positive")
	}
	return nil
}
