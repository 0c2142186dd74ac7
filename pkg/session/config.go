package session

import "time"

// Config holds session cookie and lifetime settings.
type Config struct {
	CookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"seoscope_sid"`
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"72h"`
	MaxLifetime   time.Duration `env:"SESSION_MAX_LIFETIME" envDefault:"720h"`
	TouchInterval time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"5m"`
	SecureCookies bool          `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns the values used when no environment is provided.
func DefaultConfig() Config {
	return Config{
		CookieName:    "seoscope_sid",
		IdleTimeout:   72 * time.Hour,
		MaxLifetime:   30 * 24 * time.Hour,
		TouchInterval: 5 * time.Minute,
	}
}
