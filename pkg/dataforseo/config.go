package dataforseo

import "time"

// Config holds provider credentials. Password is the pre-encoded
// base64(login:password) pair sent verbatim after "Basic ".
type Config struct {
	URL      string        `env:"DATAFORSEO_URL" envDefault:"https://api.dataforseo.com"`
	Password string        `env:"DATAFORSEO_PASSWORD"`
	Timeout  time.Duration `env:"DATAFORSEO_TIMEOUT" envDefault:"60s"`
}

func (c Config) complete() bool {
	return c.URL != "" && c.Password != ""
}
