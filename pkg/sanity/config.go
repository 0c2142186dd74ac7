package sanity

import "time"

// Config points the client at a Sanity project. With an empty ProjectID the
// blog is disabled.
type Config struct {
	ProjectID  string        `env:"SANITY_PROJECT_ID"`
	Dataset    string        `env:"SANITY_DATASET" envDefault:"production"`
	APIVersion string        `env:"SANITY_API_VERSION" envDefault:"2024-01-01"`
	Token      string        `env:"SANITY_TOKEN"`
	CacheTTL   time.Duration `env:"SANITY_CACHE_TTL" envDefault:"5m"`
	Timeout    time.Duration `env:"SANITY_TIMEOUT" envDefault:"10s"`
	// BaseURL overrides https://{project}.api.sanity.io.
	BaseURL string `env:"SANITY_BASE_URL"`
}

// Enabled reports whether a project is configured.
func (c Config) Enabled() bool { return c.ProjectID != "" }

func (c Config) endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = "https://" + c.ProjectID + ".api.sanity.io"
	}
	return base + "/v" + c.APIVersion + "/data/query/" + c.Dataset
}
