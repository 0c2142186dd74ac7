package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seoscope/pkg/config"
)

type providerConfig struct {
	URL      string        `env:"TEST_PROVIDER_URL" envDefault:"https://api.example.com"`
	Password string        `env:"TEST_PROVIDER_PASSWORD"`
	Timeout  time.Duration `env:"TEST_PROVIDER_TIMEOUT" envDefault:"30s"`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("parses defaults and env values", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_PROVIDER_PASSWORD", "c2VjcmV0")

		var cfg providerConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "https://api.example.com", cfg.URL)
		assert.Equal(t, "c2VjcmV0", cfg.Password)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("serves cached value on subsequent calls", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_PROVIDER_URL", "https://first.example.com")

		var first providerConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("TEST_PROVIDER_URL", "https://second.example.com")
		var second providerConfig
		require.NoError(t, config.Load(&second))

		assert.Equal(t, "https://first.example.com", second.URL)
	})

	t.Run("missing required variable", func(t *testing.T) {
		config.Reset()

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *providerConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestMustLoadPanics(t *testing.T) {
	config.Reset()

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
