package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpro/learnpro/pkg/config"
)

type checkoutConfig struct {
	SuccessURL string `env:"LP_TEST_SUCCESS_URL" envDefault:"http://localhost:5173/checkout/success"`
	MaxRetries int    `env:"LP_TEST_MAX_RETRIES" envDefault:"3"`
	Sandbox    bool   `env:"LP_TEST_SANDBOX" envDefault:"true"`
}

type overriddenConfig struct {
	Provider string `env:"LP_TEST_PROVIDER" envDefault:"paddle"`
}

type requiredConfig struct {
	Secret string `env:"LP_TEST_REQUIRED_SECRET,required"`
}

type cachedConfig struct {
	Value string `env:"LP_TEST_CACHED" envDefault:"first"`
}

type dotenvConfig struct {
	Value string `env:"LP_TEST_DOTENV_VALUE"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg checkoutConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "http://localhost:5173/checkout/success", cfg.SuccessURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.True(t, cfg.Sandbox)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("LP_TEST_PROVIDER", "paypal")

	var cfg overriddenConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "paypal", cfg.Provider)
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParsingConfig)

	assert.Panics(t, func() { config.MustLoad(&requiredConfig{}) })
}

func TestLoad_CachedPerType(t *testing.T) {
	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("LP_TEST_CACHED", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)

	config.Reset()

	var third cachedConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *checkoutConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LP_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LP_TEST_DOTENV_VALUE") })

	config.LoadEnv(path, filepath.Join(t.TempDir(), "missing.env"))

	var cfg dotenvConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from-file", cfg.Value)
}
