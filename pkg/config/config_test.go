package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	LogLevel string        `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Interval time.Duration `env:"TEST_CFG_INTERVAL" envDefault:"1h"`
	Origins  []string      `env:"TEST_CFG_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_INTERVAL", "15m")
	t.Setenv("TEST_CFG_ORIGINS", "https://a.example,https://b.example")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_SECRET,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type validatedConfig struct {
	Secret string `env:"TEST_CFG_VALIDATED_SECRET"`
}

var errShortSecret = errors.New("secret too short")

func (c *validatedConfig) Validate() error {
	if len(c.Secret) < 8 {
		return errShortSecret
	}
	return nil
}

func TestLoad_RunsValidate(t *testing.T) {
	t.Setenv("TEST_CFG_VALIDATED_SECRET", "short")

	var cfg validatedConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, errShortSecret)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_ValidatePasses(t *testing.T) {
	t.Setenv("TEST_CFG_VALIDATED_SECRET", "long-enough-secret")

	var cfg validatedConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, "long-enough-secret", cfg.Secret)
}
