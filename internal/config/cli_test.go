package config

import (
	"path/filepath"
	"testing"

	"github.com/koding/multiconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliConfigDefaults(t *testing.T) {
	cfg := &CliConfig{}
	require.NoError(t, (&multiconfig.TagLoader{}).Load(cfg))

	assert.Equal(t, "/etc/solard.yaml", cfg.SettingsFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gpiochip0", cfg.GPIOChip)
	assert.Equal(t, 17, cfg.PinPump1)
	assert.Equal(t, 23, cfg.PinBattery)
	assert.Empty(t, cfg.Broker)
	assert.Len(t, cfg.SensorPaths(), 4)
}

func TestLoadCredentialsFromFile(t *testing.T) {
	t.Setenv(EnvMQTTUsername, "")
	t.Setenv(EnvMQTTPassword, "")
	path := writeFile(t, "solard.env", "SOLARD_MQTT_USERNAME=solar\nSOLARD_MQTT_PASSWORD=s3cret\n")

	c, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "solar", Password: "s3cret"}, c)
}

func TestLoadCredentialsEnvWins(t *testing.T) {
	t.Setenv(EnvMQTTUsername, "override")
	t.Setenv(EnvMQTTPassword, "")
	path := writeFile(t, "solard.env", "SOLARD_MQTT_USERNAME=solar\nSOLARD_MQTT_PASSWORD=s3cret\n")

	c, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "override", c.Username)
	assert.Equal(t, "s3cret", c.Password)
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	t.Setenv(EnvMQTTUsername, "")
	t.Setenv(EnvMQTTPassword, "")

	c, err := LoadCredentials(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, Credentials{}, c)
}
