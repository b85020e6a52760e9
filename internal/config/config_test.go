package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFlagOverridesOverDefaults(t *testing.T) {
	cfg, err := Load([]string{
		"-server-port=9999",
		"-solana-program-id=Prog111",
		"-solana-ws-url=wss://example.invalid",
		"-database-store-path=/tmp/spinpet.db",
	})
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.ServerPort)
	assert.Equal(t, "Prog111", cfg.SolanaProgramID)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Config{LogLevel: "verbose", DatabaseStorePath: "x", ServerPort: 80}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRequiresProgramIDWhenListenerEnabled(t *testing.T) {
	cfg := Config{
		LogLevel:                  "info",
		DatabaseStorePath:         "x",
		ServerPort:                80,
		SolanaEnableEventListener: true,
		SolanaWSURL:               "wss://x",
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidatePassesWithListenerDisabled(t *testing.T) {
	cfg := Config{LogLevel: "info", DatabaseStorePath: "x", ServerPort: 80}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresClickHouseDSNWhenMaterializerEnabled(t *testing.T) {
	cfg := Config{
		LogLevel:                     "info",
		DatabaseStorePath:            "x",
		ServerPort:                   80,
		MaterializeClickHouseEnabled: true,
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresPostgresDSNWhenCheckpointStoreEnabled(t *testing.T) {
	cfg := Config{
		LogLevel:                   "info",
		DatabaseStorePath:          "x",
		ServerPort:                 80,
		MaterializePostgresEnabled: true,
	}
	assert.Error(t, cfg.Validate())
}

func TestSplitNonEmptyTrimsAndDropsBlanks(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitNonEmpty(" a, b ,"))
	assert.Nil(t, splitNonEmpty(""))
}
