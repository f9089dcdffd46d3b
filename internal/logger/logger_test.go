package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"accounting-core/internal/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.log")
	err := logger.Setup(logger.LogConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Setup(logger.DefaultConfig()) })

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log := logger.WithComponent("journal")
	log.Info().Int("entry_id", 7).Msg("journal entry posted")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"journal"`)
	assert.Contains(t, string(data), `"entry_id":7`)
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	err := logger.Setup(logger.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
