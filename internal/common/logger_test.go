package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	config := DefaultConfig()
	config.Logging.Level = "debug"
	config.Logging.Output = []string{"stdout"}

	logger := InitLogger(config)
	require.NotNil(t, logger)

	// Writer construction succeeded; events must be emittable
	logger.Debug().Str("component", "test").Msg("Logger initialized")
	logger.Info().Int("count", 1).Msg("Logger event")
}

func TestGetLoggerReturnsConfiguredInstance(t *testing.T) {
	config := DefaultConfig()
	logger := InitLogger(config)

	assert.Equal(t, logger, GetLogger())
}
