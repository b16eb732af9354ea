package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
)

func TestServeCmd_Flags(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)

	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}

func TestServeCmd_NoCredentials(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()
	agentService = nil

	_, _, err := runCommand(t, "", "serve")

	assert.ErrorIs(t, err, domain.ErrConfig)
}
