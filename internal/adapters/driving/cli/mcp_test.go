package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
)

func TestMCPCmd_HasServe(t *testing.T) {
	names := make([]string, 0, len(mcpCmd.Commands()))
	for _, c := range mcpCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "serve")
}

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")

	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_NoCredentials(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, _, err := runCommand(t, "", "mcp", "serve")

	assert.ErrorIs(t, err, domain.ErrConfig)
}
