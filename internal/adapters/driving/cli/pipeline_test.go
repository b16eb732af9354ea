package cli

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
)

func TestPipelineCmds_Defaults(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		flag string
		want string
	}{
		{"extract output", extractCmd, "output", "threads"},
		{"summarise input", summariseCmd, "input", "threads"},
		{"summarise output", summariseCmd, "output", "summaries"},
		{"publish input", publishCmd, "input", "summaries"},
		{"publish output", publishCmd, "output", "site"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := tt.cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.want, flag.DefValue)
		})
	}

	assert.Contains(t, summariseCmd.Aliases, "summarize")
}

func TestExtractCmd(t *testing.T) {
	mocks, cleanup := setupTestServices(t)
	defer cleanup()
	mocks.pipeline.extracted = 3

	out, _, err := runCommand(t, "", "extract", "-s", "golang", "-o", "out")

	require.NoError(t, err)
	assert.Equal(t, []string{"extract golang out"}, mocks.pipeline.calls)
	assert.Contains(t, out, "Archived 3 threads to out")
}

func TestExtractCmd_PartialFailure(t *testing.T) {
	mocks, cleanup := setupTestServices(t)
	defer cleanup()
	mocks.pipeline.extracted = 1
	mocks.pipeline.err = errors.New("disk full")

	out, _, err := runCommand(t, "", "extract", "-s", "golang")

	require.Error(t, err)
	assert.Contains(t, out, "Archived 1 threads before failing.")
}

func TestSummariseCmd(t *testing.T) {
	mocks, cleanup := setupTestServices(t)
	defer cleanup()
	mocks.pipeline.digest = &domain.Digest{Summaries: make([]domain.ThreadSummary, 2)}

	out, _, err := runCommand(t, "", "summarize")

	require.NoError(t, err)
	assert.Equal(t, []string{"summarise threads summaries"}, mocks.pipeline.calls)
	assert.Contains(t, out, "Summarised 2 threads to summaries")
}

func TestPublishCmd(t *testing.T) {
	mocks, cleanup := setupTestServices(t)
	defer cleanup()
	mocks.pipeline.files = []string{"site/index.html", "site/feed.xml"}

	out, _, err := runCommand(t, "", "publish", "-i", "in", "-o", "site")

	require.NoError(t, err)
	assert.Equal(t, []string{"publish in site"}, mocks.pipeline.calls)
	assert.Contains(t, out, "Wrote site/index.html")
	assert.Contains(t, out, "Wrote site/feed.xml")
}
