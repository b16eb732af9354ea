package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionReport_Err(t *testing.T) {
	report := &IngestionReport{Attempted: 5, Succeeded: 5}
	assert.NoError(t, report.Err())

	report.Succeeded = 4
	report.AddFailure("t3", fmt.Errorf("summarise: %w", ErrUpstream))

	err := report.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIngestionPartialFailure))
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, "t3", report.Failures[0].ThreadID)
	assert.Equal(t, "UpstreamError", report.Failures[0].Kind)
}

func TestToolName_Valid_Basic(t *testing.T) {
	for _, n := range ToolNames() {
		assert.True(t, n.Valid(), n)
	}
	assert.False(t, ToolName("delete_everything").Valid())
}
