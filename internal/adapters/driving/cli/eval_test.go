package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/services"
)

func TestEvalCmd_DefaultCases(t *testing.T) {
	mocks, cleanup := setupTestServices(t)
	defer cleanup()
	for _, name := range domain.ToolNames() {
		mocks.eval.pass[name] = true
	}

	out, _, err := runCommand(t, "", "eval")

	require.NoError(t, err)
	cases := services.DefaultEvalCases()
	assert.Len(t, mocks.eval.ran, len(cases))
	assert.Contains(t, out, "[PASS]")
	assert.NotContains(t, out, "[FAIL]")
}

func TestEvalCmd_Failure(t *testing.T) {
	mocks, cleanup := setupTestServices(t)
	defer cleanup()
	mocks.eval.pass[domain.ToolSearchKnowledgeBase] = true

	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: search
  prompt: What do people think about generics?
  expect_tool: search_knowledge_base
- name: seed
  prompt: Add r/rust to the knowledge base
  expect_tool: seed_subreddit
`), 0600))

	out, _, err := runCommand(t, "", "eval", "--cases", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 eval cases failed")
	assert.Contains(t, out, "[PASS] search: called search_knowledge_base")
	assert.Contains(t, out, "[FAIL] seed: expected seed_subreddit, called [fetch_subreddit_posts]")
	assert.Contains(t, out, "1/2 passed")
}

func TestEvalCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	_, _, err := runCommand(t, "", "eval", "--cases", filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading cases")
}
