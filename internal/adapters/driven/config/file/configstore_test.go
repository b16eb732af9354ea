package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".forager", "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	_, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[reddit\nclient_id ="), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("reddit.client_id", "abc"))

	val, ok := store.Get("reddit.client_id")
	assert.True(t, ok)
	assert.Equal(t, "abc", val)
	assert.Equal(t, "abc", store.GetString("reddit.client_id"))

	_, ok = store.Get("reddit.client_secret")
	assert.False(t, ok)
	assert.Equal(t, "", store.GetString("reddit.client_secret"))
}

func TestConfigStore_GetString_WrongType(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("chunker.size", int64(1000)))

	assert.Equal(t, "", store.GetString("chunker.size"))
}

func TestConfigStore_WritesTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("reddit.client_id", "abc"))
	require.NoError(t, store.Set("store.backend", "chromem"))
	require.NoError(t, store.Set("chunker.size", int64(1500)))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[reddit]")
	assert.Regexp(t, `client_id = ['"]abc['"]`, content)
	assert.Contains(t, content, "[store]")
	assert.Contains(t, content, "size = 1500")
	assert.NotContains(t, content, "reddit.client_id")
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("store.backend", "memory"))
	require.NoError(t, store.Set("agent.max_iterations", int64(4)))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "memory", reopened.GetString("store.backend"))
	val, ok := reopened.Get("agent.max_iterations")
	require.True(t, ok)
	assert.Equal(t, int64(4), val)
	assert.Equal(t, []string{"agent.max_iterations", "store.backend"}, reopened.Keys())
}

func TestConfigStore_Unset(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("store.backend", "memory"))

	require.NoError(t, store.Unset("store.backend"))
	require.NoError(t, store.Unset("missing.key"))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, reopened.Keys())
}

func TestConfigStore_Set_InvalidKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", ".store", "store."} {
		assert.Error(t, store.Set(key, "x"), key)
	}
}

func TestConfigStore_Set_ConflictRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("store.backend", "sqlite"))

	err = store.Set("store", "oops")

	assert.Error(t, err)
	_, ok := store.Get("store")
	assert.False(t, ok)
	assert.Equal(t, "sqlite", store.GetString("store.backend"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("reddit.client_secret", "shh"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Load_PicksUpExternalEdits(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	content := "[server]\naddr = ':9090'\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))
	require.NoError(t, store.Load())

	assert.Equal(t, ":9090", store.GetString("server.addr"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("server.addr", ":8080")
		}()
		go func() {
			defer wg.Done()
			_ = store.GetString("server.addr")
			_ = store.Keys()
		}()
	}
	wg.Wait()

	assert.Equal(t, ":8080", store.GetString("server.addr"))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"1.5", 1.5},
		{"gpt-4o-mini", "gpt-4o-mini"},
		{":8080", ":8080"},
		{"TRUE", "TRUE"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseValue(tt.raw))
		})
	}
}
