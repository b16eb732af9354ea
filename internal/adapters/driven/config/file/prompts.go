package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/logger"
)

// promptExt is the file extension of prompt files.
const promptExt = ".txt"

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Missing or unreadable files fall back to driven.DefaultPrompts.
//
// The store uses lazy initialisation: the directory and default files are
// created on the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.forager/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".forager", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt text for name.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := driven.DefaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		if defaultPrompt, ok := driven.DefaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		if err == nil {
			err = fmt.Errorf("empty prompt file")
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Another goroutine may have loaded it first; keep theirs.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Watch reloads the cache whenever a prompt file changes and sends the
// prompt's name on the returned channel. The channel is closed when ctx
// is done. Sends are dropped if nobody is receiving.
func (s *PromptStore) Watch(ctx context.Context) (<-chan string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return nil, s.initErr
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := watcher.Add(s.promptDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.promptDir, err)
	}

	changes := make(chan string, 8)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name, changed := s.handleEvent(event)
				if !changed {
					continue
				}
				logger.Debug("prompt %q changed on disk, reloading", name)
				select {
				case changes <- name:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("prompt watcher: %v", err)
			}
		}
	}()

	return changes, nil
}

// handleEvent reloads the cache for events touching a prompt file and
// returns the affected prompt name.
func (s *PromptStore) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if filepath.Ext(base) != promptExt || strings.HasPrefix(base, ".") {
		return "", false
	}
	s.Reload()
	return strings.TrimSuffix(base, promptExt), true
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range driven.DefaultPrompts {
		path := filepath.Join(s.promptDir, name+promptExt)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# Forager Prompts

Edit these files to change how Forager talks to the language model.

## Files

- ` + "`" + driven.PromptThreadSummary + promptExt + "`" + ` - instructions for summarising one thread
- ` + "`" + driven.PromptCollectionSummary + promptExt + "`" + ` - instructions for the digest paragraph
- ` + "`" + driven.PromptAgentSystem + promptExt + "`" + ` - system prompt of the chat agent

Prompts are plain text with no placeholders. Delete a file to restore its
default on the next run. ` + "`forager bot`" + ` and ` + "`forager serve`" + ` pick up
edits without a restart.
`
	return os.WriteFile(path, []byte(content), 0600)
}
