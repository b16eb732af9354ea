// Package app wires configuration into adapters and services.
// Components are built on first use so commands only pay for what they touch.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oliverbatey/forager/internal/adapters/driven/ai"
	"github.com/oliverbatey/forager/internal/adapters/driven/archive/jsonfile"
	"github.com/oliverbatey/forager/internal/adapters/driven/config/file"
	"github.com/oliverbatey/forager/internal/adapters/driven/metrics"
	"github.com/oliverbatey/forager/internal/adapters/driven/publish"
	"github.com/oliverbatey/forager/internal/adapters/driven/storage/chromem"
	"github.com/oliverbatey/forager/internal/adapters/driven/storage/memory"
	"github.com/oliverbatey/forager/internal/adapters/driven/storage/sqlite"
	"github.com/oliverbatey/forager/internal/config"
	"github.com/oliverbatey/forager/internal/connectors/reddit"
	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/services"
	"github.com/oliverbatey/forager/internal/logger"
	"github.com/oliverbatey/forager/internal/postprocessors/chunker"
)

// App owns the components built from one Config.
type App struct {
	cfg     *config.Config
	metrics driven.Metrics

	mu         sync.Mutex
	prompts    *file.PromptStore
	store      driven.KnowledgeStore
	history    driven.SeedHistory
	source     driven.ContentSource
	ai         *ai.InitResult
	pipeline   *services.IngestionPipeline
	dispatch   *services.Dispatcher
	agent      *services.Agent
	prometheus *metrics.Prometheus
}

// New creates an App. Nothing is opened until first use.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg, metrics: metrics.Nop{}}
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// EnableMetrics switches the metrics sink to a Prometheus registry. It must
// be called before any service is built.
func (a *App) EnableMetrics() *metrics.Prometheus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.prometheus == nil {
		a.prometheus = metrics.NewPrometheus()
		a.metrics = a.prometheus
	}
	return a.prometheus
}

// Prompts returns the prompt store rooted in the config directory.
func (a *App) Prompts() (*file.PromptStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.promptsLocked()
}

func (a *App) promptsLocked() (*file.PromptStore, error) {
	if a.prompts != nil {
		return a.prompts, nil
	}
	p, err := file.NewPromptStore(a.cfg.PromptDir())
	if err != nil {
		return nil, err
	}
	a.prompts = p
	return p, nil
}

// Store opens the configured knowledge store backend.
func (a *App) Store() (driven.KnowledgeStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeLocked()
}

func (a *App) storeLocked() (driven.KnowledgeStore, error) {
	if a.store != nil {
		return a.store, nil
	}

	dir := a.cfg.Store.DataDir
	logger.Debug("Opening %s store in %s", a.cfg.Store.Backend, dir)
	switch a.cfg.Store.Backend {
	case config.StoreSQLite:
		s, err := sqlite.NewStore(dir)
		if err != nil {
			return nil, err
		}
		a.store, a.history = s, s
	case config.StoreChromem:
		s, err := chromem.NewStore(dir)
		if err != nil {
			return nil, err
		}
		a.store, a.history = s, memory.NewSeedHistory()
	case config.StoreMemory:
		a.store, a.history = memory.NewKnowledgeStore(), memory.NewSeedHistory()
	default:
		return nil, fmt.Errorf("store backend %q: %w", a.cfg.Store.Backend, domain.ErrConfig)
	}
	return a.store, nil
}

// SeedHistory returns where seed runs are recorded. It opens the store.
func (a *App) SeedHistory() (driven.SeedHistory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.storeLocked(); err != nil {
		return nil, err
	}
	return a.history, nil
}

// Source returns the Reddit connector. Credentials are required.
func (a *App) Source() (driven.ContentSource, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sourceLocked()
}

func (a *App) sourceLocked() (driven.ContentSource, error) {
	if a.source != nil {
		return a.source, nil
	}
	if err := a.cfg.RequireReddit(); err != nil {
		return nil, err
	}
	c, err := reddit.New(reddit.Config{
		ClientID:          a.cfg.Reddit.ClientID,
		ClientSecret:      a.cfg.Reddit.ClientSecret,
		UserAgent:         a.cfg.Reddit.UserAgent,
		RequestsPerSecond: a.cfg.Reddit.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}
	a.source = c
	return c, nil
}

func (a *App) aiLocked() (*ai.InitResult, error) {
	if a.ai != nil {
		return a.ai, nil
	}
	if err := a.cfg.RequireAI(); err != nil {
		return nil, err
	}
	r, err := ai.Init(a.cfg.AI)
	if err != nil {
		return nil, err
	}
	a.ai = r
	return r, nil
}

// LLM returns the language model service.
func (a *App) LLM() (driven.LLMService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.aiLocked()
	if err != nil {
		return nil, err
	}
	return r.LLMService, nil
}

func (a *App) summarizerLocked() (*services.Summarizer, error) {
	r, err := a.aiLocked()
	if err != nil {
		return nil, err
	}
	prompts, err := a.promptsLocked()
	if err != nil {
		return nil, err
	}
	return services.NewSummarizer(r.LLMService, prompts), nil
}

// Search returns the semantic search service.
func (a *App) Search() (*services.SearchService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.searchLocked()
}

func (a *App) searchLocked() (*services.SearchService, error) {
	r, err := a.aiLocked()
	if err != nil {
		return nil, err
	}
	store, err := a.storeLocked()
	if err != nil {
		return nil, err
	}
	return services.NewSearchService(services.NewEmbedder(r.EmbeddingService), store), nil
}

// Ingestion returns the seed pipeline.
func (a *App) Ingestion() (*services.IngestionPipeline, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ingestionLocked()
}

func (a *App) ingestionLocked() (*services.IngestionPipeline, error) {
	if a.pipeline != nil {
		return a.pipeline, nil
	}
	source, err := a.sourceLocked()
	if err != nil {
		return nil, err
	}
	summarizer, err := a.summarizerLocked()
	if err != nil {
		return nil, err
	}
	store, err := a.storeLocked()
	if err != nil {
		return nil, err
	}
	proc, err := chunker.New(a.cfg.Chunker.Size, a.cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	p := services.NewIngestionPipeline(source, summarizer, proc, services.NewEmbedder(a.ai.EmbeddingService), store)
	p.SetMetrics(a.metrics)
	p.SetSeedHistory(a.history)
	a.pipeline = p
	return p, nil
}

// Dispatcher returns the tool dispatcher backed by the live components.
func (a *App) Dispatcher() (*services.Dispatcher, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dispatcherLocked()
}

func (a *App) dispatcherLocked() (*services.Dispatcher, error) {
	if a.dispatch != nil {
		return a.dispatch, nil
	}
	search, err := a.searchLocked()
	if err != nil {
		return nil, err
	}
	seeder, err := a.ingestionLocked()
	if err != nil {
		return nil, err
	}
	d, err := services.NewDispatcher(services.NewTools(search, a.source, seeder)...)
	if err != nil {
		return nil, err
	}
	d.SetMetrics(a.metrics)
	a.dispatch = d
	return d, nil
}

// Agent returns the chat agent.
func (a *App) Agent() (*services.Agent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.agent != nil {
		return a.agent, nil
	}
	d, err := a.dispatcherLocked()
	if err != nil {
		return nil, err
	}
	prompts, err := a.promptsLocked()
	if err != nil {
		return nil, err
	}
	agent := services.NewAgent(a.ai.LLMService, d, prompts, a.agentConfig())
	agent.SetMetrics(a.metrics)
	a.agent = agent
	return agent, nil
}

// Evaluator returns the tool-routing evaluator. Only the LLM is required.
func (a *App) Evaluator() (*services.Evaluator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.aiLocked()
	if err != nil {
		return nil, err
	}
	prompts, err := a.promptsLocked()
	if err != nil {
		return nil, err
	}
	return services.NewEvaluator(r.LLMService, prompts, a.agentConfig()), nil
}

// Pipeline returns the file pipeline with whichever dependencies the step
// needs: extract needs the source, summarise the LLM, publish neither.
func (a *App) Pipeline(needSource, needLLM bool) (*services.FilePipeline, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var source driven.ContentSource
	if needSource {
		s, err := a.sourceLocked()
		if err != nil {
			return nil, err
		}
		source = s
	}
	var summarizer *services.Summarizer
	if needLLM {
		s, err := a.summarizerLocked()
		if err != nil {
			return nil, err
		}
		summarizer = s
	}
	return services.NewFilePipeline(source, summarizer, jsonfile.New(), publish.New()), nil
}

func (a *App) agentConfig() services.AgentConfig {
	return services.AgentConfig{
		MaxIterations: a.cfg.Agent.MaxIterations,
		HistoryLimit:  a.cfg.Agent.HistoryLimit,
	}
}

// Close releases every opened component.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.ai != nil {
		a.ai.Close()
		a.ai = nil
	}
	return errors.Join(errs...)
}
