// Package cli implements Forager's cobra command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/oliverbatey/forager/internal/app"
	"github.com/oliverbatey/forager/internal/config"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

var (
	verbose   bool
	configDir string
)

// Services used by commands. Tests assign them directly; otherwise each is
// built from the loaded configuration on first use.
var (
	cfg              *config.Config
	application      *app.App
	searchService    driving.SearchService
	ingestionService driving.IngestionService
	agentService     driving.AgentService
	toolDispatcher   driving.ToolDispatcher
	pipelineService  driving.PipelineService
	evalService      driving.EvalService
	knowledgeStore   driven.KnowledgeStore
	seedHistory      driven.SeedHistory
	configStore      driven.ConfigStore
)

var rootCmd = &cobra.Command{
	Use:   "forager",
	Short: "Reddit knowledge base and research agent",
	Long: `Forager seeds a local knowledge base with summarised Reddit threads
and answers questions about them through a tool-calling agent.

Start by seeding a subreddit, then chat with the agent:
  forager seed -s golang --limit 5
  forager bot`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.forager)")
}

// Execute runs the command tree and releases whatever the command opened.
func Execute() error {
	defer closeApp()
	return rootCmd.Execute()
}

// loadConfig loads configuration once per process.
func loadConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	cfg = c
	return c, nil
}

func loadApp() (*app.App, error) {
	if application != nil {
		return application, nil
	}
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	application = app.New(c)
	return application, nil
}

func closeApp() {
	if application == nil {
		return
	}
	if err := application.Close(); err != nil {
		logger.Warn("closing: %v", err)
	}
	application = nil
}

// resolve returns *slot, building and caching it on first use.
func resolve[T any](slot *T, build func(*app.App) (T, error)) (T, error) {
	if any(*slot) != nil {
		return *slot, nil
	}
	var zero T
	a, err := loadApp()
	if err != nil {
		return zero, err
	}
	v, err := build(a)
	if err != nil {
		return zero, err
	}
	*slot = v
	return v, nil
}

func getSearch() (driving.SearchService, error) {
	return resolve(&searchService, func(a *app.App) (driving.SearchService, error) {
		s, err := a.Search()
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func getIngestion() (driving.IngestionService, error) {
	return resolve(&ingestionService, func(a *app.App) (driving.IngestionService, error) {
		p, err := a.Ingestion()
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

func getAgent() (driving.AgentService, error) {
	return resolve(&agentService, func(a *app.App) (driving.AgentService, error) {
		agent, err := a.Agent()
		if err != nil {
			return nil, err
		}
		return agent, nil
	})
}

func getDispatcher() (driving.ToolDispatcher, error) {
	return resolve(&toolDispatcher, func(a *app.App) (driving.ToolDispatcher, error) {
		d, err := a.Dispatcher()
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

func getEval() (driving.EvalService, error) {
	return resolve(&evalService, func(a *app.App) (driving.EvalService, error) {
		e, err := a.Evaluator()
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

func getStore() (driven.KnowledgeStore, error) {
	return resolve(&knowledgeStore, func(a *app.App) (driven.KnowledgeStore, error) {
		return a.Store()
	})
}

func getSeedHistory() (driven.SeedHistory, error) {
	return resolve(&seedHistory, func(a *app.App) (driven.SeedHistory, error) {
		return a.SeedHistory()
	})
}

// getPipeline builds the file pipeline with only the dependencies the step
// needs, so publish works without any credentials.
func getPipeline(needSource, needLLM bool) (driving.PipelineService, error) {
	if pipelineService != nil {
		return pipelineService, nil
	}
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	p, err := a.Pipeline(needSource, needLLM)
	if err != nil {
		return nil, err
	}
	return p, nil
}
