// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaiembed "github.com/oliverbatey/forager/internal/adapters/driven/embedding/openai"
	openaillm "github.com/oliverbatey/forager/internal/adapters/driven/llm/openai"
	"github.com/oliverbatey/forager/internal/config"
	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// DefaultOllamaURL is Ollama's OpenAI-compatible endpoint.
const DefaultOllamaURL = "http://localhost:11434/v1"

// embeddingDimensions lists vector sizes for common embedding models.
var embeddingDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// InitResult contains the AI services built from configuration.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates both services. Connectivity is not checked; see Validate.
func Init(cfg config.AIConfig) (*InitResult, error) {
	llm, err := CreateLLMService(cfg)
	if err != nil {
		return nil, err
	}
	embed, err := CreateEmbeddingService(cfg)
	if err != nil {
		llm.Close()
		return nil, err
	}
	return &InitResult{EmbeddingService: embed, LLMService: llm}, nil
}

// Validate pings both services and joins any failures.
func (r *InitResult) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var errs []error
	if r.LLMService != nil {
		if err := r.LLMService.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("llm %s unreachable: %w", r.LLMService.ModelName(), err))
		}
	}
	if r.EmbeddingService != nil {
		if err := r.EmbeddingService.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("embedding %s unreachable: %w", r.EmbeddingService.ModelName(), err))
		}
	}
	return errors.Join(errs...)
}

// CreateEmbeddingService creates the embedding service for the configured provider.
func CreateEmbeddingService(cfg config.AIConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, config.ProviderOllama:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    baseURL(cfg),
			Model:      cfg.EmbeddingModel,
			Timeout:    cfg.Timeout,
			Dimensions: embeddingDimensions[cfg.EmbeddingModel],
			RequireKey: cfg.Provider == config.ProviderOpenAI,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: %w", cfg.Provider, domain.ErrConfig)
	}
}

// CreateLLMService creates the LLM service for the configured provider.
func CreateLLMService(cfg config.AIConfig) (driven.LLMService, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, config.ProviderOllama:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    baseURL(cfg),
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			RequireKey: cfg.Provider == config.ProviderOpenAI,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: %w", cfg.Provider, domain.ErrConfig)
	}
}

// baseURL resolves the endpoint, defaulting Ollama to its local server.
func baseURL(cfg config.AIConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if cfg.Provider == config.ProviderOllama {
		return DefaultOllamaURL
	}
	return ""
}
