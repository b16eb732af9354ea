// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ContentSource: Fetches threads and listings from Reddit
//   - LLMService: Text generation and tool-calling chat
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - KnowledgeStore: Persists embedded chunks and answers similarity queries
//
// # Optional Interfaces
//
// These can be nil or no-op - the application degrades gracefully:
//
//   - PromptStore: User-editable prompts. Without it, built-in prompts are used.
//   - Metrics: Operational counters. Defaults to a no-op recorder.
//   - SeedHistory: Past seed runs, shown by the status command.
//   - ThreadArchive / Publisher: Only used by the extract, summarise and publish commands.
//   - ConfigStore: Persistent key/value configuration.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
