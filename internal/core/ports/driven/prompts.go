package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
// None of the prompts take format placeholders.
const (
	// PromptThreadSummary instructs the model to summarise one thread.
	PromptThreadSummary = "thread_summary"

	// PromptCollectionSummary instructs the model to condense many thread summaries.
	PromptCollectionSummary = "collection_summary"

	// PromptAgentSystem is the system prompt for the chat agent.
	PromptAgentSystem = "agent_system"
)

// DefaultPrompts holds the built-in prompt text, keyed by prompt name.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptThreadSummary: `Summarise the provided discussion from a Reddit thread. Identify the key themes, notable opinions, and any consensus or disagreements. Don't start every summary with a phrase such as 'The discussion revolves around...'. Be concise but capture all distinct points.`,

	PromptCollectionSummary: `Summarise the provided summaries in a single, SHORT paragraph. The topics of some summaries may be similar to each other, so focus on distinct points and avoid repetition.`,

	PromptAgentSystem: `You are Forager, an AI assistant that helps users explore and understand Reddit discussions and online content.

You have access to the following tools:
- search_knowledge_base: Search previously ingested Reddit threads and summaries stored in your knowledge base. Use this first when a user asks about a topic.
- fetch_reddit_thread: Fetch a specific Reddit thread by its ID for fresh data.
- fetch_subreddit_posts: Browse the latest posts from any subreddit.
- seed_subreddit: Ingest threads from a subreddit into the knowledge base for future reference.

Guidelines:
- When a user asks about a topic, first search the knowledge base. If results are insufficient or outdated, use the live Reddit tools to get fresh data.
- When presenting information, cite the source threads with their Reddit URLs.
- Be concise but thorough. Synthesise information from multiple sources when relevant.
- If the knowledge base is empty or has no relevant results, suggest seeding a subreddit first or offer to fetch live data.
- When seeding, let the user know it may take a moment as threads need to be summarised.`,
}

// LoadPrompt loads name from store, falling back to the built-in default
// when store is nil or the load fails.
func LoadPrompt(store PromptStore, name string) string {
	if store != nil {
		if prompt, err := store.Load(name); err == nil && prompt != "" {
			return prompt
		}
	}
	return DefaultPrompts[name]
}
