// Package llm provides the completion clients behind the structured-extraction
// capability. The coordinator treats every client as optional and fallible:
// a nil client or any returned error degrades to heuristic extraction.
package llm

import "context"

// Client defines the minimal interface the extraction coordinator uses to
// call an LLM.
type Client interface {
	// Complete sends a prompt and returns the raw completion text.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name identifies the provider for logging.
	Name() string
}
