// Package llm invokes external model endpoints. A registry of model-family
// adapters translates canonical history into whatever wire shape the target
// family expects, selected by model identifier prefix, with a generic
// plain-prompt adapter as the fallback.
package llm

import (
	"strings"

	"github.com/guardchat/orchestrator/domain"
)

const defaultMaxTokens = 1024

// ModelAdapter translates canonical history into the wire shape one model
// family expects and extracts the generated text back out.
type ModelAdapter interface {
	BuildRequest(history []domain.ChatMessage) ([]byte, error)
	ParseResponse(body []byte) (string, Usage, error)
}

// Usage is the normalized token accounting across model families. Counters a
// provider does not report stay zero.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	CacheReadTokens  int
	CacheWriteTokens int
}

// registration binds identifier prefixes to one adapter.
type registration struct {
	prefixes []string
	adapter  ModelAdapter
}

// Registry selects an adapter from a model identifier. Identifiers no family
// claims get the plain-prompt fallback so unknown models still work.
type Registry struct {
	entries  []registration
	fallback ModelAdapter
}

// NewRegistry builds the default adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: []registration{
			{prefixes: []string{"anthropic.", "claude"}, adapter: &anthropicAdapter{}},
			{prefixes: []string{"openai.", "gpt-", "mistral."}, adapter: &chatAdapter{}},
		},
		fallback: &plainAdapter{},
	}
}

// Select returns the adapter responsible for modelID.
func (r *Registry) Select(modelID string) ModelAdapter {
	id := strings.ToLower(modelID)
	for _, e := range r.entries {
		for _, p := range e.prefixes {
			if strings.HasPrefix(id, p) {
				return e.adapter
			}
		}
	}
	return r.fallback
}
