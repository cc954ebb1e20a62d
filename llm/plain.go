package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guardchat/orchestrator/domain"
)

// plainAdapter is the fallback for model families the registry does not know.
// It flattens the conversation into a single labeled prompt and accepts the
// common completion field names on the way back.
type plainAdapter struct{}

type plainRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type plainResponse struct {
	Completion string `json:"completion,omitempty"`
	OutputText string `json:"outputText,omitempty"`
	Generation string `json:"generation,omitempty"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (a *plainAdapter) BuildRequest(history []domain.ChatMessage) ([]byte, error) {
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", roleLabel(m.Role), m.Content)
	}
	sb.WriteString("Assistant:")
	return json.Marshal(plainRequest{
		Prompt:    sb.String(),
		MaxTokens: defaultMaxTokens,
	})
}

func (a *plainAdapter) ParseResponse(body []byte) (string, Usage, error) {
	var resp plainResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", Usage{}, fmt.Errorf("failed to unmarshal model response: %w", err)
	}

	text := resp.Completion
	if text == "" {
		text = resp.OutputText
	}
	if text == "" {
		text = resp.Generation
	}

	usage := Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return text, usage, nil
}

func roleLabel(role domain.Role) string {
	switch role {
	case domain.RoleAssistant:
		return "Assistant"
	case domain.RoleSystem:
		return "System"
	default:
		return "User"
	}
}
