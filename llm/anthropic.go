package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guardchat/orchestrator/domain"
)

// anthropicAdapter speaks the two-role messages protocol. The protocol has no
// system role, so system messages are coerced to the assistant role rather
// than dropped. The coercion is lossy on purpose: keeping the text in the
// conversation beats rejecting the request.
type anthropicAdapter struct{}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

func (a *anthropicAdapter) BuildRequest(history []domain.ChatMessage) ([]byte, error) {
	messages := make([]anthropicMessage, 0, len(history))
	for _, m := range history {
		role := string(m.Role)
		if m.Role == domain.RoleSystem {
			role = string(domain.RoleAssistant)
		}
		messages = append(messages, anthropicMessage{Role: role, Content: m.Content})
	}
	return json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        defaultMaxTokens,
		Messages:         messages,
	})
}

func (a *anthropicAdapter) ParseResponse(body []byte) (string, Usage, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", Usage{}, fmt.Errorf("failed to unmarshal model response: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	usage := Usage{
		InputTokens:      resp.Usage.InputTokens,
		OutputTokens:     resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		CacheReadTokens:  resp.Usage.CacheReadInputTokens,
		CacheWriteTokens: resp.Usage.CacheCreationInputTokens,
	}
	return sb.String(), usage, nil
}
