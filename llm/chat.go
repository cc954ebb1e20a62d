package llm

import (
	"encoding/json"
	"fmt"

	"github.com/guardchat/orchestrator/domain"
)

// chatAdapter speaks the OpenAI-style chat completion protocol, which keeps
// the full three-role vocabulary.
type chatAdapter struct{}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		TotalTokens         int `json:"total_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
}

func (a *chatAdapter) BuildRequest(history []domain.ChatMessage) ([]byte, error) {
	messages := make([]chatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return json.Marshal(chatRequest{
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	})
}

func (a *chatAdapter) ParseResponse(body []byte) (string, Usage, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", Usage{}, fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("model returned no choices")
	}

	usage := Usage{
		InputTokens:     resp.Usage.PromptTokens,
		OutputTokens:    resp.Usage.CompletionTokens,
		TotalTokens:     resp.Usage.TotalTokens,
		CacheReadTokens: resp.Usage.PromptTokensDetails.CachedTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}
