package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"candybowl/internal/agent"
	"candybowl/internal/apperr"
)

// OpenAIModel speaks the chat completions format used by OpenAI, OpenRouter
// and compatible gateways.
type OpenAIModel struct {
	httpBackend
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function agent.ToolDecl `json:"function"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error any `json:"error"`
}

func (m *OpenAIModel) Generate(ctx context.Context, req agent.ModelRequest) (agent.ModelResponse, error) {
	const op = "openai.generate"

	body := openAIRequest{
		Model:       m.modelName,
		Messages:    openAIMessages(req.SystemPrompt, req.History),
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	}
	for _, decl := range req.Tools {
		body.Tools = append(body.Tools, openAITool{Type: "function", Function: decl})
	}

	var payload openAIResponse
	errText := func() string { return fmt.Sprint(payload.Error) }
	setAuth := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+m.apiKey) }
	if err := m.postJSON(ctx, op, m.baseURL+"/chat/completions", setAuth, body, &payload, errText); err != nil {
		return agent.ModelResponse{}, err
	}
	if len(payload.Choices) == 0 {
		return agent.ModelResponse{}, apperr.New(apperr.KindModel, op, "provider returned no choices")
	}

	choice := payload.Choices[0].Message
	out := agent.ModelResponse{Text: strings.TrimSpace(choice.Content)}
	for _, call := range choice.ToolCalls {
		args := strings.TrimSpace(call.Function.Arguments)
		if args == "" || !json.Valid([]byte(args)) {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: []byte(args),
		})
	}
	return out, nil
}

func openAIMessages(systemPrompt string, history []agent.Message) []openAIMessage {
	messages := make([]openAIMessage, 0, len(history)+1)
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: prompt})
	}
	for _, msg := range history {
		switch msg.Role {
		case agent.RoleUser:
			messages = append(messages, openAIMessage{Role: "user", Content: msg.Text})
		case agent.RoleModel:
			item := openAIMessage{Role: "assistant", Content: msg.Text}
			for _, call := range msg.ToolCalls {
				tc := openAIToolCall{ID: call.ID, Type: "function"}
				tc.Function.Name = call.Name
				tc.Function.Arguments = string(call.Arguments)
				if tc.Function.Arguments == "" {
					tc.Function.Arguments = "{}"
				}
				item.ToolCalls = append(item.ToolCalls, tc)
			}
			messages = append(messages, item)
		case agent.RoleTool:
			for _, result := range msg.ToolResults {
				messages = append(messages, openAIMessage{Role: "tool", Content: result.Output, ToolCallID: result.CallID})
			}
		}
	}
	return messages
}
