package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"candybowl/internal/agent"
	"candybowl/internal/apperr"
)

// GeminiModel talks to the native generateContent endpoint.
type GeminiModel struct {
	httpBackend
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []agent.ToolDecl `json:"functionDeclarations"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (m *GeminiModel) Generate(ctx context.Context, req agent.ModelRequest) (agent.ModelResponse, error) {
	const op = "gemini.generate"

	body := geminiRequest{Contents: geminiContents(req.History)}
	if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: prompt}}}
	}
	if len(req.Tools) > 0 {
		body.Tools = []geminiTool{{FunctionDeclarations: req.Tools}}
	}
	if m.temperature > 0 || m.maxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{Temperature: m.temperature, MaxOutputTokens: m.maxTokens}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", m.baseURL, url.PathEscape(m.modelName))
	setAuth := func(r *http.Request) { r.Header.Set("x-goog-api-key", m.apiKey) }
	var payload geminiResponse
	errText := func() string {
		if payload.Error == nil {
			return ""
		}
		return payload.Error.Status + " " + payload.Error.Message
	}
	if err := m.postJSON(ctx, op, endpoint, setAuth, body, &payload, errText); err != nil {
		return agent.ModelResponse{}, err
	}

	if len(payload.Candidates) == 0 {
		if payload.PromptFeedback != nil && payload.PromptFeedback.BlockReason != "" {
			return agent.ModelResponse{}, apperr.Newf(apperr.KindModel, op, "prompt blocked: %s", payload.PromptFeedback.BlockReason)
		}
		return agent.ModelResponse{}, apperr.New(apperr.KindModel, op, "provider returned no candidates")
	}

	var out agent.ModelResponse
	var text strings.Builder
	for _, part := range payload.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return agent.ModelResponse{}, apperr.Wrap(apperr.KindModel, op, err)
			}
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{Name: part.FunctionCall.Name, Arguments: args})
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = strings.TrimSpace(text.String())
	return out, nil
}

// geminiContents maps history onto Gemini roles. Tool results travel as
// functionResponse parts inside a user turn.
func geminiContents(history []agent.Message) []geminiContent {
	contents := make([]geminiContent, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case agent.RoleUser:
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Text}}})
		case agent.RoleModel:
			var parts []geminiPart
			if strings.TrimSpace(msg.Text) != "" {
				parts = append(parts, geminiPart{Text: msg.Text})
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{Name: call.Name, Args: argsObject(call.Arguments)}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})
		case agent.RoleTool:
			parts := make([]geminiPart, 0, len(msg.ToolResults))
			for _, result := range msg.ToolResults {
				parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
					Name:     result.Name,
					Response: map[string]any{"output": result.Output},
				}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, geminiContent{Role: "user", Parts: parts})
		}
	}
	return contents
}
