package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"candybowl/internal/apperr"
)

const DefaultToolIterationCap = 8

// Runner drives one user turn: call the model, run any tools it asks for,
// feed results back, and stop at the first reply without tool calls.
type Runner struct {
	Model             Model
	Tools             ToolExecutor
	MaxToolIterations int
	Logger            *slog.Logger
}

// Turn is the result of one Run.
type Turn struct {
	Reply     string
	History   []Message
	ToolCalls int
}

// Run appends userText to history and loops until the model answers. The
// returned history includes every model and tool turn. history itself is not
// modified, so a failed run leaves the caller's session untouched.
func (r Runner) Run(ctx context.Context, systemPrompt string, tools []ToolDecl, history []Message, userText string) (Turn, error) {
	const op = "agent.run"
	if r.Model == nil {
		return Turn{}, apperr.New(apperr.KindModel, op, "model is not configured")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	toolCap := r.MaxToolIterations
	if toolCap <= 0 {
		toolCap = DefaultToolIterationCap
	}

	msgs := make([]Message, 0, len(history)+4)
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Text: userText})

	calls := 0
	for iteration := 0; ; iteration++ {
		started := time.Now()
		resp, err := r.Model.Generate(ctx, ModelRequest{SystemPrompt: systemPrompt, History: msgs, Tools: tools})
		if err != nil {
			if apperr.KindOf(err) == "" {
				err = apperr.Wrap(apperr.KindModel, op, err)
			}
			return Turn{}, err
		}
		logger.Debug("model replied", "iteration", iteration, "tool_calls", len(resp.ToolCalls), "duration_ms", time.Since(started).Milliseconds())

		msgs = append(msgs, Message{Role: RoleModel, Text: resp.Text, ToolCalls: resp.ToolCalls})
		if len(resp.ToolCalls) == 0 {
			reply := strings.TrimSpace(resp.Text)
			if reply == "" {
				return Turn{}, apperr.New(apperr.KindModel, op, "received empty response from the model")
			}
			return Turn{Reply: reply, History: msgs, ToolCalls: calls}, nil
		}
		if iteration >= toolCap {
			return Turn{}, apperr.Newf(apperr.KindModel, op, "model kept calling tools after %d rounds", toolCap)
		}
		if r.Tools == nil {
			return Turn{}, apperr.New(apperr.KindModel, op, "model requested tools but none are configured")
		}

		results := make([]ToolResult, 0, len(resp.ToolCalls))
		for i, call := range resp.ToolCalls {
			if strings.TrimSpace(call.ID) == "" {
				call.ID = fmt.Sprintf("call-%d-%d", iteration+1, i+1)
				resp.ToolCalls[i] = call
			}
			res := r.Tools.Execute(ctx, call)
			res.CallID = call.ID
			res.Name = call.Name
			results = append(results, res)
			calls++
		}
		msgs = append(msgs, Message{Role: RoleTool, ToolResults: results})
	}
}
