package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"candybowl/internal/agent"
)

// Set is the subset of a Registry one session mode may call. It implements
// agent.ToolExecutor.
type Set struct {
	reg   *Registry
	names []Name
	allow map[Name]bool
}

// Subset returns a Set over names. Every name must already be registered.
func (r *Registry) Subset(names ...Name) (*Set, error) {
	set := &Set{reg: r, allow: make(map[Name]bool, len(names))}
	for _, name := range names {
		if _, ok := r.Spec(name); !ok {
			return nil, fmt.Errorf("tool not registered: %s", name)
		}
		if set.allow[name] {
			continue
		}
		set.allow[name] = true
		set.names = append(set.names, name)
	}
	return set, nil
}

func (s *Set) Names() []Name {
	return append([]Name(nil), s.names...)
}

// Declarations lists the set's tools in the form sent to the model.
func (s *Set) Declarations() []agent.ToolDecl {
	out := make([]agent.ToolDecl, 0, len(s.names))
	for _, name := range s.names {
		spec, _ := s.reg.Spec(name)
		params := spec.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, agent.ToolDecl{Name: string(name), Description: spec.Description, Parameters: params})
	}
	return out
}

// Execute runs one call and always returns text: failures come back as
// "Error: <message>".
func (s *Set) Execute(ctx context.Context, call agent.ToolCall) agent.ToolResult {
	result := agent.ToolResult{CallID: call.ID, Name: call.Name}
	name := Name(call.Name)
	if !s.allow[name] {
		result.Output = Flatten(&ToolError{Code: ErrCodeNotAllowed, Tool: call.Name, Message: "tool not available in this session: " + call.Name})
		return result
	}

	args := map[string]any{}
	if raw := bytes.TrimSpace(call.Arguments); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &args); err != nil {
			result.Output = Flatten(invalidInput(call.Name, "arguments must be a JSON object"))
			return result
		}
	}

	out, err := s.reg.Execute(ctx, name, args)
	if err != nil {
		result.Output = Flatten(err)
		return result
	}
	result.Output = out
	return result
}
