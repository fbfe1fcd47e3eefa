package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"candybowl/internal/audit"
)

// Name is one member of the closed tool set.
type Name string

const (
	GetInventory  Name = "get_inventory"
	StockItem     Name = "stock_item"
	SetPrice      Name = "set_price"
	GetNotes      Name = "get_notes"
	AddNote       Name = "add_note"
	SearchProduct Name = "search_product"
	GetBalance    Name = "get_balance"
)

// ToolSpec is advertised to the model as a function declaration. Parameters
// is a JSON schema object whose properties match what the handler reads.
type ToolSpec struct {
	Name        Name
	Description string
	Parameters  map[string]any
	Required    []string
}

type Handler func(ctx context.Context, req Request) (string, error)

type Request struct {
	Tool Name
	Args map[string]any
}

type registryItem struct {
	spec    ToolSpec
	handler Handler
}

// Auditor receives one event per call and per result. internal/audit.Logger
// satisfies it.
type Auditor interface {
	LogEvent(ctx context.Context, eventType string, fields map[string]any) error
}

type Registry struct {
	logger  *slog.Logger
	auditor Auditor
	mu      sync.RWMutex
	tools   map[Name]registryItem
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		tools:  make(map[Name]registryItem),
	}
}

func (r *Registry) SetAuditor(a Auditor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditor = a
}

func (r *Registry) audit(ctx context.Context, eventType string, fields map[string]any) {
	r.mu.RLock()
	a := r.auditor
	r.mu.RUnlock()
	if a == nil {
		return
	}
	if err := a.LogEvent(ctx, eventType, fields); err != nil {
		r.logger.Warn("audit write failed", "event", eventType, "error", err)
	}
}

func (r *Registry) Register(spec ToolSpec, handler Handler) error {
	if spec.Name == "" {
		return errors.New("tool name is required")
	}
	if handler == nil {
		return errors.New("tool handler is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tool already registered: %s", spec.Name)
	}
	r.tools[spec.Name] = registryItem{spec: spec, handler: handler}
	return nil
}

// List returns registered specs sorted by name.
func (r *Registry) List() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolSpec, 0, len(r.tools))
	for _, item := range r.tools {
		out = append(out, item.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Spec(name Name) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.tools[name]
	return item.spec, ok
}

func (r *Registry) Execute(ctx context.Context, name Name, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	logger := r.logger.With("tool", string(name))
	logger.Info("tool call", "args", args)
	r.audit(ctx, audit.EventToolCall, map[string]any{"tool": string(name), "args": args})

	res, err := r.execute(ctx, name, args)
	if err != nil {
		logger.Warn("tool result", "error", err.Error())
		r.audit(ctx, audit.EventToolResult, map[string]any{"tool": string(name), "error": err.Error()})
		return "", err
	}
	r.audit(ctx, audit.EventToolResult, map[string]any{"tool": string(name), "bytes": len(res)})
	return res, nil
}

func (r *Registry) execute(ctx context.Context, name Name, args map[string]any) (string, error) {
	r.mu.RLock()
	item, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", &ToolError{Code: ErrCodeNotFound, Tool: string(name), Message: "tool not registered: " + string(name)}
	}

	for _, required := range item.spec.Required {
		if _, ok := args[required]; !ok {
			return "", &ToolError{Code: ErrCodeInvalidInput, Tool: string(name), Message: "missing required field: " + required}
		}
	}

	started := time.Now()
	res, err := item.handler(ctx, Request{Tool: name, Args: args})
	if err != nil {
		var te *ToolError
		if !errors.As(err, &te) {
			err = wrapError(ErrCodeExecution, string(name), err)
		}
		return "", err
	}
	r.logger.Debug("tool handler finished", "tool", string(name), "duration", time.Since(started))
	return res, nil
}
