// Package session runs mode-scoped conversations between shop users and the
// hosted model.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"candybowl/internal/agent"
	"candybowl/internal/apperr"
	"candybowl/internal/audit"
	"candybowl/internal/tools"

	"github.com/google/uuid"
)

// Chats is what delivery adapters need. Manager implements it in process;
// the HTTP client implements it against a remote server.
type Chats interface {
	Start(ctx context.Context, mode Mode) (Started, error)
	Send(ctx context.Context, chatID, text string) (string, error)
}

// Started is returned on creation. Response is only set for modes with an
// opening turn.
type Started struct {
	ChatID   string `json:"chat_id"`
	Response string `json:"response,omitempty"`
}

type Options struct {
	Shop               ShopInfo
	RestockCanPurchase bool
	MaxToolIterations  int
	Logger             *slog.Logger
	Auditor            tools.Auditor
	NewID              func() string
	Now                func() time.Time
}

type modeRuntime struct {
	spec  ModeSpec
	set   *tools.Set
	decls []agent.ToolDecl
}

type Manager struct {
	model    agent.Model
	registry Registry
	modes    map[Mode]modeRuntime
	maxIter  int
	logger   *slog.Logger
	auditor  tools.Auditor
	newID    func() string
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager binds each mode to the tools of reg it names. Tools missing
// from reg are left out of that mode.
func NewManager(model agent.Model, reg *tools.Registry, registry Registry, opts Options) (*Manager, error) {
	if model == nil {
		return nil, fmt.Errorf("session manager requires a model")
	}
	if reg == nil || registry == nil {
		return nil, fmt.Errorf("session manager requires a tool registry and a session registry")
	}
	m := &Manager{
		model:    model,
		registry: registry,
		modes:    make(map[Mode]modeRuntime),
		maxIter:  opts.MaxToolIterations,
		logger:   opts.Logger,
		auditor:  opts.Auditor,
		newID:    opts.NewID,
		now:      opts.Now,
		locks:    make(map[string]*sessionLock),
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.now == nil {
		m.now = time.Now
	}
	shop := opts.Shop
	if shop.OperatorName == "" {
		shop = DefaultShopInfo()
	}

	for mode, spec := range ModeTable(shop, opts.RestockCanPurchase) {
		var names []tools.Name
		for _, name := range spec.Tools {
			if _, ok := reg.Spec(name); !ok {
				m.logger.Warn("tool unavailable for session mode", "mode", string(mode), "tool", string(name))
				continue
			}
			names = append(names, name)
		}
		set, err := reg.Subset(names...)
		if err != nil {
			return nil, err
		}
		m.modes[mode] = modeRuntime{spec: spec, set: set, decls: set.Declarations()}
	}
	return m, nil
}

func (m *Manager) runner(rt modeRuntime) agent.Runner {
	return agent.Runner{Model: m.model, Tools: rt.set, MaxToolIterations: m.maxIter, Logger: m.logger}
}

// Start creates a session. A restock session runs its opening turn first
// and is only registered if that turn succeeds.
func (m *Manager) Start(ctx context.Context, mode Mode) (Started, error) {
	const op = "session.start"
	rt, ok := m.modes[mode]
	if !ok {
		return Started{}, apperr.Newf(apperr.KindValidation, op, "unknown session mode %q", mode)
	}
	now := m.now()
	s := &Session{ID: m.newID(), Mode: mode, CreatedAt: now, LastActive: now}
	logger := m.logger.With("chat_id", s.ID, "mode", string(mode))

	var out Started
	out.ChatID = s.ID
	if rt.spec.Opening != "" {
		turn, err := m.runner(rt).Run(ctx, rt.spec.SystemPrompt, rt.decls, nil, rt.spec.Opening)
		if err != nil {
			logger.Error("opening turn failed", "error", err)
			return Started{}, err
		}
		s.History = turn.History
		s.LastActive = m.now()
		out.Response = turn.Reply
	}
	if err := m.registry.Put(ctx, s); err != nil {
		return Started{}, err
	}
	logger.Info("session started")
	m.audit(ctx, audit.EventSessionStart, map[string]any{"chat_id": s.ID, "mode": string(mode)})
	return out, nil
}

// Send relays one user turn. Turns for the same session are serialized. An
// unknown id is reported before an empty message.
func (m *Manager) Send(ctx context.Context, chatID, text string) (string, error) {
	const op = "session.send"
	if strings.TrimSpace(chatID) == "" {
		return "", apperr.New(apperr.KindNotFound, op, "Chat not found")
	}

	unlock := m.lock(chatID)
	defer unlock()

	s, ok, err := m.registry.Get(ctx, chatID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.New(apperr.KindNotFound, op, "Chat not found")
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.KindValidation, op, "Message cannot be empty")
	}
	rt, ok := m.modes[s.Mode]
	if !ok {
		return "", apperr.Newf(apperr.KindStorage, op, "session %s has unknown mode %q", chatID, s.Mode)
	}

	logger := m.logger.With("chat_id", chatID, "mode", string(s.Mode))
	turn, err := m.runner(rt).Run(ctx, rt.spec.SystemPrompt, rt.decls, s.History, text)
	if err != nil {
		logger.Error("turn failed", "error", err)
		return "", err
	}
	s.History = turn.History
	s.LastActive = m.now()
	if err := m.registry.Put(ctx, s); err != nil {
		return "", err
	}
	logger.Info("turn complete", "tool_calls", turn.ToolCalls)
	m.audit(ctx, audit.EventSessionTurn, map[string]any{"chat_id": chatID, "mode": string(s.Mode), "tool_calls": turn.ToolCalls})
	return turn.Reply, nil
}

func (m *Manager) audit(ctx context.Context, eventType string, fields map[string]any) {
	if m.auditor == nil {
		return
	}
	if err := m.auditor.LogEvent(ctx, eventType, fields); err != nil {
		m.logger.Warn("audit write failed", "event", eventType, "error", err)
	}
}

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
