package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"candybowl/internal/audit"
	"candybowl/internal/config"
	"candybowl/internal/ledger"
	"candybowl/internal/marketplace"
	"candybowl/internal/notes"
	"candybowl/internal/runtime"
	"candybowl/internal/session"
	"candybowl/internal/tools"
)

const bankMissingText = "bank balance file not found"

// stores are the file-backed state shared by the tools and the operator
// commands.
type stores struct {
	ledger  *ledger.Ledger
	notes   *notes.Log
	bank    *notes.Log
	closers []func() error
}

func openStores(cfg config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{}
	var backend ledger.Backend
	switch cfg.Data.LedgerBackend {
	case "sqlite":
		b, err := ledger.OpenSQLite(cfg.Path(cfg.Data.SQLiteFile))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, b.Close)
		backend = b
	default:
		backend = ledger.NewCSVBackend(cfg.Path(cfg.Data.InventoryFile))
	}
	s.ledger = ledger.New(backend, ledger.WithLogger(logger))
	s.notes = notesLog(cfg)
	s.bank = bankLog(cfg)
	return s, nil
}

func (s *stores) Close() error {
	return closeAll(s.closers)
}

// service is an in-process session manager with everything it closes over.
type service struct {
	manager *session.Manager
	closers []func() error
}

func newService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*service, error) {
	model, err := runtime.NewModel(cfg, logger)
	if err != nil {
		return nil, err
	}
	searchKey, err := cfg.MarketplaceAPIKey()
	if err != nil {
		return nil, err
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := &service{closers: []func() error{st.Close}}

	auditLog, err := audit.NewLogger(cfg.Path(cfg.Data.AuditFile))
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	svc.closers = append(svc.closers, auditLog.Close)

	reg := tools.NewRegistry(logger)
	reg.SetAuditor(auditLog)
	if err := tools.RegisterShop(reg, tools.Deps{
		Ledger:      st.ledger,
		Notes:       st.notes,
		Bank:        st.bank,
		Search:      marketplace.NewClient(cfg.Marketplace.BaseURL, searchKey, logger),
		ResultLimit: cfg.Marketplace.ResultLimit,
	}); err != nil {
		_ = svc.Close()
		return nil, err
	}

	registry, closeRegistry, err := newSessionRegistry(ctx, cfg)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	if closeRegistry != nil {
		svc.closers = append(svc.closers, closeRegistry)
	}

	svc.manager, err = session.NewManager(model, reg, registry, session.Options{
		Shop:               shopInfo(cfg.Shop),
		RestockCanPurchase: cfg.Shop.RestockCanPurchase,
		MaxToolIterations:  cfg.Model.MaxToolIterations,
		Logger:             logger,
		Auditor:            auditLog,
	})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

func (s *service) Close() error {
	return closeAll(s.closers)
}

func newSessionRegistry(ctx context.Context, cfg config.Config) (session.Registry, func() error, error) {
	ttl := time.Duration(cfg.Sessions.TTLMinutes) * time.Minute
	switch cfg.Sessions.Backend {
	case "redis":
		url, err := cfg.RedisURL()
		if err != nil {
			return nil, nil, err
		}
		reg, err := session.NewRedisRegistry(ctx, url, cfg.Sessions.RedisPrefix, ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("connect session registry: %w", err)
		}
		return reg, reg.Close, nil
	default:
		return session.NewMemoryRegistry(cfg.Sessions.Capacity, ttl), nil, nil
	}
}

func shopInfo(cfg config.ShopConfig) session.ShopInfo {
	return session.ShopInfo{
		OperatorName:      cfg.OperatorName,
		InitialBalanceUSD: cfg.InitialBalanceUSD,
		BowlProducts:      cfg.BowlProducts,
		UnitsPerProduct:   cfg.UnitsPerProduct,
	}
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
