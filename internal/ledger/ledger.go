package ledger

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"

	"candybowl/internal/apperr"

	"github.com/google/uuid"
)

// Backend persists full ledger snapshots. Load on a fresh backend returns an
// empty slice, never an error.
type Backend interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

// Ledger applies inventory mutations as load, mutate, prune, save over a
// Backend. The mutex serializes callers inside one process only; two
// processes sharing a backing file can still lose updates.
type Ledger struct {
	backend Backend
	logger  *slog.Logger
	newID   func() string
	mu      sync.Mutex
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithIDGenerator replaces uuid.NewString, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.newID = fn
		}
	}
}

func New(backend Backend, opts ...Option) *Ledger {
	l := &Ledger{backend: backend, logger: slog.Default(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Items returns the current snapshot in insertion order.
func (l *Ledger) Items(ctx context.Context) ([]Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backend.Load(ctx)
}

// Replace overwrites the whole ledger with items.
func (l *Ledger) Replace(ctx context.Context, items []Item) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := validateRow(it); err != nil {
			return err
		}
		if _, dup := seen[it.ID]; dup {
			return apperr.Newf(apperr.KindValidation, "ledger.replace", "duplicate item id %s", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return l.backend.Save(ctx, items)
}

// Stock adds units of a product. If a row already matches on link or name
// its quantity grows and its prices are left alone; otherwise a new row is
// appended with a fresh id.
func (l *Ledger) Stock(ctx context.Context, in StockInput) (Item, error) {
	const op = "ledger.stock"
	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	if in.Quantity <= 0 {
		return Item{}, apperr.Newf(apperr.KindValidation, op, "quantity must be positive, got %d", in.Quantity)
	}
	if in.Name == "" {
		return Item{}, apperr.New(apperr.KindValidation, op, "item name is required")
	}
	if err := checkUSD(op, "unit cost", in.UnitCostUSD); err != nil {
		return Item{}, err
	}
	if err := checkUSD(op, "sell price", in.SellPriceUSD); err != nil {
		return Item{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.backend.Load(ctx)
	if err != nil {
		return Item{}, err
	}

	var out Item
	if idx := matchStock(items, in.Name, in.Link); idx >= 0 {
		items[idx].Quantity += in.Quantity
		out = items[idx]
		l.logger.Info("restocked existing item", "item_id", out.ID, "item_name", out.Name, "added", in.Quantity, "quantity", out.Quantity)
	} else {
		out = Item{
			ID:               l.newID(),
			Name:             in.Name,
			Link:             in.Link,
			Quantity:         in.Quantity,
			UnitCostUSD:      in.UnitCostUSD,
			UnitSellPriceUSD: in.SellPriceUSD,
			Description:      in.Description,
		}
		items = append(items, out)
		l.logger.Info("stocked new item", "item_id", out.ID, "item_name", out.Name, "quantity", out.Quantity)
	}

	if err := l.backend.Save(ctx, prune(items)); err != nil {
		return Item{}, err
	}
	return out, nil
}

// SetPrice updates the listed sell price of one row.
func (l *Ledger) SetPrice(ctx context.Context, id string, price float64) (Item, error) {
	const op = "ledger.set_price"
	if err := checkUSD(op, "price", price); err != nil {
		return Item{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.backend.Load(ctx)
	if err != nil {
		return Item{}, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return Item{}, apperr.Newf(apperr.KindNotFound, op, "item with id %s does not exist", id)
	}
	items[idx].UnitSellPriceUSD = price
	if err := l.backend.Save(ctx, items); err != nil {
		return Item{}, err
	}
	l.logger.Info("price updated", "item_id", id, "unit_sell_price_usd", price)
	return items[idx], nil
}

// AdjustQuantity applies delta to a row's quantity and prunes rows that end
// at zero, including the adjusted one. The returned item carries the new
// quantity even when it was pruned.
func (l *Ledger) AdjustQuantity(ctx context.Context, id string, delta int) (Item, error) {
	return l.adjust(ctx, "ledger.adjust_quantity", id, delta)
}

// Sell removes n units.
func (l *Ledger) Sell(ctx context.Context, id string, n int) (Item, error) {
	if n <= 0 {
		return Item{}, apperr.Newf(apperr.KindValidation, "ledger.sell", "quantity must be positive, got %d", n)
	}
	return l.adjust(ctx, "ledger.sell", id, -n)
}

// Buy adds n units to an existing row.
func (l *Ledger) Buy(ctx context.Context, id string, n int) (Item, error) {
	if n <= 0 {
		return Item{}, apperr.Newf(apperr.KindValidation, "ledger.buy", "quantity must be positive, got %d", n)
	}
	return l.adjust(ctx, "ledger.buy", id, n)
}

func (l *Ledger) adjust(ctx context.Context, op, id string, delta int) (Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.backend.Load(ctx)
	if err != nil {
		return Item{}, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return Item{}, apperr.Newf(apperr.KindNotFound, op, "item with id %s does not exist", id)
	}
	have := items[idx].Quantity
	next := have + delta
	if next < 0 {
		if op == "ledger.sell" {
			return Item{}, apperr.Newf(apperr.KindValidation, op, "not enough quantity to sell (have %d, want %d)", have, -delta)
		}
		return Item{}, apperr.Newf(apperr.KindValidation, op, "quantity cannot be negative (have %d, delta %d)", have, delta)
	}
	items[idx].Quantity = next
	out := items[idx]

	if err := l.backend.Save(ctx, prune(items)); err != nil {
		return Item{}, err
	}
	if next == 0 {
		l.logger.Info("item sold out and pruned", "item_id", id, "item_name", out.Name)
	}
	return out, nil
}

// checkUSD rejects negative, NaN and infinite amounts.
func checkUSD(op, field string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return apperr.Newf(apperr.KindValidation, op, "%s must be a finite number", field)
	case v < 0:
		return apperr.Newf(apperr.KindValidation, op, "%s cannot be negative", field)
	}
	return nil
}

func validateRow(it Item) error {
	const op = "ledger.validate"
	switch {
	case strings.TrimSpace(it.ID) == "":
		return apperr.New(apperr.KindValidation, op, "item id is required")
	case it.Quantity < 0:
		return apperr.Newf(apperr.KindValidation, op, "item %s has negative quantity", it.ID)
	}
	if err := checkUSD(op, "unit cost of "+it.ID, it.UnitCostUSD); err != nil {
		return err
	}
	if err := checkUSD(op, "sell price of "+it.ID, it.UnitSellPriceUSD); err != nil {
		return err
	}
	return nil
}
