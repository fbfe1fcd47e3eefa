package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"candybowl/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendFactory struct {
	name string
	open func(t *testing.T) Backend
}

func backends() []backendFactory {
	return []backendFactory{
		{name: "csv", open: func(t *testing.T) Backend {
			return NewCSVBackend(filepath.Join(t.TempDir(), "data", "inventory.csv"))
		}},
		{name: "sqlite", open: func(t *testing.T) Backend {
			b, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			return b
		}},
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("item-%d", n)
	}
}

func gum(qty int) StockInput {
	return StockInput{Name: "gum", Link: "http://x/gum", Quantity: qty, UnitCostUSD: 1.0, SellPriceUSD: 2.0, Description: "mint"}
}

func TestLedgerStockMergesSameProduct(t *testing.T) {
	for _, bf := range backends() {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			l := New(bf.open(t), WithIDGenerator(sequentialIDs()))

			first, err := l.Stock(ctx, gum(10))
			require.NoError(t, err)
			second, err := l.Stock(ctx, StockInput{Name: "gum", Link: "http://x/gum", Quantity: 5, UnitCostUSD: 9, SellPriceUSD: 9})
			require.NoError(t, err)
			assert.Equal(t, first.ID, second.ID)

			items, err := l.Items(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, 15, items[0].Quantity)
			assert.Equal(t, 1.0, items[0].UnitCostUSD, "restock keeps the original cost")
			assert.Equal(t, 2.0, items[0].UnitSellPriceUSD, "restock keeps the listed price")
			assert.Equal(t, "mint", items[0].Description)
		})
	}
}

func TestLedgerStockDistinctProductsSumPerPair(t *testing.T) {
	for _, bf := range backends() {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			l := New(bf.open(t), WithIDGenerator(sequentialIDs()))

			calls := []StockInput{
				{Name: "gum", Link: "http://x/gum", Quantity: 3},
				{Name: "taffy", Link: "http://x/taffy", Quantity: 4},
				{Name: "gum", Link: "http://x/gum", Quantity: 2},
				{Name: "mints", Link: "http://x/mints", Quantity: 1},
				{Name: "taffy", Link: "http://x/taffy", Quantity: 6},
			}
			for _, c := range calls {
				_, err := l.Stock(ctx, c)
				require.NoError(t, err)
			}

			items, err := l.Items(ctx)
			require.NoError(t, err)
			require.Len(t, items, 3)
			got := map[string]int{}
			for _, it := range items {
				got[it.Name] = it.Quantity
			}
			assert.Equal(t, map[string]int{"gum": 5, "taffy": 10, "mints": 1}, got)
			assert.Equal(t, []string{"gum", "taffy", "mints"}, []string{items[0].Name, items[1].Name, items[2].Name}, "insertion order is preserved")
		})
	}
}

func TestLedgerStockPrefersLinkMatch(t *testing.T) {
	ctx := context.Background()
	l := New(NewCSVBackend(filepath.Join(t.TempDir(), "inventory.csv")), WithIDGenerator(sequentialIDs()))

	_, err := l.Stock(ctx, StockInput{Name: "gum", Link: "http://x/a", Quantity: 1})
	require.NoError(t, err)
	_, err = l.Stock(ctx, StockInput{Name: "taffy", Link: "http://x/b", Quantity: 1})
	require.NoError(t, err)

	// name points at item-1, link points at item-2
	out, err := l.Stock(ctx, StockInput{Name: "gum", Link: "http://x/b", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, "item-2", out.ID)
	assert.Equal(t, 5, out.Quantity)

	// name-only match falls back to the earliest row with that name
	out, err = l.Stock(ctx, StockInput{Name: "gum", Link: "http://x/new", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "item-1", out.ID)
	assert.Equal(t, 3, out.Quantity)
}

func TestLedgerStockRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	l := New(NewCSVBackend(filepath.Join(t.TempDir(), "inventory.csv")))

	for _, qty := range []int{0, -3} {
		_, err := l.Stock(ctx, gum(qty))
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	_, err := l.Stock(ctx, StockInput{Name: " ", Quantity: 1})
	assert.ErrorIs(t, err, apperr.Validation)

	items, err := l.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLedgerAdjustToZeroPrunesRow(t *testing.T) {
	for _, bf := range backends() {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			backend := bf.open(t)
			l := New(backend)

			it, err := l.Stock(ctx, gum(10))
			require.NoError(t, err)

			out, err := l.AdjustQuantity(ctx, it.ID, -10)
			require.NoError(t, err)
			assert.Equal(t, 0, out.Quantity)

			items, err := backend.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestLedgerAdjustNegativeLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inventory.csv")
	l := New(NewCSVBackend(path))

	it, err := l.Stock(ctx, gum(3))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = l.AdjustQuantity(ctx, it.ID, -4)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.Validation)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	_, err = l.AdjustQuantity(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestLedgerSetPrice(t *testing.T) {
	for _, bf := range backends() {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			l := New(bf.open(t))

			it, err := l.Stock(ctx, gum(2))
			require.NoError(t, err)

			_, err = l.SetPrice(ctx, it.ID, -0.5)
			assert.ErrorIs(t, err, apperr.Validation)

			_, err = l.SetPrice(ctx, "nope", 1)
			assert.ErrorIs(t, err, apperr.NotFound)

			items, err := l.Items(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, 2.0, items[0].UnitSellPriceUSD)

			updated, err := l.SetPrice(ctx, it.ID, 2.75)
			require.NoError(t, err)
			assert.Equal(t, 2.75, updated.UnitSellPriceUSD)

			items, err = l.Items(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2.75, items[0].UnitSellPriceUSD)
		})
	}
}

func TestLedgerSellAndBuy(t *testing.T) {
	ctx := context.Background()
	l := New(NewCSVBackend(filepath.Join(t.TempDir(), "inventory.csv")))

	it, err := l.Stock(ctx, gum(5))
	require.NoError(t, err)

	_, err = l.Sell(ctx, it.ID, 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough quantity")

	_, err = l.Buy(ctx, it.ID, 0)
	assert.ErrorIs(t, err, apperr.Validation)

	out, err := l.Buy(ctx, it.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Quantity)

	out, err = l.Sell(ctx, it.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Quantity)

	items, err := l.Items(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLedgerReplaceRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	l := New(NewCSVBackend(filepath.Join(t.TempDir(), "inventory.csv")))

	err := l.Replace(ctx, []Item{{ID: "a", Name: "gum", Quantity: 1}, {ID: "a", Name: "taffy", Quantity: 1}})
	assert.ErrorIs(t, err, apperr.Validation)

	err = l.Replace(ctx, []Item{{ID: "a", Name: "gum", Quantity: -1}})
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestLedgerRejectsNonFiniteAmounts(t *testing.T) {
	for _, bf := range backends() {
		t.Run(bf.name, func(t *testing.T) {
			ctx := context.Background()
			l := New(bf.open(t))

			it, err := l.Stock(ctx, gum(2))
			require.NoError(t, err)

			for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				_, err = l.SetPrice(ctx, it.ID, v)
				assert.ErrorIs(t, err, apperr.Validation, "price %v", v)

				bad := gum(1)
				bad.Name, bad.Link = "taffy", "http://x/taffy"
				bad.SellPriceUSD = v
				_, err = l.Stock(ctx, bad)
				assert.ErrorIs(t, err, apperr.Validation, "sell price %v", v)

				bad.SellPriceUSD, bad.UnitCostUSD = 1, v
				_, err = l.Stock(ctx, bad)
				assert.ErrorIs(t, err, apperr.Validation, "unit cost %v", v)
			}

			err = l.Replace(ctx, []Item{{ID: "x", Name: "x", Quantity: 1, UnitSellPriceUSD: math.NaN()}})
			assert.ErrorIs(t, err, apperr.Validation)

			items, err := l.Items(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, 2.0, items[0].UnitSellPriceUSD)
			_, err = json.Marshal(items)
			require.NoError(t, err)
		})
	}
}

func TestLedgerSellChecksStockUnderOneLoad(t *testing.T) {
	ctx := context.Background()
	l := New(NewCSVBackend(filepath.Join(t.TempDir(), "inventory.csv")))

	it, err := l.Stock(ctx, gum(10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Sell(ctx, it.ID, 3)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err == nil {
			continue
		}
		failed++
		assert.ErrorIs(t, err, apperr.Validation)
		assert.Contains(t, err.Error(), "not enough quantity to sell (have 1, want 3)")
	}
	assert.Equal(t, 1, failed)

	items, err := l.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}
