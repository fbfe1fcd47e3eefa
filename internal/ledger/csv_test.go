package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"candybowl/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "item_id,item_name,link,quantity,unit_cost_usd,unit_sell_price_usd,description\n"

func TestCSVBackendInitializesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "inventory.csv")
	b := NewCSVBackend(path)

	items, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, header, string(raw))
}

func TestCSVBackendRoundTripIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	content := header +
		"b-2,\"Taffy, salt water\",http://x/taffy,4,0.25,1.5,\"chewy \"\"classic\"\"\"\n" +
		"a-1,gum,http://x/gum,10,1.0,2.0,mint\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	b := NewCSVBackend(path)
	ctx := context.Background()
	items, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Taffy, salt water", items[0].Name)
	assert.Equal(t, `chewy "classic"`, items[0].Description)
	assert.Equal(t, "a-1", items[1].ID)

	require.NoError(t, b.Save(ctx, items))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(raw))
}

func TestCSVBackendAcceptsReorderedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	content := "description,quantity,item_id,item_name,link,unit_sell_price_usd,unit_cost_usd\n" +
		"mint,3.0,a-1,gum,http://x/gum,2.0,1.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	items, err := NewCSVBackend(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, Item{ID: "a-1", Name: "gum", Link: "http://x/gum", Quantity: 3, UnitCostUSD: 1, UnitSellPriceUSD: 2, Description: "mint"}, items[0])
}

func TestFormatUSDMatchesPandas(t *testing.T) {
	cases := map[float64]string{
		0:      "0.0",
		2:      "2.0",
		1.5:    "1.5",
		0.25:   "0.25",
		19.99:  "19.99",
		1200:   "1200.0",
		0.1234: "0.1234",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatUSD(in), "formatUSD(%v)", in)
	}
}

func TestCSVBackendIntegralPricesKeepDecimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	b := NewCSVBackend(path)
	ctx := context.Background()
	require.NoError(t, b.Save(ctx, []Item{{ID: "a-1", Name: "gum", Quantity: 3, UnitCostUSD: 1, UnitSellPriceUSD: 2}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, header+"a-1,gum,,3,1.0,2.0,\n", string(raw))
}

func TestCSVBackendMalformedContent(t *testing.T) {
	cases := map[string]string{
		"missing column":   "item_id,item_name\n",
		"bad quantity":     header + "a,gum,l,lots,1,2,d\n",
		"negative qty":     header + "a,gum,l,-1,1,2,d\n",
		"bad price":        header + "a,gum,l,1,one,2,d\n",
		"nan price":        header + "a,gum,l,1,1,NaN,d\n",
		"infinite cost":    header + "a,gum,l,1,+Inf,2,d\n",
		"short row":        header + "a,gum,l\n",
		"empty id":         header + ",gum,l,1,1,2,d\n",
		"duplicate id":     header + "a,gum,l,1,1,2,d\na,taffy,m,1,1,2,d\n",
		"empty file":       "",
		"unbalanced quote": header + "a,\"gum,l,1,1,2,d\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "inventory.csv")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := NewCSVBackend(path).Load(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.Storage)
			assert.True(t, strings.Contains(err.Error(), path))
		})
	}
}
