// Package ledger keeps the shop's inventory: one row per stocked product,
// persisted as a whole snapshot on every mutation.
package ledger

// Columns is the canonical column order of the ledger file.
var Columns = []string{
	"item_id",
	"item_name",
	"link",
	"quantity",
	"unit_cost_usd",
	"unit_sell_price_usd",
	"description",
}

// Item is one ledger row. Field order matches Columns and is also the key
// order of the JSON snapshot handed to the model.
type Item struct {
	ID               string  `json:"item_id"`
	Name             string  `json:"item_name"`
	Link             string  `json:"link"`
	Quantity         int     `json:"quantity"`
	UnitCostUSD      float64 `json:"unit_cost_usd"`
	UnitSellPriceUSD float64 `json:"unit_sell_price_usd"`
	Description      string  `json:"description"`
}

// StockInput describes units being added to the bowl.
type StockInput struct {
	Name         string
	Link         string
	Quantity     int
	UnitCostUSD  float64
	SellPriceUSD float64
	Description  string
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// matchStock finds the row a restock should add to. A link match wins over a
// name match; among name matches the earliest row wins. Empty strings never
// match.
func matchStock(items []Item, name, link string) int {
	if link != "" {
		for i := range items {
			if items[i].Link == link {
				return i
			}
		}
	}
	if name != "" {
		for i := range items {
			if items[i].Name == name {
				return i
			}
		}
	}
	return -1
}

func prune(items []Item) []Item {
	kept := items[:0]
	for _, it := range items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	return kept
}
