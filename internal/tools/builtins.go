package tools

import (
	"context"
	"encoding/json"
	"errors"

	"candybowl/internal/ledger"
	"candybowl/internal/marketplace"
	"candybowl/internal/notes"
)

// Deps are the stores and collaborators the tools close over. A nil
// collaborator leaves its tools unregistered.
type Deps struct {
	Ledger      *ledger.Ledger
	Notes       *notes.Log
	Bank        *notes.Log
	Search      marketplace.Searcher
	ResultLimit int
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(kind, description string) map[string]any {
	return map[string]any{"type": kind, "description": description}
}

// RegisterShop registers every tool whose collaborator is present in deps.
func RegisterShop(reg *Registry, deps Deps) error {
	if deps.Ledger != nil {
		if err := registerLedgerTools(reg, deps.Ledger); err != nil {
			return err
		}
	}
	if deps.Notes != nil {
		if err := registerNoteTools(reg, deps.Notes); err != nil {
			return err
		}
	}
	if deps.Search != nil {
		limit := deps.ResultLimit
		if limit <= 0 {
			limit = marketplace.DefaultLimit
		}
		if err := reg.Register(ToolSpec{
			Name: SearchProduct,
			Description: "Searches the marketplace for a product by name. Returns JSON {\"results\": [...]} where each result has " +
				"id, name, description, price_usd, url (a link to the item in the marketplace) and rating (average user rating).",
			Parameters: objectSchema(map[string]any{
				"name": prop("string", "The name of the product to search for."),
			}, "name"),
			Required: []string{"name"},
		}, searchProductHandler(deps.Search, limit)); err != nil {
			return err
		}
	}
	if deps.Bank != nil {
		if err := reg.Register(ToolSpec{
			Name:        GetBalance,
			Description: "Retrieves the current account balance: the amount of money in the bank account in US dollars.",
			Parameters:  objectSchema(map[string]any{}),
		}, readLogHandler(deps.Bank)); err != nil {
			return err
		}
	}
	return nil
}

func registerLedgerTools(reg *Registry, l *ledger.Ledger) error {
	if err := reg.Register(ToolSpec{
		Name: GetInventory,
		Description: "Retrieves all items currently in the inventory as a JSON array. Each item has item_id, item_name, " +
			"link (where to purchase it), quantity (units in stock), unit_cost_usd (purchase cost per unit), " +
			"unit_sell_price_usd (listed price per unit) and description.",
		Parameters: objectSchema(map[string]any{}),
	}, func(ctx context.Context, _ Request) (string, error) {
		items, err := l.Items(ctx)
		if err != nil {
			return "", err
		}
		if items == nil {
			items = []ledger.Item{}
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}); err != nil {
		return err
	}

	if err := reg.Register(ToolSpec{
		Name: StockItem,
		Description: "Adds units to the inventory. Increases the quantity of an item that already exists " +
			"(matched by link, then by name) or adds a new entry if it does not.",
		Parameters: objectSchema(map[string]any{
			"item_name":           prop("string", "The name of the item."),
			"link":                prop("string", "The link to the item."),
			"quantity":            prop("integer", "The number of units to add."),
			"unit_cost_usd":       prop("number", "The purchase cost of one unit in USD."),
			"unit_sell_price_usd": prop("number", "The price of a single unit in USD."),
			"description":         prop("string", "A description of the item."),
		}, "item_name", "link", "quantity", "unit_cost_usd", "unit_sell_price_usd"),
		Required: []string{"item_name", "link", "quantity", "unit_cost_usd", "unit_sell_price_usd"},
	}, func(ctx context.Context, req Request) (string, error) {
		var in ledger.StockInput
		var err error
		if in.Name, err = getString(req, "item_name"); err != nil {
			return "", err
		}
		if in.Link, err = getString(req, "link"); err != nil {
			return "", err
		}
		if in.Quantity, err = getInt(req, "quantity"); err != nil {
			return "", err
		}
		if in.UnitCostUSD, err = getNumber(req, "unit_cost_usd"); err != nil {
			return "", err
		}
		if in.SellPriceUSD, err = getNumber(req, "unit_sell_price_usd"); err != nil {
			return "", err
		}
		if in.Description, err = getOptionalString(req, "description"); err != nil {
			return "", err
		}
		if _, err := l.Stock(ctx, in); err != nil {
			return "", err
		}
		return "Item added successfully.", nil
	}); err != nil {
		return err
	}

	return reg.Register(ToolSpec{
		Name:        SetPrice,
		Description: "Sets a new sell price for an item in the inventory.",
		Parameters: objectSchema(map[string]any{
			"item_id":       prop("string", "The unique identifier for the item."),
			"new_price_usd": prop("number", "The new price of one unit in USD."),
		}, "item_id", "new_price_usd"),
		Required: []string{"item_id", "new_price_usd"},
	}, func(ctx context.Context, req Request) (string, error) {
		id, err := getString(req, "item_id")
		if err != nil {
			return "", err
		}
		price, err := getNumber(req, "new_price_usd")
		if err != nil {
			return "", err
		}
		if _, err := l.SetPrice(ctx, id, price); err != nil {
			return "", err
		}
		return "Price updated successfully.", nil
	})
}

func registerNoteTools(reg *Registry, log *notes.Log) error {
	if err := reg.Register(ToolSpec{
		Name:        GetNotes,
		Description: "Retrieves the current notes.",
		Parameters:  objectSchema(map[string]any{}),
	}, readLogHandler(log)); err != nil {
		return err
	}
	return reg.Register(ToolSpec{
		Name:        AddNote,
		Description: "Adds a new note.",
		Parameters: objectSchema(map[string]any{
			"note": prop("string", "The note to add."),
		}, "note"),
		Required: []string{"note"},
	}, func(_ context.Context, req Request) (string, error) {
		note, err := getString(req, "note")
		if err != nil {
			return "", err
		}
		if err := log.Append(note); err != nil {
			return "", err
		}
		return "Note added successfully.", nil
	})
}

func readLogHandler(log *notes.Log) Handler {
	return func(_ context.Context, _ Request) (string, error) {
		return log.Read()
	}
}

type searchResults struct {
	Results []marketplace.Product `json:"results"`
}

func searchProductHandler(s marketplace.Searcher, limit int) Handler {
	return func(ctx context.Context, req Request) (string, error) {
		name, err := getString(req, "name")
		if err != nil {
			return "", err
		}
		products, err := s.Search(ctx, name, limit)
		if err != nil {
			return "", err
		}
		if products == nil {
			products = []marketplace.Product{}
		}
		raw, err := json.Marshal(searchResults{Results: products})
		if err != nil {
			return "", errors.New("encode search results: " + err.Error())
		}
		return string(raw), nil
	}
}
