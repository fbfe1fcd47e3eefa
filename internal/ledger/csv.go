package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"candybowl/internal/apperr"
	"candybowl/internal/fsutil"
)

const csvFileMode = 0o644

// CSVBackend stores the ledger as a comma-separated file with a header row.
type CSVBackend struct {
	path string
}

func NewCSVBackend(path string) *CSVBackend {
	return &CSVBackend{path: path}
}

func (b *CSVBackend) Path() string { return b.path }

// Load parses the file. A missing file is created holding only the header.
func (b *CSVBackend) Load(_ context.Context) ([]Item, error) {
	const op = "ledger.csv.load"
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := b.write(nil); err != nil {
			return nil, err
		}
		return []Item{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, op, err)
	}
	items, err := decodeCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, op, fmt.Errorf("%s: %w", b.path, err))
	}
	return items, nil
}

func (b *CSVBackend) Save(_ context.Context, items []Item) error {
	return b.write(items)
}

func (b *CSVBackend) write(items []Item) error {
	data, err := encodeCSV(items)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "ledger.csv.save", err)
	}
	if err := fsutil.WriteFileAtomic(b.path, data, csvFileMode); err != nil {
		return apperr.Wrap(apperr.KindStorage, "ledger.csv.save", err)
	}
	return nil
}

func encodeCSV(items []Item) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := w.Write([]string{
			it.ID,
			it.Name,
			it.Link,
			strconv.Itoa(it.Quantity),
			formatUSD(it.UnitCostUSD),
			formatUSD(it.UnitSellPriceUSD),
			it.Description,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCSV(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range Columns {
		if _, ok := pos[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	items := []Item{}
	seen := map[string]struct{}{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		it, err := decodeRow(rec, pos)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("line %d: duplicate item_id %q", line, it.ID)
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	return items, nil
}

func decodeRow(rec []string, pos map[string]int) (Item, error) {
	field := func(col string) string { return rec[pos[col]] }

	it := Item{
		ID:          strings.TrimSpace(field("item_id")),
		Name:        field("item_name"),
		Link:        field("link"),
		Description: field("description"),
	}
	if it.ID == "" {
		return Item{}, errors.New("empty item_id")
	}

	qty, err := parseQuantity(field("quantity"))
	if err != nil {
		return Item{}, err
	}
	it.Quantity = qty

	if it.UnitCostUSD, err = parseUSD("unit_cost_usd", field("unit_cost_usd")); err != nil {
		return Item{}, err
	}
	if it.UnitSellPriceUSD, err = parseUSD("unit_sell_price_usd", field("unit_sell_price_usd")); err != nil {
		return Item{}, err
	}
	return it, nil
}

// parseQuantity also accepts integral floats such as "3.0", which spreadsheet
// tools tend to write back.
func parseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative quantity %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative quantity %q", s)
	}
	return int(f), nil
}

func parseUSD(col, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", col, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite %s %q", col, s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative %s %q", col, s)
	}
	return f, nil
}

// formatUSD writes amounts the way pandas does: shortest round-trip digits
// with at least one decimal place.
func formatUSD(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
