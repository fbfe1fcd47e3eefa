package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"candybowl/internal/config"
	"candybowl/internal/ledger"

	"github.com/spf13/cobra"
)

// NewLedgerCmd creates the 'ledger' command group used by the operator to
// keep the inventory in step with the physical bowl.
func NewLedgerCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ledger",
		Aliases: []string{"inventory"},
		Short:   "Inspect and edit the inventory ledger",
	}

	cmd.AddCommand(newLedgerListCmd(opts))
	cmd.AddCommand(newLedgerStockCmd(opts))
	cmd.AddCommand(newLedgerPriceCmd(opts))
	cmd.AddCommand(newLedgerAdjustCmd(opts, "sell", "Record units sold from the bowl", -1))
	cmd.AddCommand(newLedgerAdjustCmd(opts, "buy", "Record units added to an existing row", 1))

	return cmd
}

// withLedger opens the configured backend for the duration of fn.
func withLedger(opts *Options, fn func(*ledger.Ledger) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStores(cfg, newLogger(config.LogConfig{Level: "error"}, io.Discard))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st.ledger)
}

func newLedgerListCmd(opts *Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List ledger rows",
		Example: `  candybowl ledger list
  candybowl ledger list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(opts, func(l *ledger.Ledger) error {
				items, err := l.Items(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeItemsJSON(cmd.OutOrStdout(), items)
				}
				return writeItemsTable(cmd.OutOrStdout(), items)
			})
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func writeItemsJSON(w io.Writer, items []ledger.Item) error {
	if items == nil {
		items = []ledger.Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func writeItemsTable(w io.Writer, items []ledger.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Ledger is empty.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tCOST\tPRICE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", it.ID, it.Name, it.Quantity, it.UnitCostUSD, it.UnitSellPriceUSD)
	}
	return tw.Flush()
}

func newLedgerStockCmd(opts *Options) *cobra.Command {
	var in ledger.StockInput

	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Add units to the bowl, merging with a matching row",
		Example: `  candybowl ledger stock --name "Sour Straws" --link https://example.com/p/1 \
      --quantity 24 --cost 0.25 --price 0.75`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(opts, func(l *ledger.Ledger) error {
				item, err := l.Stock(cmd.Context(), in)
				if err != nil {
					return err
				}
				return printItem(cmd.OutOrStdout(), "Stocked", item)
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Product name")
	cmd.Flags().StringVar(&in.Link, "link", "", "Product URL")
	cmd.Flags().IntVarP(&in.Quantity, "quantity", "q", 0, "Units added")
	cmd.Flags().Float64Var(&in.UnitCostUSD, "cost", 0, "Unit cost in USD")
	cmd.Flags().Float64Var(&in.SellPriceUSD, "price", 0, "Unit sell price in USD")
	cmd.Flags().StringVar(&in.Description, "description", "", "Short description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("quantity")

	return cmd
}

func newLedgerPriceCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "price ITEM_ID PRICE",
		Short:   "Set the sell price of a row",
		Example: `  candybowl ledger price 7d0c6c1e-5f7b-4d1a-9e43-0f6f1f2b8a10 1.25`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid price %q", args[1])
			}
			return withLedger(opts, func(l *ledger.Ledger) error {
				item, err := l.SetPrice(cmd.Context(), args[0], price)
				if err != nil {
					return err
				}
				return printItem(cmd.OutOrStdout(), "Updated", item)
			})
		},
	}
}

func newLedgerAdjustCmd(opts *Options, use, short string, sign int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ITEM_ID COUNT",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count %q", args[1])
			}
			return withLedger(opts, func(l *ledger.Ledger) error {
				item, err := adjust(cmd.Context(), l, args[0], n, sign)
				if err != nil {
					return err
				}
				return printItem(cmd.OutOrStdout(), "Updated", item)
			})
		},
	}
}

func adjust(ctx context.Context, l *ledger.Ledger, id string, n, sign int) (ledger.Item, error) {
	if sign < 0 {
		return l.Sell(ctx, id, n)
	}
	return l.Buy(ctx, id, n)
}

func printItem(w io.Writer, verb string, it ledger.Item) error {
	_, err := fmt.Fprintf(w, "%s %s (%s): quantity %d, price $%.2f\n", verb, it.Name, it.ID, it.Quantity, it.UnitSellPriceUSD)
	return err
}
