package cli

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "candybowl.yaml"

// NewRootCmd assembles the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "candybowl",
		Short: "An AI shopkeeper for an office candy bowl",
		Long: `candybowl lets a hosted model run a small candy bowl: it takes product
requests, haggles over prices, and plans restocks against a local ledger.

Chats are served over HTTP (serve) and Discord (bot). The ledger, notes and
bank commands are for the human operator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "Config file (.yaml, .yml or .json); defaults apply when missing")

	cmd.AddCommand(NewServeCmd(opts))
	cmd.AddCommand(NewBotCmd(opts))
	cmd.AddCommand(NewLedgerCmd(opts))
	cmd.AddCommand(NewNotesCmd(opts))
	cmd.AddCommand(NewBankCmd(opts))

	return cmd
}
