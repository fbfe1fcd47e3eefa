package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"candybowl/internal/config"
	"candybowl/internal/notes"

	"github.com/spf13/cobra"
)

// NewNotesCmd creates the 'notes' command group over the model's notes log.
func NewNotesCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Read or edit the notes the model keeps between chats",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the notes log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNotes(opts, func(log, _ *notes.Log) error {
				return printLog(cmd.OutOrStdout(), log)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "add TEXT...",
		Short:   "Append one line to the notes log",
		Example: `  candybowl notes add "Jamie asked for sour straws at 75 cents"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNotes(opts, func(log, _ *notes.Log) error {
				if err := log.Append(strings.Join(args, " ")); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Note added.")
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the notes log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNotes(opts, func(log, _ *notes.Log) error {
				if err := log.Clear(); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Notes cleared.")
				return err
			})
		},
	})

	return cmd
}

// NewBankCmd creates the 'bank' command group. The balance file is what the
// get_balance tool reports.
func NewBankCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Read or record the shop's bank balance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the recorded balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNotes(opts, func(_, bank *notes.Log) error {
				return printLog(cmd.OutOrStdout(), bank)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "set AMOUNT",
		Short:   "Record the balance in USD",
		Example: `  candybowl bank set 87.50`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(args[0]), "$"), 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			return withNotes(opts, func(_, bank *notes.Log) error {
				if err := bank.Set(strconv.FormatFloat(amount, 'f', 2, 64) + "\n"); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Balance set to $%.2f.\n", amount)
				return err
			})
		},
	})

	return cmd
}

func withNotes(opts *Options, fn func(log, bank *notes.Log) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	return fn(notesLog(cfg), bankLog(cfg))
}

func notesLog(cfg config.Config) *notes.Log {
	return notes.New(cfg.Path(cfg.Data.NotesFile))
}

func bankLog(cfg config.Config) *notes.Log {
	return notes.NewWithPlaceholder(cfg.Path(cfg.Data.BankFile), bankMissingText)
}

func printLog(w io.Writer, log *notes.Log) error {
	text, err := log.Read()
	if err != nil {
		return err
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = io.WriteString(w, text)
	return err
}
