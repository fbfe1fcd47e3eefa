package cli

import (
	"context"
	"fmt"
	"io"

	"candybowl/internal/channels/discord"
	httpchannel "candybowl/internal/channels/http"
	"candybowl/internal/session"

	"github.com/spf13/cobra"
)

// NewBotCmd creates the 'bot' command. With an API base URL it relays to a
// running 'serve' process; otherwise sessions run in this process.
func NewBotCmd(opts *Options) *cobra.Command {
	var apiBaseURL string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Discord bot",
		Long: `Connect to Discord, register the /request, /haggle and /restock slash
commands, and relay thread messages to chat sessions.

The bot token is read from DISCORD_BOT_TOKEN (or discord.token_env).`,
		Example: `  candybowl bot
  candybowl bot --api-base-url http://127.0.0.1:5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), opts, apiBaseURL, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&apiBaseURL, "api-base-url", "", "Relay to a candybowl server at this URL (defaults to API_BASE_URL)")

	return cmd
}

func runBot(ctx context.Context, opts *Options, apiBaseURL string, logOut io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, logOut)

	token, err := cfg.DiscordToken()
	if err != nil {
		return err
	}
	if apiBaseURL == "" {
		apiBaseURL = cfg.APIBaseURL()
	}

	var chats session.Chats
	if apiBaseURL != "" {
		logger.Info("relaying chats to server", "api_base_url", apiBaseURL)
		chats = httpchannel.NewClient(apiBaseURL, nil)
	} else {
		svc, err := newService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				logger.Warn("close service", "error", err)
			}
		}()
		chats = svc.manager
	}

	bot, err := discord.New(cfg.Discord, token, chats, logger)
	if err != nil {
		return err
	}
	if err := bot.Start(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer func() {
		if err := bot.Stop(); err != nil {
			logger.Warn("close discord session", "error", err)
		}
	}()

	logger.Info("discord bot running")
	<-ctx.Done()
	return nil
}
