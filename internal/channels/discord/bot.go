package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"candybowl/internal/apperr"
	"candybowl/internal/channels/chat"
	"candybowl/internal/config"
	"candybowl/internal/session"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMessage   = 2000
	threadArchiveMins   = 60
	defaultEventTimeout = 5 * time.Minute
)

// discordAPI is the slice of *discordgo.Session the bot calls.
type discordAPI interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

type command struct {
	mode        session.Mode
	description string
	greeting    func(user string) string
	threadName  func(user string) string
}

var commands = map[string]command{
	"request": {
		mode:        session.ModeRequest,
		description: "Make a request for the candy bowl.",
		greeting:    func(user string) string { return fmt.Sprintf("Hello, %s! What can I do for you?", user) },
		threadName:  func(user string) string { return "CandyBowl - " + user },
	},
	"haggle": {
		mode:        session.ModeHaggle,
		description: "Haggle over prices in the candy bowl.",
		greeting: func(user string) string {
			return fmt.Sprintf("Come on, %s! You're breaking my heart over here! I got six kids and a Subaru to feed!", user)
		},
		threadName: func(string) string { return "CandyBowl - Haggle" },
	},
	"restock": {
		mode:        session.ModeRestock,
		description: "Restock the candy bowl based on current market sentiment.",
		greeting:    func(string) string { return "Okay! Let me think on what I've learned..." },
		threadName:  func(string) string { return "CandyBowl - Restock" },
	},
}

// ApplicationCommands lists the slash commands in registration order.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, name := range []string{"request", "haggle", "restock"} {
		out = append(out, &discordgo.ApplicationCommand{Name: name, Description: commands[name].description})
	}
	return out
}

// Bot maps Discord threads onto chat sessions. Each slash command opens a
// public thread; messages in a known thread are relayed to its session.
type Bot struct {
	cfg       config.DiscordConfig
	chats     session.Chats
	gate      *chat.Gate
	logger    *slog.Logger
	session   *discordgo.Session
	closeOnce sync.Once

	mu      sync.RWMutex
	threads map[string]threadBinding
}

// threadBinding remembers the channel a thread was opened from; the
// allowlist is checked against that channel, not the thread.
type threadBinding struct {
	chatID   string
	parentID string
}

func New(cfg config.DiscordConfig, token string, chats session.Chats, logger *slog.Logger) (*Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	if chats == nil {
		return nil, errors.New("discord bot requires a chat backend")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	b := newBot(cfg, chats, logger)
	b.session = s
	s.AddHandler(b.onReady)
	s.AddHandler(b.onInteraction)
	s.AddHandler(b.onMessage)
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return b, nil
}

func newBot(cfg config.DiscordConfig, chats session.Chats, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.RateLimitPerMin
	if limit <= 0 {
		limit = 20
	}
	return &Bot{
		cfg:   cfg,
		chats: chats,
		gate: &chat.Gate{
			Allowlist:   chat.NewAllowlist(cfg.AllowUsers, cfg.AllowChannels),
			RateLimiter: chat.NewRateLimiter(limit, time.Minute),
		},
		logger:  logger.With("channel", "discord"),
		threads: make(map[string]threadBinding),
	}
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() error {
	var err error
	b.closeOnce.Do(func() { err = b.session.Close() })
	return err
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.registerCommands(s, r.User.ID)
	b.logger.Info("logged in and ready to receive commands", "user", r.User.Username)
}

func (b *Bot) registerCommands(api discordAPI, appID string) {
	if _, err := api.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, ApplicationCommands()); err != nil {
		b.logger.Error("failed to register slash commands", "error", err)
		return
	}
	b.logger.Info("slash commands synced", "guild_id", b.cfg.GuildID)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultEventTimeout)
	defer cancel()
	b.handleCommand(ctx, s, i.Interaction)
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultEventTimeout)
	defer cancel()
	b.handleMessage(ctx, s, m.Message, selfID)
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) respondEphemeral(api discordAPI, i *discordgo.Interaction, text string) {
	err := api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Warn("failed to respond to interaction", "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, api discordAPI, i *discordgo.Interaction) {
	name := i.ApplicationCommandData().Name
	cmd, ok := commands[name]
	if !ok {
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}
	logger := b.logger.With("command", name, "user", user.Username, "channel_id", i.ChannelID)

	ch, err := api.Channel(i.ChannelID)
	if err != nil || ch.Type != discordgo.ChannelTypeGuildText {
		logger.Warn("command used outside a guild text channel")
		b.respondEphemeral(api, i, "Commands can only be used in server text channels.")
		return
	}
	if err := b.gate.Admit(user.ID, i.ChannelID); err != nil {
		logger.Info("command rejected", "reason", err)
		b.respondEphemeral(api, i, gateMessage(err))
		return
	}

	if err := api.InteractionRespond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}); err != nil {
		logger.Error("failed to defer interaction", "error", err)
		return
	}

	if err := b.startThread(ctx, api, i, cmd, user.Username); err != nil {
		logger.Error("command failed", "error", err)
		if _, ferr := api.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Content: errorReply(err)}); ferr != nil {
			logger.Warn("failed to send error follow-up", "error", ferr)
		}
	}
}

func (b *Bot) startThread(ctx context.Context, api discordAPI, i *discordgo.Interaction, cmd command, username string) error {
	greeting, err := api.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Content: cmd.greeting(username)})
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "discord.followup", err)
	}
	thread, err := api.MessageThreadStartComplex(i.ChannelID, greeting.ID, &discordgo.ThreadStart{
		Name:                cmd.threadName(username),
		AutoArchiveDuration: threadArchiveMins,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "discord.thread", err)
	}

	started, err := b.chats.Start(ctx, cmd.mode)
	if err != nil {
		return err
	}
	if strings.TrimSpace(started.ChatID) == "" {
		return apperr.New(apperr.KindTransport, "discord.start", "Chat ID not found in response.")
	}
	if cmd.mode == session.ModeRestock && strings.TrimSpace(started.Response) == "" {
		return apperr.New(apperr.KindModel, "discord.start", "Response from the model is empty.")
	}

	b.mu.Lock()
	b.threads[thread.ID] = threadBinding{chatID: started.ChatID, parentID: i.ChannelID}
	b.mu.Unlock()
	b.logger.Info("thread bound to chat", "thread_id", thread.ID, "parent_id", i.ChannelID, "chat_id", started.ChatID, "mode", string(cmd.mode))

	if started.Response != "" {
		b.sendChunked(api, thread.ID, started.Response)
	}
	return nil
}

// ChatFor returns the chat bound to a thread.
func (b *Bot) ChatFor(threadID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	binding, ok := b.threads[threadID]
	return binding.chatID, ok
}

func (b *Bot) binding(threadID string) (threadBinding, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	binding, ok := b.threads[threadID]
	return binding, ok
}

func (b *Bot) handleMessage(ctx context.Context, api discordAPI, m *discordgo.Message, selfID string) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return
	}
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}
	bound, ok := b.binding(m.ChannelID)
	if !ok {
		return
	}
	chatID := bound.chatID
	logger := b.logger.With("thread_id", m.ChannelID, "chat_id", chatID, "user", m.Author.Username)

	if err := b.gate.Admit(m.Author.ID, bound.parentID); err != nil {
		logger.Info("message rejected", "reason", err)
		if errors.Is(err, chat.ErrRateLimited) {
			_, _ = api.ChannelMessageSend(m.ChannelID, gateMessage(err))
		}
		return
	}

	text := truncateRunes(m.Author.Username+": "+content, discordMaxMessage)
	reply, err := b.chats.Send(ctx, chatID, text)
	if err != nil {
		logger.Error("relay failed", "error", err)
		_, _ = api.ChannelMessageSend(m.ChannelID, errorReply(err))
		return
	}
	b.sendChunked(api, m.ChannelID, reply)
}

func gateMessage(err error) string {
	var rl *chat.RateLimitError
	if errors.As(err, &rl) {
		return fmt.Sprintf("Slow down! Try again in %ds.", rl.Seconds())
	}
	return "You are not allowed to use the candy bowl here."
}

func errorReply(err error) string {
	return truncateRunes("An error occurred: "+apperr.Message(err), discordMaxMessage)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func splitDiscordMessage(text string, maxLen int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{"(empty)"}
	}
	if maxLen <= 0 {
		maxLen = discordMaxMessage
	}

	var out []string
	remaining := trimmed
	for len(remaining) > maxLen {
		cut := strings.LastIndex(remaining[:maxLen], "\n")
		if cut <= 0 {
			cut = maxLen
			for cut > 0 && !utf8.RuneStart(remaining[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(remaining)
			}
		}
		part := strings.TrimSpace(remaining[:cut])
		if part != "" {
			out = append(out, part)
		}
		remaining = strings.TrimSpace(remaining[cut:])
	}
	if remaining != "" {
		out = append(out, remaining)
	}
	if len(out) == 0 {
		return []string{"(empty)"}
	}
	return out
}

func (b *Bot) sendChunked(api discordAPI, channelID, text string) {
	for _, part := range splitDiscordMessage(text, discordMaxMessage) {
		if _, err := api.ChannelMessageSend(channelID, part); err != nil {
			b.logger.Warn("failed to send message", "channel_id", channelID, "error", err)
			return
		}
	}
}
