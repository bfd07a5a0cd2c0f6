// internal/bot/handler.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/robert-mccausland/wordle-tracker/internal/ingest"
	"github.com/robert-mccausland/wordle-tracker/internal/ledger"
	"github.com/robert-mccausland/wordle-tracker/internal/scanner"
	"github.com/robert-mccausland/wordle-tracker/internal/summary"
	"github.com/robert-mccausland/wordle-tracker/internal/wordle"
)

const ingestTimeout = 30 * time.Second

type Config struct {
	Store      *ledger.Store
	Engine     *ingest.Engine
	Scanner    *scanner.Scanner
	Aggregator *summary.Aggregator
	Logger     *zap.Logger
	// ChannelName is the channel name scanned and ingested by default;
	// explicitly tracked channels are covered regardless of name.
	ChannelName       string
	SummaryLimit      int
	UsernameMaxLength int
	Location          *time.Location
	Clock             func() time.Time
}

// Handler wires Discord gateway events and slash commands to the tracker.
type Handler struct {
	store      *ledger.Store
	engine     *ingest.Engine
	scanner    *scanner.Scanner
	aggregator *summary.Aggregator
	logger     *zap.Logger

	channelName       string
	summaryLimit      int
	usernameMaxLength int
	location          *time.Location
	clock             func() time.Time

	session *discordgo.Session
	botID   string

	readyOnce sync.Once
	ready     chan struct{}
}

func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Store == nil || cfg.Engine == nil || cfg.Scanner == nil || cfg.Aggregator == nil {
		return nil, errors.New("store, engine, scanner and aggregator are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	channelName := cfg.ChannelName
	if channelName == "" {
		channelName = "wordle"
	}
	summaryLimit := cfg.SummaryLimit
	if summaryLimit <= 0 {
		summaryLimit = 5
	}
	usernameMaxLength := cfg.UsernameMaxLength
	if usernameMaxLength <= 0 {
		usernameMaxLength = 12
	}

	return &Handler{
		store:             cfg.Store,
		engine:            cfg.Engine,
		scanner:           cfg.Scanner,
		aggregator:        cfg.Aggregator,
		logger:            logger,
		channelName:       channelName,
		summaryLimit:      summaryLimit,
		usernameMaxLength: usernameMaxLength,
		location:          location,
		clock:             clock,
		ready:             make(chan struct{}),
	}, nil
}

func (h *Handler) SetSession(s *discordgo.Session) {
	h.session = s
	user, err := s.User("@me")
	if err != nil {
		h.logger.Error("getting bot user", zap.Error(err))
		return
	}
	h.botID = user.ID

	s.AddHandler(h.onReady)
	s.AddHandler(h.handleInteraction)
}

// Ready is closed once the gateway session has finished connecting.
func (h *Handler) Ready() <-chan struct{} {
	return h.ready
}

func (h *Handler) onReady(s *discordgo.Session, r *discordgo.Ready) {
	h.logger.Info("discord session ready", zap.Int("guilds", len(r.Guilds)))
	h.readyOnce.Do(func() { close(h.ready) })
}

func (h *Handler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == h.botID {
		return
	}
	go h.handleMessageEvent(m.Message)
}

func (h *Handler) OnMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	// Embed-only updates carry no author; there is nothing to reparse.
	if m.Author == nil || m.Author.ID == h.botID {
		return
	}
	go h.handleMessageEvent(m.Message)
}

func (h *Handler) OnMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	messageID, ok := parseSnowflake(m.ID)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if err := h.engine.HandleMessageDelete(ctx, messageID); err != nil {
			h.logger.Error("handling message delete", zap.Int64("message_id", messageID), zap.Error(err))
		}
	}()
}

func (h *Handler) handleMessageEvent(message *discordgo.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if !h.isTracked(ctx, message.ChannelID) {
		return
	}

	msg, ok := ingestMessage(message)
	if !ok || msg.GuildID == 0 {
		return
	}

	if err := h.engine.HandleMessage(ctx, msg); err != nil {
		h.logger.Error("ingesting message", zap.Int64("message_id", msg.ID), zap.Error(err))
	}
}

func (h *Handler) isTracked(ctx context.Context, channelID string) bool {
	if name, ok := h.channelNameFor(channelID); ok && name == h.channelName {
		return true
	}

	id, ok := parseSnowflake(channelID)
	if !ok {
		return false
	}
	channel, err := h.store.GetChannel(ctx, id)
	if err != nil {
		h.logger.Error("looking up tracked channel", zap.String("channel_id", channelID), zap.Error(err))
		return false
	}
	return channel != nil
}

func (h *Handler) channelNameFor(channelID string) (string, bool) {
	if channel, err := h.session.State.Channel(channelID); err == nil {
		return channel.Name, true
	}
	channel, err := h.session.Channel(channelID)
	if err != nil {
		return "", false
	}
	return channel.Name, true
}

// ScanTrackedChannels catches up every tracked channel: channels matching the
// configured name in any connected guild, plus channels tracked explicitly by
// an admin. A failing channel is logged and skipped, never aborting the rest.
func (h *Handler) ScanTrackedChannels(ctx context.Context) {
	h.logger.Info("scanning tracked channels")

	scanned := map[int64]bool{}
	for _, guild := range h.session.State.Guilds {
		channels, err := h.session.GuildChannels(guild.ID, discordgo.WithContext(ctx))
		if err != nil {
			h.logger.Error("listing guild channels", zap.String("guild_id", guild.ID), zap.Error(err))
			continue
		}
		for _, channel := range channels {
			if channel.Type != discordgo.ChannelTypeGuildText || channel.Name != h.channelName {
				continue
			}
			if channelID, ok := parseSnowflake(channel.ID); ok {
				h.scanOne(ctx, channelID, scanned)
			}
		}
	}

	tracked, err := h.store.ListChannels(ctx)
	if err != nil {
		h.logger.Error("listing tracked channels", zap.Error(err))
		return
	}
	for _, channel := range tracked {
		h.scanOne(ctx, channel.ChannelID, scanned)
	}
}

func (h *Handler) scanOne(ctx context.Context, channelID int64, scanned map[int64]bool) {
	if scanned[channelID] {
		return
	}
	scanned[channelID] = true

	if _, err := h.scanner.ScanChannel(ctx, channelID); err != nil {
		h.logger.Error("scanning channel", zap.Int64("channel_id", channelID), zap.Error(err))
	}
}

// PostDailySummaries posts yesterday's results to every channel that asked
// for them.
func (h *Handler) PostDailySummaries(ctx context.Context) {
	h.logger.Info("daily summary running")

	yesterday := h.clock().In(h.location).AddDate(0, 0, -1)
	gameNumber, ok := wordle.PuzzleNumberForDay(yesterday)
	if !ok {
		return
	}

	channels, err := h.store.ListSummaryChannels(ctx)
	if err != nil {
		h.logger.Error("listing summary channels", zap.Error(err))
		return
	}

	for _, channel := range channels {
		results, err := h.aggregator.DailyResults(ctx, channel.ChannelID, gameNumber)
		if err != nil {
			h.logger.Error("building daily summary",
				zap.Int64("channel_id", channel.ChannelID), zap.Error(err))
			continue
		}

		embed := h.dailyEmbed(ctx, formatSnowflake(channel.GuildID), gameNumber, results)
		if _, err := h.session.ChannelMessageSendEmbed(formatSnowflake(channel.ChannelID), embed, discordgo.WithContext(ctx)); err != nil {
			h.logger.Error("posting daily summary",
				zap.Int64("guild_id", channel.GuildID),
				zap.Int64("channel_id", channel.ChannelID),
				zap.Error(err))
		}
	}

	h.logger.Info("daily summary finished")
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "wordle-summary":
		h.handleSummary(s, i)
	case "wordle-daily":
		h.handleDaily(s, i)
	case "wordle-admin":
		h.handleAdmin(s, i)
	}
}

// RegisterCommands registers the bot's slash commands.
func (h *Handler) RegisterCommands() error {
	manageServer := int64(discordgo.PermissionManageServer)
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "wordle-summary",
			Description: "Make a summary of wordle games posted in the current channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Number of days to limit the summary to",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ranking",
					Description: "How to rank the players",
					Choices:     rankingChoices(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "Number of players to include",
				},
			},
		},
		{
			Name:        "wordle-daily",
			Description: "Show the results posted for a single day's puzzle",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "game",
					Description: "Puzzle number, defaults to today's",
				},
			},
		},
		{
			Name:                     "wordle-admin",
			Description:              "Administer wordle tracking for this channel",
			DefaultMemberPermissions: &manageServer,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "track",
					Description: "Track this channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "daily-summary",
							Description: "Post yesterday's results every morning",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "untrack",
					Description: "Stop tracking this channel and forget its games",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "rescan",
					Description: "Rescan all the messages in this channel",
				},
			},
		},
	}

	for _, cmd := range commands {
		if _, err := h.session.ApplicationCommandCreate(h.botID, "", cmd); err != nil {
			return fmt.Errorf("creating %q command: %w", cmd.Name, err)
		}
	}

	h.logger.Info("slash commands registered")
	return nil
}

func rankingChoices() []*discordgo.ApplicationCommandOptionChoice {
	rankings := []summary.Ranking{
		summary.RankingGames,
		summary.RankingWins,
		summary.RankingAverage,
		summary.RankingBest,
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(rankings))
	for i, ranking := range rankings {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{
			Name:  ranking.String(),
			Value: ranking.String(),
		}
	}
	return choices
}
