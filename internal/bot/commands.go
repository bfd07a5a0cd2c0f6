package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/robert-mccausland/wordle-tracker/internal/summary"
	"github.com/robert-mccausland/wordle-tracker/internal/wordle"
)

const (
	commandTimeout = time.Minute
	// A full rescan of a busy channel can take a while under rate limiting,
	// but must finish inside the interaction token's lifetime.
	rescanTimeout = 10 * time.Minute
)

func (h *Handler) handleSummary(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	channelID, ok := parseSnowflake(i.ChannelID)
	if !ok {
		return
	}

	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	opts := summary.Options{Limit: h.summaryLimit}
	for _, option := range i.ApplicationCommandData().Options {
		switch option.Name {
		case "days":
			days := int(option.IntValue())
			if days > 0 {
				opts.Days = &days
			}
		case "ranking":
			if ranking, ok := summary.ParseRanking(option.StringValue()); ok {
				opts.Ranking = &ranking
			}
		case "limit":
			if limit := int(option.IntValue()); limit > 0 {
				opts.Limit = limit
			}
		}
	}

	summaries, err := h.aggregator.Summary(ctx, channelID, opts)
	if err != nil {
		h.logger.Error("building summary", zap.Int64("channel_id", channelID), zap.Error(err))
		h.editContent(s, i, "Something went wrong :(")
		return
	}

	h.editEmbed(s, i, h.summaryEmbed(ctx, i.GuildID, summaries, opts))
}

func (h *Handler) handleDaily(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	channelID, ok := parseSnowflake(i.ChannelID)
	if !ok {
		return
	}

	if err := h.deferResponse(s, i, false); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	gameNumber, ok := wordle.PuzzleNumberForDay(h.clock().In(h.location))
	for _, option := range i.ApplicationCommandData().Options {
		if option.Name == "game" {
			gameNumber = int(option.IntValue())
			ok = gameNumber > 0
		}
	}
	if !ok {
		h.editContent(s, i, "That's not a valid puzzle number.")
		return
	}

	results, err := h.aggregator.DailyResults(ctx, channelID, gameNumber)
	if err != nil {
		h.logger.Error("building daily results", zap.Int64("channel_id", channelID), zap.Error(err))
		h.editContent(s, i, "Something went wrong :(")
		return
	}

	h.editEmbed(s, i, h.dailyEmbed(ctx, i.GuildID, gameNumber, results))
}

func (h *Handler) handleAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	channelID, ok := parseSnowflake(i.ChannelID)
	if !ok {
		return
	}
	guildID, ok := parseSnowflake(i.GuildID)
	if !ok {
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	if err := h.deferResponse(s, i, true); err != nil {
		return
	}

	switch sub.Name {
	case "track":
		h.handleTrack(s, i, channelID, guildID, sub.Options)
	case "untrack":
		h.handleUntrack(s, i, channelID)
	case "rescan":
		h.handleRescan(s, i, channelID)
	}
}

func (h *Handler) handleTrack(s *discordgo.Session, i *discordgo.InteractionCreate, channelID, guildID int64, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := h.store.EnsureChannel(ctx, channelID, guildID); err != nil {
		h.logger.Error("tracking channel", zap.Int64("channel_id", channelID), zap.Error(err))
		h.editContent(s, i, "Something went wrong :(")
		return
	}

	for _, option := range options {
		if option.Name == "daily-summary" {
			if _, err := h.store.SetDailySummary(ctx, channelID, option.BoolValue()); err != nil {
				h.logger.Error("setting daily summary flag", zap.Int64("channel_id", channelID), zap.Error(err))
				h.editContent(s, i, "Something went wrong :(")
				return
			}
		}
	}

	h.editContent(s, i, "Channel is now tracked!")
}

func (h *Handler) handleUntrack(s *discordgo.Session, i *discordgo.InteractionCreate, channelID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	removed, err := h.store.RemoveChannel(ctx, channelID)
	if err != nil {
		h.logger.Error("untracking channel", zap.Int64("channel_id", channelID), zap.Error(err))
		h.editContent(s, i, "Something went wrong :(")
		return
	}

	if removed {
		h.editContent(s, i, "Channel untracked and its games forgotten.")
	} else {
		h.editContent(s, i, "This channel was not tracked.")
	}
}

func (h *Handler) handleRescan(s *discordgo.Session, i *discordgo.InteractionCreate, channelID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), rescanTimeout)
	defer cancel()

	report, err := h.scanner.RescanChannel(ctx, channelID)
	if err != nil {
		h.logger.Error("rescanning channel", zap.Int64("channel_id", channelID), zap.Error(err))
		h.editContent(s, i, "Something went wrong :(")
		return
	}

	h.editContent(s, i, fmt.Sprintf(
		"Rescanning finished! Looked at %d messages and removed %d stale games.",
		report.Processed, report.Reconciled))
}

func (h *Handler) deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		response.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}

	if err := s.InteractionRespond(i.Interaction, response); err != nil {
		h.logger.Error("responding to interaction", zap.Error(err))
		return err
	}
	return nil
}

func (h *Handler) editContent(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		h.logger.Error("editing interaction response", zap.Error(err))
	}
}

func (h *Handler) editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		h.logger.Error("editing interaction response", zap.Error(err))
	}
}
