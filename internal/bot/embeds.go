package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/robert-mccausland/wordle-tracker/internal/summary"
)

const (
	embedColor      = 0x00FF00
	embedAuthorName = "Wordle Tracker"
	noGamesMessage  = "No games found in the current channel 😥"
	unknownUserName = "Unknown User"
)

var rankMedals = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

func (h *Handler) summaryEmbed(ctx context.Context, guildID string, summaries []summary.PlayerSummary, opts summary.Options) *discordgo.MessageEmbed {
	title := "🏆 Top Autists 🏆"
	if opts.Days != nil {
		title += fmt.Sprintf(" | last %d days", *opts.Days)
	}
	if opts.Ranking != nil {
		title += fmt.Sprintf(" | ranked by %s", opts.Ranking)
	}

	embed := newEmbed(title)
	for rank, row := range summaries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("\u200b\n%s %s", rankSymbol(rank+1), h.displayName(ctx, guildID, row.UserID)),
			Value: fmt.Sprintf("Wins:** %d/%d** | Avg:**  %.1f** | Best:** %d**",
				row.Wins, row.Games, row.Average, row.Best),
		})
	}

	if len(embed.Fields) == 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "\u200b\n", Value: noGamesMessage})
	}
	return embed
}

func (h *Handler) dailyEmbed(ctx context.Context, guildID string, gameNumber int, results []summary.DailyResult) *discordgo.MessageEmbed {
	embed := newEmbed(fmt.Sprintf("🏆 Game %d Results 🏆", gameNumber))
	for rank, row := range results {
		guesses := fmt.Sprintf("%d", row.Guesses)
		if !row.IsWin {
			guesses = "X"
		}

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("\u200b\n%s %s", rankSymbol(rank+1), h.displayName(ctx, guildID, row.UserID)),
			Value: fmt.Sprintf("Guesses: %s", guesses),
		})
	}

	if len(embed.Fields) == 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "\u200b\n", Value: noGamesMessage})
	}
	return embed
}

func newEmbed(title string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  embedColor,
		Author: &discordgo.MessageEmbedAuthor{Name: embedAuthorName},
	}
}

func rankSymbol(rank int) string {
	if medal, ok := rankMedals[rank]; ok {
		return medal
	}
	return fmt.Sprintf("%d.", rank)
}

func (h *Handler) displayName(ctx context.Context, guildID string, userID int64) string {
	member, err := h.session.GuildMember(guildID, formatSnowflake(userID), discordgo.WithContext(ctx))
	if err != nil || member == nil || member.User == nil {
		return unknownUserName
	}

	name := member.Nick
	if name == "" {
		name = member.User.GlobalName
	}
	if name == "" {
		name = member.User.Username
	}
	return truncateName(name, h.usernameMaxLength)
}

func truncateName(name string, maxLength int) string {
	runes := []rune(name)
	if len(runes) <= maxLength {
		return name
	}
	return string(runes[:maxLength-1]) + "…"
}
