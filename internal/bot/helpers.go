package bot

import (
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/robert-mccausland/wordle-tracker/internal/ingest"
)

func parseSnowflake(id string) (int64, bool) {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func formatSnowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ingestMessage converts a gateway or REST message into the engine's shape.
// GuildID may come back 0: REST history responses omit the guild, and the
// caller fills it in.
func ingestMessage(message *discordgo.Message) (ingest.Message, bool) {
	if message == nil || message.Author == nil {
		return ingest.Message{}, false
	}

	id, ok := parseSnowflake(message.ID)
	if !ok {
		return ingest.Message{}, false
	}
	channelID, ok := parseSnowflake(message.ChannelID)
	if !ok {
		return ingest.Message{}, false
	}
	authorID, ok := parseSnowflake(message.Author.ID)
	if !ok {
		return ingest.Message{}, false
	}

	guildID := int64(0)
	if message.GuildID != "" {
		guildID, ok = parseSnowflake(message.GuildID)
		if !ok {
			return ingest.Message{}, false
		}
	}

	postedAt := message.Timestamp
	if postedAt.IsZero() {
		// Edit events carry no creation time, but the snowflake does.
		if created, err := discordgo.SnowflakeTimestamp(message.ID); err == nil {
			postedAt = created
		}
	}

	return ingest.Message{
		ID:        id,
		ChannelID: channelID,
		GuildID:   guildID,
		AuthorID:  authorID,
		Content:   message.Content,
		PostedAt:  postedAt,
	}, true
}
