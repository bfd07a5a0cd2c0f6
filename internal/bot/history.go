package bot

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/robert-mccausland/wordle-tracker/internal/ingest"
)

// ChannelHistory adapts the Discord REST API to the scanner's paged history
// contract. Discord rate limits these calls; discordgo blocks and retries
// internally, which the scanner tolerates.
type ChannelHistory struct {
	session *discordgo.Session
}

func NewChannelHistory(session *discordgo.Session) *ChannelHistory {
	return &ChannelHistory{session: session}
}

func (c *ChannelHistory) FetchHistory(ctx context.Context, channelID, afterID int64, limit int) ([]ingest.Message, error) {
	after := afterID
	for {
		messages, err := c.session.ChannelMessages(
			formatSnowflake(channelID), limit, "", formatSnowflake(after), "",
			discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if len(messages) == 0 {
			return nil, nil
		}

		guildID, err := c.guildID(channelID)
		if err != nil {
			return nil, fmt.Errorf("resolving guild for channel %d: %w", channelID, err)
		}

		page := make([]ingest.Message, 0, len(messages))
		advanced := false
		for _, message := range messages {
			if id, ok := parseSnowflake(message.ID); ok && id > after {
				after = id
				advanced = true
			}
			msg, ok := ingestMessage(message)
			if !ok {
				continue
			}
			if msg.GuildID == 0 {
				msg.GuildID = guildID
			}
			page = append(page, msg)
		}

		if len(page) > 0 {
			// The REST API pages newest-first; the scanner wants oldest-first.
			sort.Slice(page, func(i, j int) bool { return page[i].ID < page[j].ID })
			return page, nil
		}
		// Every message in the raw page failed conversion. Returning an empty
		// page would read as exhausted history and stall the watermark below
		// the gap, so keep paging past it instead.
		if !advanced {
			return nil, nil
		}
	}
}

func (c *ChannelHistory) guildID(channelID int64) (int64, error) {
	id := formatSnowflake(channelID)
	channel, err := c.session.State.Channel(id)
	if err != nil {
		channel, err = c.session.Channel(id)
		if err != nil {
			return 0, err
		}
	}

	guildID, ok := parseSnowflake(channel.GuildID)
	if !ok {
		return 0, fmt.Errorf("channel %d is not in a guild", channelID)
	}
	return guildID, nil
}
