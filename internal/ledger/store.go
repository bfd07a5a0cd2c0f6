package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/robert-mccausland/wordle-tracker/internal/models"
)

// Store is the ledger: one Game row per source message and one watermark row
// per tracked channel. It is the only shared mutable state in the process;
// all coordination happens through its transactions.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	return &Store{db: db}, nil
}

// Transaction runs fn against a store bound to a single database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// GetGame returns the game for a message, or nil when none is stored.
func (s *Store) GetGame(ctx context.Context, messageID int64) (*models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).First(&game, "message_id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// UpsertGame inserts or fully replaces the game keyed by its message ID.
func (s *Store) UpsertGame(ctx context.Context, game *models.Game) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		UpdateAll: true,
	}).Create(game).Error
}

// DeleteGame removes the game for a message. Returns false when nothing was
// stored for that message.
func (s *Store) DeleteGame(ctx context.Context, messageID int64) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&models.Game{}, "message_id = ?", messageID)
	return result.RowsAffected > 0, result.Error
}

// HasEarlierGame reports whether the same player already posted the same
// puzzle in this channel under a smaller message ID.
func (s *Store) HasEarlierGame(ctx context.Context, channelID, userID int64, gameNumber int, beforeMessageID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Game{}).
		Where("channel_id = ? AND user_id = ? AND game_number = ? AND message_id < ?",
			channelID, userID, gameNumber, beforeMessageID).
		Count(&count).Error
	return count > 0, err
}

// FlagLaterDuplicates marks stored games for the same (channel, user, puzzle)
// triple with a larger message ID as duplicates. Ingestion order does not
// always match message order, so an older message arriving late must demote
// the newer ones already in the ledger.
func (s *Store) FlagLaterDuplicates(ctx context.Context, channelID, userID int64, gameNumber int, afterMessageID int64) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Game{}).
		Where("channel_id = ? AND user_id = ? AND game_number = ? AND message_id > ? AND is_duplicate = ?",
			channelID, userID, gameNumber, afterMessageID, false).
		Update("is_duplicate", true)
	return result.RowsAffected, result.Error
}

// PromoteEarliestGame clears the duplicate flag on the earliest stored game
// for the triple, if one remains and is still flagged. Deleting the original
// of a duplicate pair otherwise leaves the survivor flagged forever.
func (s *Store) PromoteEarliestGame(ctx context.Context, channelID, userID int64, gameNumber int) (bool, error) {
	var earliest models.Game
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ? AND game_number = ?", channelID, userID, gameNumber).
		Order("message_id").
		First(&earliest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !earliest.IsDuplicate {
		return false, nil
	}

	result := s.db.WithContext(ctx).Model(&models.Game{}).
		Where("message_id = ?", earliest.MessageID).
		Update("is_duplicate", false)
	return result.RowsAffected > 0, result.Error
}

// DeleteStaleGames removes games in the scanned window that the scan starting
// at scanStart did not touch, i.e. messages deleted upstream between scans.
// afterMessageID bounds the window on the left when the scan resumed from a
// watermark; games outside the window are never deleted.
func (s *Store) DeleteStaleGames(ctx context.Context, channelID int64, scanStart time.Time, maxMessageID int64, afterMessageID *int64) (int64, error) {
	query := s.db.WithContext(ctx).
		Where("channel_id = ? AND scanned_at < ? AND message_id <= ?", channelID, scanStart, maxMessageID)
	if afterMessageID != nil {
		query = query.Where("message_id > ?", *afterMessageID)
	}
	result := query.Delete(&models.Game{})
	return result.RowsAffected, result.Error
}

// GetChannel returns the tracked channel record, or nil when the channel is
// not tracked yet.
func (s *Store) GetChannel(ctx context.Context, channelID int64) (*models.TrackedChannel, error) {
	var channel models.TrackedChannel
	err := s.db.WithContext(ctx).First(&channel, "channel_id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// EnsureChannel creates the tracked channel record if it does not exist and
// returns the current row either way.
func (s *Store) EnsureChannel(ctx context.Context, channelID, guildID int64) (*models.TrackedChannel, error) {
	channel := models.TrackedChannel{ChannelID: channelID, GuildID: guildID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&channel).Error
	if err != nil {
		return nil, err
	}

	existing, err := s.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("channel %d missing after get-or-create", channelID)
	}
	return existing, nil
}

// AdvanceWatermark moves the channel watermark forward to messageID, creating
// the channel record if needed. The update is conditional on the stored value
// so the watermark never goes backwards.
func (s *Store) AdvanceWatermark(ctx context.Context, channelID, guildID, messageID int64) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.EnsureChannel(ctx, channelID, guildID); err != nil {
			return err
		}
		return tx.db.WithContext(ctx).Model(&models.TrackedChannel{}).
			Where("channel_id = ? AND (last_seen_message IS NULL OR last_seen_message < ?)", channelID, messageID).
			Update("last_seen_message", messageID).Error
	})
}

// SetDailySummary toggles the daily summary flag. Returns false when the
// channel is not tracked.
func (s *Store) SetDailySummary(ctx context.Context, channelID int64, enabled bool) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.TrackedChannel{}).
		Where("channel_id = ?", channelID).
		Update("daily_summary_enabled", enabled)
	return result.RowsAffected > 0, result.Error
}

// RemoveChannel untracks a channel, cascading to all of its games in the same
// transaction. Returns false when the channel was not tracked.
func (s *Store) RemoveChannel(ctx context.Context, channelID int64) (bool, error) {
	removed := false
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.WithContext(ctx).Delete(&models.Game{}, "channel_id = ?", channelID).Error; err != nil {
			return err
		}
		result := tx.db.WithContext(ctx).Delete(&models.TrackedChannel{}, "channel_id = ?", channelID)
		removed = result.RowsAffected > 0
		return result.Error
	})
	return removed, err
}

// ListChannels returns every tracked channel.
func (s *Store) ListChannels(ctx context.Context) ([]models.TrackedChannel, error) {
	var channels []models.TrackedChannel
	err := s.db.WithContext(ctx).Order("channel_id").Find(&channels).Error
	return channels, err
}

// ListSummaryChannels returns the tracked channels that want a daily summary
// posted.
func (s *Store) ListSummaryChannels(ctx context.Context) ([]models.TrackedChannel, error) {
	var channels []models.TrackedChannel
	err := s.db.WithContext(ctx).
		Where("daily_summary_enabled = ?", true).
		Order("channel_id").
		Find(&channels).Error
	return channels, err
}
