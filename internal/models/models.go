// internal/models/models.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// TrackedChannel is a channel the bot records results for. LastSeenMessage is
// the catch-up scan watermark: the highest message ID the channel has been
// fully scanned through, nil when the channel has never been scanned.
type TrackedChannel struct {
	ChannelID            int64 `gorm:"primaryKey;autoIncrement:false"`
	GuildID              int64 `gorm:"not null"`
	LastSeenMessage      *int64
	DailySummaryEnabled  bool `gorm:"not null;default:false"`
	DailyReminderEnabled bool `gorm:"not null;default:false"`
}

func (TrackedChannel) TableName() string {
	return "wordle_channels"
}

// Game is one parsed result, keyed by the Discord message it came from.
// Result holds one packed integer per guess row (see wordle.PackRow).
type Game struct {
	MessageID    int64     `gorm:"primaryKey;autoIncrement:false"`
	ChannelID    int64     `gorm:"not null;index"`
	GuildID      int64     `gorm:"not null"`
	UserID       int64     `gorm:"not null;index"`
	PostedAt     time.Time `gorm:"not null"`
	ScannedAt    time.Time `gorm:"not null"`
	GameNumber   int       `gorm:"not null;index"`
	IsWin        bool      `gorm:"not null"`
	IsHardMode   bool      `gorm:"not null"`
	Guesses      int       `gorm:"not null"`
	IsDuplicate  bool      `gorm:"not null"`
	IsCorrectDay bool      `gorm:"not null"`
	Result       datatypes.JSON
}

func (Game) TableName() string {
	return "wordle_games"
}
