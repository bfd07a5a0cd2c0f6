package ledger

import (
	"context"

	"github.com/robert-mccausland/wordle-tracker/internal/models"
)

// PlayerRow is the per-player aggregate over non-duplicate games.
type PlayerRow struct {
	UserID  int64
	Games   int
	Wins    int
	Average float64
	Best    int
}

// PlayerRows groups a channel's non-duplicate games by player. When
// minGameNumber is set only games with a strictly greater puzzle number are
// counted, giving a trailing window. Ordering is left to the caller.
func (s *Store) PlayerRows(ctx context.Context, channelID int64, minGameNumber *int) ([]PlayerRow, error) {
	query := s.db.WithContext(ctx).Model(&models.Game{}).
		Select("user_id",
			"COUNT(message_id) AS games",
			"SUM(CASE WHEN is_win THEN 1 ELSE 0 END) AS wins",
			"AVG(guesses) AS average",
			"MIN(guesses) AS best").
		Where("channel_id = ? AND is_duplicate = ?", channelID, false)
	if minGameNumber != nil {
		query = query.Where("game_number > ?", *minGameNumber)
	}

	var rows []PlayerRow
	err := query.Group("user_id").Scan(&rows).Error
	return rows, err
}

// GamesForPuzzle returns a channel's non-duplicate games for one puzzle
// number. Ordering is left to the caller.
func (s *Store) GamesForPuzzle(ctx context.Context, channelID int64, gameNumber int) ([]models.Game, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND is_duplicate = ? AND game_number = ?", channelID, false, gameNumber).
		Find(&games).Error
	return games, err
}
