package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/robert-mccausland/wordle-tracker/internal/ledger"
	"github.com/robert-mccausland/wordle-tracker/internal/models"
	"github.com/robert-mccausland/wordle-tracker/internal/wordle"
)

// Message is a platform message as the engine sees it, stripped of transport
// details.
type Message struct {
	ID        int64
	ChannelID int64
	GuildID   int64
	AuthorID  int64
	Content   string
	PostedAt  time.Time
}

type Config struct {
	Store *ledger.Store
	// Clock stamps ScannedAt; defaults to time.Now.
	Clock func() time.Time
	// Location decides which calendar day a message was posted on, for the
	// expected-puzzle flag. Defaults to UTC.
	Location *time.Location
	Logger   *zap.Logger
}

// Engine applies message events to the ledger. It is safe to call from any
// number of goroutines: events touching the same (channel, author, puzzle)
// triple are serialized by a keyed lock, everything else runs concurrently.
type Engine struct {
	store    *ledger.Store
	clock    func() time.Time
	location *time.Location
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[tripleKey]*sync.Mutex
}

// tripleKey identifies one player's attempt at one puzzle in one channel, the
// unit the duplicate invariant is defined over.
type tripleKey struct {
	channelID  int64
	userID     int64
	gameNumber int
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("ledger store is required")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		store:    cfg.Store,
		clock:    clock,
		location: location,
		logger:   logger,
		locks:    map[tripleKey]*sync.Mutex{},
	}, nil
}

func (e *Engine) tripleLock(key tripleKey) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	return lock
}

// HandleMessage ingests a created or edited message. Non-results are ignored;
// in particular an edit that removes the result text leaves any previously
// stored game untouched, so editing a message never erases history. The
// upsert is idempotent: re-ingesting the same content yields the same row.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) error {
	result, ok := wordle.Parse(msg.Content)
	if !ok {
		if wordle.LooksLikeResult(msg.Content) {
			e.logger.Warn("message looks like a result but failed to parse",
				zap.Int64("message_id", msg.ID),
				zap.Int64("channel_id", msg.ChannelID))
		}
		return nil
	}

	packed := make([]int, len(result.Guesses))
	for i, row := range result.Guesses {
		packed[i] = wordle.PackRow(row)
	}
	encoded, err := json.Marshal(packed)
	if err != nil {
		return fmt.Errorf("encoding guess rows: %w", err)
	}

	isCorrectDay := false
	if number, ok := wordle.PuzzleNumberForDay(msg.PostedAt.In(e.location)); ok {
		isCorrectDay = number == result.GameNumber
	}

	game := models.Game{
		MessageID:    msg.ID,
		ChannelID:    msg.ChannelID,
		GuildID:      msg.GuildID,
		UserID:       msg.AuthorID,
		PostedAt:     msg.PostedAt,
		ScannedAt:    e.clock(),
		GameNumber:   result.GameNumber,
		IsWin:        result.IsWin,
		IsHardMode:   result.IsHardMode,
		Guesses:      len(result.Guesses),
		IsCorrectDay: isCorrectDay,
		Result:       datatypes.JSON(encoded),
	}

	// A transaction alone does not serialize the duplicate read-then-write:
	// under read committed, two concurrent ingestions for the same triple can
	// each see the other's uncommitted nothing and both come out flagged as
	// the original. The keyed lock makes same-triple ingestions take turns.
	lock := e.tripleLock(tripleKey{msg.ChannelID, msg.AuthorID, result.GameNumber})
	lock.Lock()
	defer lock.Unlock()

	err = e.store.Transaction(ctx, func(tx *ledger.Store) error {
		isDuplicate, err := tx.HasEarlierGame(ctx, msg.ChannelID, msg.AuthorID, result.GameNumber, msg.ID)
		if err != nil {
			return err
		}
		game.IsDuplicate = isDuplicate

		// Ties are broken by message ID, not arrival order: if this message
		// precedes ones already stored for the triple, demote those instead.
		if _, err := tx.FlagLaterDuplicates(ctx, msg.ChannelID, msg.AuthorID, result.GameNumber, msg.ID); err != nil {
			return err
		}

		return tx.UpsertGame(ctx, &game)
	})
	if err != nil {
		return fmt.Errorf("storing game for message %d: %w", msg.ID, err)
	}

	e.logger.Debug("stored game",
		zap.Int64("message_id", msg.ID),
		zap.Int64("channel_id", msg.ChannelID),
		zap.Int("game_number", result.GameNumber),
		zap.Bool("duplicate", game.IsDuplicate))
	return nil
}

// HandleMessageDelete removes the game for a deleted message, if one exists.
// When the deleted game was the original of a duplicate pair, the earliest
// surviving game for the triple is promoted so the duplicate flag keeps
// meaning "an earlier stored message exists".
func (e *Engine) HandleMessageDelete(ctx context.Context, messageID int64) error {
	game, err := e.store.GetGame(ctx, messageID)
	if err != nil {
		return fmt.Errorf("reading game for message %d: %w", messageID, err)
	}
	if game == nil {
		return nil
	}

	lock := e.tripleLock(tripleKey{game.ChannelID, game.UserID, game.GameNumber})
	lock.Lock()
	defer lock.Unlock()

	err = e.store.Transaction(ctx, func(tx *ledger.Store) error {
		deleted, err := tx.DeleteGame(ctx, messageID)
		if err != nil || !deleted {
			return err
		}
		_, err = tx.PromoteEarliestGame(ctx, game.ChannelID, game.UserID, game.GameNumber)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting game for message %d: %w", messageID, err)
	}

	e.logger.Info("deleted game for removed message", zap.Int64("message_id", messageID))
	return nil
}
