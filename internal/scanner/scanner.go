package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/robert-mccausland/wordle-tracker/internal/ingest"
	"github.com/robert-mccausland/wordle-tracker/internal/ledger"
)

const defaultPageSize = 100

// HistoryFetcher pages through a channel's message history. FetchHistory
// returns up to limit messages strictly after afterID, oldest first; an empty
// page means the history is exhausted. Implementations may be rate limited by
// the platform, so calls can block for a while.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, channelID, afterID int64, limit int) ([]ingest.Message, error)
}

// ScanReport summarizes one catch-up scan.
type ScanReport struct {
	Processed  int
	Reconciled int
}

type Config struct {
	Store    *ledger.Store
	Engine   *ingest.Engine
	History  HistoryFetcher
	Clock    func() time.Time
	Logger   *zap.Logger
	PageSize int
}

// Scanner catches a channel's ledger up with its message history. Scans for
// different channels run independently; scans for the same channel are
// serialized in-process because the watermark read-modify-write is not safe
// under concurrent writers.
type Scanner struct {
	store    *ledger.Store
	engine   *ingest.Engine
	history  HistoryFetcher
	clock    func() time.Time
	logger   *zap.Logger
	pageSize int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(cfg Config) (*Scanner, error) {
	if cfg.Store == nil {
		return nil, errors.New("ledger store is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("ingestion engine is required")
	}
	if cfg.History == nil {
		return nil, errors.New("history fetcher is required")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Scanner{
		store:    cfg.Store,
		engine:   cfg.Engine,
		history:  cfg.History,
		clock:    clock,
		logger:   logger,
		pageSize: pageSize,
		locks:    map[int64]*sync.Mutex{},
	}, nil
}

// ScanChannel scans forward from the channel's watermark, or from the start
// of history when the channel has never been scanned.
func (s *Scanner) ScanChannel(ctx context.Context, channelID int64) (ScanReport, error) {
	lock := s.channelLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return ScanReport{}, fmt.Errorf("reading watermark for channel %d: %w", channelID, err)
	}

	var from *int64
	if channel != nil {
		from = channel.LastSeenMessage
	}
	return s.scan(ctx, channelID, from)
}

// RescanChannel scans the channel's entire history regardless of the stored
// watermark, reconciling the full message ID range.
func (s *Scanner) RescanChannel(ctx context.Context, channelID int64) (ScanReport, error) {
	lock := s.channelLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	return s.scan(ctx, channelID, nil)
}

func (s *Scanner) scan(ctx context.Context, channelID int64, from *int64) (ScanReport, error) {
	logger := s.logger.With(
		zap.String("scan_id", uuid.NewString()),
		zap.Int64("channel_id", channelID))
	logger.Info("scan starting")

	scanStart := s.clock()

	var report ScanReport
	var lastSeen *ingest.Message
	scanErr := func() error {
		cursor := int64(0)
		if from != nil {
			cursor = *from
		}
		for {
			// Cancellation stops pulling new pages; applied ingestions and
			// the watermark for pages already processed are kept.
			if err := ctx.Err(); err != nil {
				return err
			}

			page, err := s.history.FetchHistory(ctx, channelID, cursor, s.pageSize)
			if err != nil {
				return fmt.Errorf("fetching history after %d: %w", cursor, err)
			}
			if len(page) == 0 {
				return nil
			}

			for i := range page {
				if err := s.engine.HandleMessage(ctx, page[i]); err != nil {
					return err
				}
				report.Processed++
				lastSeen = &page[i]
				cursor = page[i].ID
			}
		}
	}()

	// Advance the watermark for whatever prefix was processed, even when the
	// scan died mid-stream: the watermark only ever moves forward and partial
	// progress must not be rescanned. The write must survive cancellation of
	// the scan itself.
	if lastSeen != nil {
		if err := s.store.AdvanceWatermark(context.WithoutCancel(ctx), channelID, lastSeen.GuildID, lastSeen.ID); err != nil {
			logger.Error("persisting watermark", zap.Error(err))
			if scanErr == nil {
				scanErr = err
			}
		}
	}

	if scanErr != nil {
		logger.Warn("scan aborted",
			zap.Int("processed", report.Processed),
			zap.Error(scanErr))
		return report, scanErr
	}
	if lastSeen == nil {
		logger.Info("scan finished, nothing new")
		return report, nil
	}

	// Only a complete pass can reconcile: an aborted scan cannot tell a
	// message deleted upstream from one it never reached.
	reconciled, err := s.store.DeleteStaleGames(ctx, channelID, scanStart, lastSeen.ID, from)
	if err != nil {
		return report, fmt.Errorf("reconciling channel %d: %w", channelID, err)
	}
	report.Reconciled = int(reconciled)
	if reconciled > 0 {
		logger.Info("deleted games no longer in the channel", zap.Int64("count", reconciled))
	}

	logger.Info("scan finished", zap.Int("processed", report.Processed))
	return report, nil
}

func (s *Scanner) channelLock(channelID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[channelID] = lock
	}
	return lock
}
