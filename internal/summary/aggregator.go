package summary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/robert-mccausland/wordle-tracker/internal/ledger"
	"github.com/robert-mccausland/wordle-tracker/internal/wordle"
)

// Ranking selects the leading sort key for a summary.
type Ranking int

const (
	RankingGames Ranking = iota
	RankingWins
	RankingAverage
	RankingBest
)

func (r Ranking) String() string {
	switch r {
	case RankingGames:
		return "games"
	case RankingWins:
		return "wins"
	case RankingAverage:
		return "average"
	case RankingBest:
		return "best"
	default:
		return fmt.Sprintf("ranking(%d)", int(r))
	}
}

// ParseRanking maps a user-supplied ranking name to its Ranking.
func ParseRanking(value string) (Ranking, bool) {
	switch value {
	case "games":
		return RankingGames, true
	case "wins":
		return RankingWins, true
	case "average":
		return RankingAverage, true
	case "best":
		return RankingBest, true
	default:
		return 0, false
	}
}

// defaultOrder is the tie-break chain: most games, most wins, lowest average,
// lowest best.
var defaultOrder = []Ranking{RankingGames, RankingWins, RankingAverage, RankingBest}

// PlayerSummary is one row of a channel ranking.
type PlayerSummary struct {
	UserID  int64
	Games   int
	Wins    int
	Average float64
	Best    int
}

// DailyResult is one player's result for a single puzzle.
type DailyResult struct {
	UserID   int64
	Guesses  int
	IsWin    bool
	PostedAt time.Time
}

// Options shape a Summary call. Days limits the summary to a trailing window
// of puzzle numbers; Ranking promotes one key to the front of the tie-break
// chain; Limit caps the number of rows.
type Options struct {
	Days    *int
	Ranking *Ranking
	Limit   int
}

type Config struct {
	Store *ledger.Store
	// Clock and Location fix "today" for trailing windows.
	Clock    func() time.Time
	Location *time.Location
	Logger   *zap.Logger
}

// Aggregator answers read-only ranking queries over the ledger. Only
// non-duplicate games count as played.
type Aggregator struct {
	store    *ledger.Store
	clock    func() time.Time
	location *time.Location
	logger   *zap.Logger
}

func NewAggregator(cfg Config) (*Aggregator, error) {
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

	return &Aggregator{store: cfg.Store, clock: clock, location: location, logger: logger}, nil
}

// Summary ranks a channel's players.
func (a *Aggregator) Summary(ctx context.Context, channelID int64, opts Options) ([]PlayerSummary, error) {
	var minGameNumber *int
	if opts.Days != nil {
		today, ok := wordle.PuzzleNumberForDay(a.clock().In(a.location))
		if !ok {
			return nil, errors.New("no puzzle number for today")
		}
		min := today - *opts.Days
		minGameNumber = &min
	}

	rows, err := a.store.PlayerRows(ctx, channelID, minGameNumber)
	if err != nil {
		return nil, fmt.Errorf("aggregating channel %d: %w", channelID, err)
	}

	summaries := make([]PlayerSummary, len(rows))
	for i, row := range rows {
		summaries[i] = PlayerSummary{
			UserID:  row.UserID,
			Games:   row.Games,
			Wins:    row.Wins,
			Average: row.Average,
			Best:    row.Best,
		}
	}

	order := rankingOrder(opts.Ranking)
	sort.SliceStable(summaries, func(i, j int) bool {
		return compareSummaries(summaries[i], summaries[j], order) < 0
	})

	if opts.Limit > 0 && len(summaries) > opts.Limit {
		summaries = summaries[:opts.Limit]
	}
	return summaries, nil
}

// DailyResults lists a channel's results for one puzzle, best first: fewest
// guesses, wins before losses on equal guesses, then earliest post.
func (a *Aggregator) DailyResults(ctx context.Context, channelID int64, gameNumber int) ([]DailyResult, error) {
	games, err := a.store.GamesForPuzzle(ctx, channelID, gameNumber)
	if err != nil {
		return nil, fmt.Errorf("reading puzzle %d for channel %d: %w", gameNumber, channelID, err)
	}

	results := make([]DailyResult, len(games))
	for i, game := range games {
		results[i] = DailyResult{
			UserID:   game.UserID,
			Guesses:  game.Guesses,
			IsWin:    game.IsWin,
			PostedAt: game.PostedAt,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		left, right := results[i], results[j]
		if left.Guesses != right.Guesses {
			return left.Guesses < right.Guesses
		}
		if left.IsWin != right.IsWin {
			return left.IsWin
		}
		return left.PostedAt.Before(right.PostedAt)
	})
	return results, nil
}

// rankingOrder moves the requested key to the front of the default chain.
func rankingOrder(requested *Ranking) []Ranking {
	if requested == nil {
		return defaultOrder
	}
	order := make([]Ranking, 0, len(defaultOrder))
	order = append(order, *requested)
	for _, key := range defaultOrder {
		if key != *requested {
			order = append(order, key)
		}
	}
	return order
}

func compareSummaries(left, right PlayerSummary, order []Ranking) int {
	for _, key := range order {
		switch key {
		case RankingGames:
			if left.Games != right.Games {
				if left.Games > right.Games {
					return -1
				}
				return 1
			}
		case RankingWins:
			if left.Wins != right.Wins {
				if left.Wins > right.Wins {
					return -1
				}
				return 1
			}
		case RankingAverage:
			if left.Average != right.Average {
				if left.Average < right.Average {
					return -1
				}
				return 1
			}
		case RankingBest:
			if left.Best != right.Best {
				if left.Best < right.Best {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}
