package summary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/robert-mccausland/wordle-tracker/internal/database"
	"github.com/robert-mccausland/wordle-tracker/internal/ledger"
	"github.com/robert-mccausland/wordle-tracker/internal/models"
	"github.com/robert-mccausland/wordle-tracker/internal/wordle"
)

const testChannelID = int64(1)

var testToday = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestAggregator(t *testing.T) (*Aggregator, *ledger.Store) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	store, err := ledger.NewStore(db)
	require.NoError(t, err)
	aggregator, err := NewAggregator(Config{
		Store: store,
		Clock: func() time.Time { return testToday },
	})
	require.NoError(t, err)
	return aggregator, store
}

func seedGame(t *testing.T, store *ledger.Store, messageID, userID int64, gameNumber, guesses int, isWin bool, mutate ...func(*models.Game)) {
	t.Helper()
	game := &models.Game{
		MessageID:  messageID,
		ChannelID:  testChannelID,
		GuildID:    1,
		UserID:     userID,
		PostedAt:   time.Date(2024, time.March, 9, 9, 0, 0, 0, time.UTC),
		ScannedAt:  testToday,
		GameNumber: gameNumber,
		IsWin:      isWin,
		Guesses:    guesses,
		Result:     datatypes.JSON("[242]"),
	}
	for _, m := range mutate {
		m(game)
	}
	require.NoError(t, store.UpsertGame(context.Background(), game))
}

func userOrder(summaries []PlayerSummary) []int64 {
	ids := make([]int64, len(summaries))
	for i, s := range summaries {
		ids[i] = s.UserID
	}
	return ids
}

// Three players with distinct profiles, reused across ranking tests:
// player 1 plays most and wins most, player 2 guesses fastest on average,
// player 3 plays least.
func seedRankingFixture(t *testing.T, store *ledger.Store) {
	seedGame(t, store, 11, 1, 801, 3, true)
	seedGame(t, store, 12, 1, 802, 4, true)
	seedGame(t, store, 13, 1, 803, 5, true)

	seedGame(t, store, 21, 2, 801, 2, true)
	seedGame(t, store, 22, 2, 802, 3, true)
	seedGame(t, store, 23, 2, 803, 4, false)

	seedGame(t, store, 31, 3, 801, 2, true)
	seedGame(t, store, 32, 3, 802, 2, true)
}

func TestSummaryDefaultRanking(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedRankingFixture(t, store)

	summaries, err := aggregator.Summary(context.Background(), testChannelID, Options{})
	require.NoError(t, err)

	// Most games first; players 1 and 2 tie on games, so most wins decides.
	assert.Equal(t, []int64{1, 2, 3}, userOrder(summaries))

	top := summaries[0]
	assert.Equal(t, 3, top.Games)
	assert.Equal(t, 3, top.Wins)
	assert.InDelta(t, 4.0, top.Average, 0.001)
	assert.Equal(t, 3, top.Best)
}

func TestSummaryRankingByAverage(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedRankingFixture(t, store)

	ranking := RankingAverage
	summaries, err := aggregator.Summary(context.Background(), testChannelID, Options{Ranking: &ranking})
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 2, 1}, userOrder(summaries))
}

func TestSummaryRankingByBest(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedRankingFixture(t, store)

	ranking := RankingBest
	summaries, err := aggregator.Summary(context.Background(), testChannelID, Options{Ranking: &ranking})
	require.NoError(t, err)

	// Players 2 and 3 tie on best; the rest of the chain (games) decides.
	assert.Equal(t, []int64{2, 3, 1}, userOrder(summaries))
}

func TestSummaryLimit(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedRankingFixture(t, store)

	summaries, err := aggregator.Summary(context.Background(), testChannelID, Options{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, userOrder(summaries))
}

func TestSummaryExcludesDuplicates(t *testing.T) {
	aggregator, store := newTestAggregator(t)

	seedGame(t, store, 11, 1, 801, 3, true)
	seedGame(t, store, 12, 1, 801, 6, true, func(g *models.Game) { g.IsDuplicate = true })

	summaries, err := aggregator.Summary(context.Background(), testChannelID, Options{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Games)
	assert.Equal(t, 3, summaries[0].Best)
}

func TestSummaryTrailingWindow(t *testing.T) {
	aggregator, store := newTestAggregator(t)

	today, ok := wordle.PuzzleNumberForDay(testToday)
	require.True(t, ok)

	seedGame(t, store, 11, 1, today-2, 3, true)
	seedGame(t, store, 12, 1, today-10, 4, true)

	days := 7
	summaries, err := aggregator.Summary(context.Background(), testChannelID, Options{Days: &days})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Games, "older games fall outside the window")

	summaries, err = aggregator.Summary(context.Background(), testChannelID, Options{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].Games)
}

func TestSummaryEmptyChannel(t *testing.T) {
	aggregator, _ := newTestAggregator(t)

	summaries, err := aggregator.Summary(context.Background(), testChannelID, Options{})
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestDailyResultsOrdering(t *testing.T) {
	aggregator, store := newTestAggregator(t)

	morning := time.Date(2024, time.March, 9, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, time.March, 9, 20, 0, 0, 0, time.UTC)

	seedGame(t, store, 11, 1, 801, 4, true)
	seedGame(t, store, 12, 2, 801, 6, false)
	seedGame(t, store, 13, 3, 801, 6, true)
	seedGame(t, store, 14, 4, 801, 3, true, func(g *models.Game) { g.PostedAt = evening })
	seedGame(t, store, 15, 5, 801, 3, true, func(g *models.Game) { g.PostedAt = morning })
	// Noise: another puzzle and a duplicate.
	seedGame(t, store, 16, 1, 802, 2, true)
	seedGame(t, store, 17, 2, 801, 2, true, func(g *models.Game) { g.IsDuplicate = true })

	results, err := aggregator.DailyResults(context.Background(), testChannelID, 801)
	require.NoError(t, err)

	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.UserID
	}

	// Fewest guesses first, ties broken by earliest post; on six guesses the
	// win sorts above the loss.
	assert.Equal(t, []int64{5, 4, 1, 3, 2}, ids)
}

func TestParseRankingRoundTrip(t *testing.T) {
	for _, ranking := range []Ranking{RankingGames, RankingWins, RankingAverage, RankingBest} {
		parsed, ok := ParseRanking(ranking.String())
		require.True(t, ok)
		assert.Equal(t, ranking, parsed)
	}

	_, ok := ParseRanking("vibes")
	assert.False(t, ok)
}
