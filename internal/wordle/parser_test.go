package wordle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWin(t *testing.T) {
	message := "Wordle 1,555 4/6*\n\n🟩⬛⬛🟨⬛\n🟩🟨🟨⬛🟨\n🟩🟩⬛🟩🟩\n🟩🟩🟩🟩🟩"

	result, ok := Parse(message)
	require.True(t, ok)

	assert.Equal(t, 1555, result.GameNumber)
	assert.True(t, result.IsWin)
	assert.True(t, result.IsHardMode)
	assert.Equal(t, [][]TileState{
		{TileExact, TileEmpty, TileEmpty, TilePartial, TileEmpty},
		{TileExact, TilePartial, TilePartial, TileEmpty, TilePartial},
		{TileExact, TileExact, TileEmpty, TileExact, TileExact},
		{TileExact, TileExact, TileExact, TileExact, TileExact},
	}, result.Guesses)
}

func TestParseLoss(t *testing.T) {
	message := "Wordle 1,555 X/6\n\n" + strings.Repeat("🟨🟨⬛⬛⬛\n", MaxGuesses-1) + "🟨🟨⬛⬛⬛"

	result, ok := Parse(message)
	require.True(t, ok)

	assert.Equal(t, 1555, result.GameNumber)
	assert.False(t, result.IsWin)
	assert.False(t, result.IsHardMode)
	assert.Len(t, result.Guesses, MaxGuesses)
}

func TestParseAcceptsWhiteSquares(t *testing.T) {
	// Light-theme clients share white squares instead of black ones.
	message := "Wordle 204 2/6\n\n⬜⬜⬜⬜⬜\n🟩🟩🟩🟩🟩"

	result, ok := Parse(message)
	require.True(t, ok)
	assert.Equal(t, []TileState{TileEmpty, TileEmpty, TileEmpty, TileEmpty, TileEmpty}, result.Guesses[0])
}

func TestParseIsDeterministic(t *testing.T) {
	message := "Wordle 950 3/6\n\n⬛⬛🟨⬛⬛\n🟨🟩🟩⬛⬛\n🟩🟩🟩🟩🟩"

	first, ok := Parse(message)
	require.True(t, ok)
	second, ok := Parse(message)
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestParseRejections(t *testing.T) {
	grid := "\n\n🟩🟩🟩🟩🟩"

	cases := map[string]string{
		"no prefix":                "wordle 100 1/6" + grid,
		"prefix mid message":       "I played Wordle 100 1/6 today" + grid,
		"header token count":       "Wordle 100 extra 1/6" + grid,
		"bad game number":          "Wordle abc 1/6" + grid,
		"bad guess count":          "Wordle 100 Y/6" + grid,
		"guess count zero":         "Wordle 100 0/6" + grid,
		"guess count too high":     "Wordle 100 7/6" + grid,
		"bad max":                  "Wordle 100 1/5" + grid,
		"non numeric max":          "Wordle 100 1/six" + grid,
		"missing blank line":       "Wordle 100 1/6\n🟩🟩🟩🟩🟩",
		"header only":              "Wordle 100 1/6",
		"row too short":            "Wordle 100 1/6\n\n🟩🟩🟩🟩",
		"row too long":             "Wordle 100 1/6\n\n🟩🟩🟩🟩🟩🟩",
		"row over length cap":      "Wordle 100 1/6\n\n🟩🟩🟩🟩🟩🟩🟩🟩🟩🟩🟩",
		"unknown tile":             "Wordle 100 1/6\n\n🟩🟩🟦🟩🟩",
		"letters in row":           "Wordle 100 1/6\n\ngreat",
		"row count below header":   "Wordle 100 3/6\n\n🟩🟩🟩🟩🟩",
		"row count above header":   "Wordle 100 1/6\n\n⬛⬛⬛⬛⬛\n🟩🟩🟩🟩🟩",
		"loss with too few rows":   "Wordle 100 X/6\n\n⬛⬛⬛⬛⬛",
		"trailing prose after row": "Wordle 100 1/6\n\n🟩🟩🟩🟩🟩\ngreat game!",
		"trailing blank line":      "Wordle 100 1/6\n\n🟩🟩🟩🟩🟩\n",
	}

	for name, message := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := Parse(message)
			assert.False(t, ok)
		})
	}
}

func TestParseToleratesNumberFormatting(t *testing.T) {
	result, ok := Parse("Wordle 1,000 1/6\n\n🟩🟩🟩🟩🟩")
	require.True(t, ok)
	assert.Equal(t, 1000, result.GameNumber)
}

func TestPackRowRoundTrip(t *testing.T) {
	row := []TileState{TileExact, TileEmpty, TilePartial, TilePartial, TileExact}

	packed := PackRow(row)
	assert.Equal(t, 2+1*9+1*27+2*81, packed)
	assert.Equal(t, row, UnpackRow(packed))
}
