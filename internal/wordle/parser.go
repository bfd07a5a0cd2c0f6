package wordle

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const (
	// WordLength is the number of letters in a Wordle answer.
	WordLength = 5
	// MaxGuesses is the number of guesses a player gets.
	MaxGuesses = 6

	headerPrefix = "Wordle "
	failedMarker = "X"
)

// TileState classifies a single letter of a guess.
type TileState int

const (
	TileEmpty   TileState = 0
	TilePartial TileState = 1
	TileExact   TileState = 2
)

// GameResult is a fully parsed shared Wordle result.
type GameResult struct {
	GameNumber int
	IsWin      bool
	IsHardMode bool
	Guesses    [][]TileState
}

// LooksLikeResult reports whether a message opens like a shared result.
// Useful for logging near-misses without treating every chat message as one.
func LooksLikeResult(message string) bool {
	return strings.HasPrefix(message, headerPrefix)
}

// Parse extracts a Wordle result from a raw message body. The second return
// value is false when the message is not a result; callers should treat that
// as ordinary chat, not an error.
//
// Parsing is strict: once the header matches, any malformed guess row rejects
// the whole message. There is no partial success.
func Parse(message string) (GameResult, bool) {
	// Any message not starting with the Wordle prefix is not a result, so we
	// skip it immediately without looking further.
	if !strings.HasPrefix(message, headerPrefix) {
		return GameResult{}, false
	}

	lines := strings.Split(message, "\n")

	// A malformed header may just be a random message starting with "Wordle ".
	header := strings.Split(lines[0], " ")
	if len(header) != 3 {
		return GameResult{}, false
	}

	gameNumber, ok := parseInt(header[1])
	if !ok {
		return GameResult{}, false
	}

	summary := header[2]
	isHardMode := strings.HasSuffix(summary, "*")
	parts := strings.Split(strings.TrimSuffix(summary, "*"), "/")
	if len(parts) != 2 {
		return GameResult{}, false
	}

	isWin := true
	guessCount := MaxGuesses
	if parts[0] == failedMarker {
		isWin = false
	} else {
		guessCount, ok = parseInt(parts[0])
		if !ok || guessCount <= 0 || guessCount > MaxGuesses {
			return GameResult{}, false
		}
	}

	max, ok := parseInt(parts[1])
	if !ok || max != MaxGuesses {
		return GameResult{}, false
	}

	// The header must be followed by a blank separator line.
	if len(lines) < 2 || lines[1] != "" {
		return GameResult{}, false
	}

	guesses := make([][]TileState, 0, guessCount)
	for _, line := range lines[2:] {
		guess, ok := parseGuess(line)
		if !ok {
			return GameResult{}, false
		}
		guesses = append(guesses, guess)
	}

	if len(guesses) != guessCount {
		return GameResult{}, false
	}

	return GameResult{
		GameNumber: gameNumber,
		IsWin:      isWin,
		IsHardMode: isHardMode,
		Guesses:    guesses,
	}, true
}

func parseInt(value string) (int, bool) {
	sanitized := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	parsed, err := strconv.Atoi(sanitized)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func parseGuess(line string) ([]TileState, bool) {
	// Cap the input before segmenting it. Each tile is a single grapheme so
	// twice the word length in code points is already generous.
	if utf8.RuneCountInString(line) > WordLength*2 {
		return nil, false
	}

	guess := make([]TileState, 0, WordLength)
	graphemes := uniseg.NewGraphemes(line)
	for graphemes.Next() {
		tile, ok := parseTile(graphemes.Str())
		if !ok {
			return nil, false
		}
		guess = append(guess, tile)
	}

	if len(guess) != WordLength {
		return nil, false
	}

	return guess, true
}

func parseTile(grapheme string) (TileState, bool) {
	switch grapheme {
	case "🟩":
		return TileExact, true
	case "🟨":
		return TilePartial, true
	case "⬛", "⬜":
		return TileEmpty, true
	default:
		return 0, false
	}
}
