package wordle

import "time"

// epoch is the day of Wordle #0. Puzzle numbers are the day-difference from
// this date.
var epoch = time.Date(2021, time.June, 19, 0, 0, 0, 0, time.UTC)

// PuzzleNumberForDay converts a calendar day to its Wordle puzzle number.
// Days on or before the epoch have no valid puzzle and return false. The
// time's location decides which calendar day it falls on, so callers should
// convert to their configured timezone first.
func PuzzleNumberForDay(day time.Time) (int, bool) {
	year, month, date := day.Date()
	start := time.Date(year, month, date, 0, 0, 0, 0, time.UTC)

	number := int(start.Sub(epoch).Hours() / 24)
	if number <= 0 {
		return 0, false
	}

	return number, true
}
