package wordle

// PackRow encodes a guess row as a single integer, base-3 with the first
// tile in the least significant position. This is the representation stored
// in the ledger's result column.
func PackRow(row []TileState) int {
	result := 0
	multiplier := 1
	for _, tile := range row {
		result += int(tile) * multiplier
		multiplier *= 3
	}
	return result
}

// UnpackRow reverses PackRow into a row of WordLength tiles.
func UnpackRow(packed int) []TileState {
	row := make([]TileState, WordLength)
	for i := range row {
		row[i] = TileState(packed % 3)
		packed /= 3
	}
	return row
}
