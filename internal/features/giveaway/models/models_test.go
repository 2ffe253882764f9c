package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrizeForPlace(t *testing.T) {
	assert.Equal(t, prizeTop, PrizeForPlace(1))
	for p := 2; p <= 5; p++ {
		assert.Equal(t, prizeMid, PrizeForPlace(p))
	}
	assert.Equal(t, prizeLow, PrizeForPlace(6))
}

func TestSortByPlace(t *testing.T) {
	records := []WinnerRecord{{PlaceNumber: 3}, {PlaceNumber: 1}, {PlaceNumber: 2}}
	SortByPlace(records)
	assert.Equal(t, []int{1, 2, 3}, []int{records[0].PlaceNumber, records[1].PlaceNumber, records[2].PlaceNumber})
}
