package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioTable: Shawshank (1994, 9.3), Godfather (1972, 9.2), Dark Knight (2008, 9.0).
func scenarioTable() *MovieTable {
	return NewMovieTable("test://scenario", []string{ColTitle, ColYear, ColRating}, []MovieRecord{
		{Title: "Shawshank", Year: 1994, Rating: 9.3},
		{Title: "Godfather", Year: 1972, Rating: 9.2},
		{Title: "Dark Knight", Year: 2008, Rating: 9.0},
	})
}

func TestAggregateByDecade_Scenario(t *testing.T) {
	got := AggregateByDecade(scenarioTable())

	assert.Equal(t, []DecadeAverage{
		{Decade: 1970, Average: 9.2, Count: 1},
		{Decade: 1990, Average: 9.3, Count: 1},
		{Decade: 2000, Average: 9.0, Count: 1},
	}, got)
}

func TestAggregateByDecade_SingleDecade(t *testing.T) {
	var records []MovieRecord
	for y := 1990; y <= 1999; y++ {
		records = append(records, MovieRecord{Title: "m", Year: y, Rating: 8.0})
	}
	table := NewMovieTable("test", []string{ColTitle, ColYear, ColRating}, records)

	got := AggregateByDecade(table)

	require.Len(t, got, 1)
	assert.Equal(t, 1990, got[0].Decade)
	assert.Equal(t, 8.0, got[0].Average)
	assert.Equal(t, 10, got[0].Count)
}

func TestAggregateByDecade_Mean(t *testing.T) {
	table := NewMovieTable("test", []string{ColTitle, ColYear, ColRating}, []MovieRecord{
		{Title: "a", Year: 2001, Rating: 8.0},
		{Title: "b", Year: 1955, Rating: 7.5},
		{Title: "c", Year: 2009, Rating: 9.0},
		{Title: "d", Year: 2010, Rating: 6.0},
	})

	got := AggregateByDecade(table)

	require.Len(t, got, 3)
	assert.Equal(t, DecadeAverage{Decade: 1950, Average: 7.5, Count: 1}, got[0])
	assert.Equal(t, DecadeAverage{Decade: 2000, Average: 8.5, Count: 2}, got[1])
	assert.Equal(t, DecadeAverage{Decade: 2010, Average: 6.0, Count: 1}, got[2])
}

func TestAggregateByDecade_EmptyTable(t *testing.T) {
	table := NewMovieTable("test", []string{ColTitle, ColYear, ColRating}, nil)
	assert.Empty(t, AggregateByDecade(table))
}

func TestAggregateByDecade_Deterministic(t *testing.T) {
	table := NewMovieTable("test", []string{ColTitle, ColYear, ColRating}, []MovieRecord{
		{Title: "a", Year: 1991, Rating: 0.1},
		{Title: "b", Year: 1992, Rating: 0.2},
		{Title: "c", Year: 1993, Rating: 0.3},
	})
	assert.Equal(t, AggregateByDecade(table), AggregateByDecade(table))
}

func TestDecadeOf(t *testing.T) {
	tests := []struct {
		year, want int
	}{
		{1994, 1990},
		{1990, 1990},
		{1999, 1990},
		{2000, 2000},
		{0, 0},
		{-5, -10},
		{-10, -10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecadeOf(tt.year), "DecadeOf(%d)", tt.year)
	}
}
