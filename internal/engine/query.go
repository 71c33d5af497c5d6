package engine

import (
	"fmt"
	"sort"
)

// YearRange is the closed interval [Min, Max].
type YearRange struct {
	Min int
	Max int
}

func (r YearRange) String() string { return fmt.Sprintf("[%d, %d]", r.Min, r.Max) }

// Validate returns an InvalidRangeError when Min > Max.
func (r YearRange) Validate() error {
	if r.Min > r.Max {
		return &InvalidRangeError{Min: r.Min, Max: r.Max}
	}
	return nil
}

// Contains reports whether year lies within r, bounds included.
func (r YearRange) Contains(year int) bool {
	return r.Min <= year && year <= r.Max
}

// Clamp confines r to bounds. A range lying entirely outside bounds collapses
// onto the nearest bound.
func (r YearRange) Clamp(bounds YearRange) YearRange {
	clamp := func(v int) int { return min(max(v, bounds.Min), bounds.Max) }
	return YearRange{Min: clamp(r.Min), Max: clamp(r.Max)}
}

// FilterByYearRange returns the records whose year lies within r, in source
// order. No match yields an empty table.
func FilterByYearRange(t *MovieTable, r YearRange) (*MovieTable, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := t.derive(0)
	for i := range t.records {
		if r.Contains(t.records[i].Year) {
			out.records = append(out.records, t.records[i].clone())
		}
	}
	return out, nil
}

// RankField selects the value TopN ranks by.
type RankField string

const (
	RankByRating RankField = "rating"
	RankByYear   RankField = "year"
)

// ParseRankField maps a query parameter to a RankField. Empty means rating.
func ParseRankField(s string) (RankField, error) {
	switch RankField(s) {
	case "", RankByRating:
		return RankByRating, nil
	case RankByYear:
		return RankByYear, nil
	default:
		return "", &InvalidArgumentError{Name: "by", Value: s, Reason: "must be rating or year"}
	}
}

// TopN returns the n highest-ranked records, highest first. Ties keep source
// order. A table with fewer than n records is returned whole.
func TopN(t *MovieTable, n int, by RankField) ([]MovieRecord, error) {
	if n <= 0 {
		return nil, &InvalidArgumentError{Name: "n", Value: n, Reason: "must be positive"}
	}

	var key func(*MovieRecord) float64
	switch by {
	case "", RankByRating:
		key = func(r *MovieRecord) float64 { return r.Rating }
	case RankByYear:
		key = func(r *MovieRecord) float64 { return float64(r.Year) }
	default:
		return nil, &InvalidArgumentError{Name: "by", Value: by, Reason: "must be rating or year"}
	}

	ranked := t.Records()
	sort.SliceStable(ranked, func(i, j int) bool { return key(&ranked[i]) > key(&ranked[j]) })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}
