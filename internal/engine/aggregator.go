package engine

import "sort"

// DecadeAverage is the mean rating of the records falling in one decade.
type DecadeAverage struct {
	Decade  int
	Average float64
	Count   int
}

type decadeStats struct {
	sum   float64
	count int
}

// DecadeOf returns the decade bucket of year, e.g. 1994 -> 1990, -5 -> -10.
func DecadeOf(year int) int {
	d := year / 10
	if year%10 < 0 {
		d--
	}
	return d * 10
}

// AggregateByDecade groups every record of t by decade and averages the
// ratings. Only populated decades are returned, in ascending order. Pass a
// filtered table to aggregate a year range.
func AggregateByDecade(t *MovieTable) []DecadeAverage {
	// Sums accumulate in source order, so repeated calls agree bit for bit.
	stats := make(map[int]*decadeStats)
	for i := range t.records {
		d := DecadeOf(t.records[i].Year)
		s, ok := stats[d]
		if !ok {
			s = &decadeStats{}
			stats[d] = s
		}
		s.sum += t.records[i].Rating
		s.count++
	}

	out := make([]DecadeAverage, 0, len(stats))
	for d, s := range stats {
		out = append(out, DecadeAverage{Decade: d, Average: s.sum / float64(s.count), Count: s.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Decade < out[j].Decade })
	return out
}
