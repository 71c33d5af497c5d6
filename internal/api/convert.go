package api

import (
	"fmt"

	"moviestats/internal/engine"
	"moviestats/internal/models"
)

func toMovie(r engine.MovieRecord) models.Movie {
	return models.Movie{Title: r.Title, Year: r.Year, Rating: r.Rating, Extra: r.Extra}
}

func toMovies(records []engine.MovieRecord) []models.Movie {
	out := make([]models.Movie, len(records))
	for i, r := range records {
		out[i] = toMovie(r)
	}
	return out
}

func toDecades(aggs []engine.DecadeAverage) []models.DecadeItem {
	out := make([]models.DecadeItem, len(aggs))
	for i, a := range aggs {
		out[i] = models.DecadeItem{Decade: a.Decade, Average: a.Average, Movies: a.Count}
	}
	return out
}

func toSummary(t *engine.MovieTable) models.DatasetSummary {
	s := models.DatasetSummary{
		Source:      t.Source(),
		Rows:        t.Len(),
		Columns:     t.Columns(),
		Skipped:     []models.SkippedRow{},
		Fingerprint: fmt.Sprintf("%016x", t.Fingerprint()),
	}
	if bounds, ok := t.YearBounds(); ok {
		s.MinYear, s.MaxYear = bounds.Min, bounds.Max
	}
	for _, r := range t.Skipped() {
		s.Skipped = append(s.Skipped, models.SkippedRow{Line: r.Line, Column: r.Column, Value: r.Value})
	}
	return s
}
