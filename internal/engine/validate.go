package engine

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Validate checks that raw carries the Title, Year and Rating columns and
// converts its rows into a MovieTable.
//
// Header names match case-insensitively, ignoring surrounding spaces. Rows
// whose Year is not an integer or whose Rating is not a finite number are
// dropped and listed in MovieTable.Skipped; they never reach the queries.
// So are rows too short to hold all three. Missing pass-through cells are
// empty strings.
func Validate(raw *RawTable, logger *zap.Logger) (*MovieTable, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	roles, err := resolveRoles(raw)
	if err != nil {
		return nil, err
	}

	t := &MovieTable{
		source:      raw.Source,
		columns:     append([]string(nil), raw.Header...),
		roles:       roles,
		records:     make([]MovieRecord, 0, len(raw.Rows)),
		fingerprint: raw.Fingerprint,
	}

	idx := make(map[string]int, len(raw.Header))
	for i, h := range raw.Header {
		idx[h] = i
	}
	ti, yi, ri := idx[roles.title], idx[roles.year], idx[roles.rating]

	for n, row := range raw.Rows {
		line := n + 2
		if n < len(raw.Lines) {
			line = raw.Lines[n]
		}

		if col, ok := missingRole(row, roles, ti, yi, ri); ok {
			t.skipped = append(t.skipped, RowIssue{Line: line, Column: col})
			continue
		}

		year, ok := parseYear(row[yi])
		if !ok {
			t.skipped = append(t.skipped, RowIssue{Line: line, Column: roles.year, Value: row[yi]})
			continue
		}
		rating, ok := parseRating(row[ri])
		if !ok {
			t.skipped = append(t.skipped, RowIssue{Line: line, Column: roles.rating, Value: row[ri]})
			continue
		}

		rec := MovieRecord{Title: row[ti], Year: year, Rating: rating}
		if len(raw.Header) > 3 {
			rec.Extra = make(map[string]string, len(raw.Header)-3)
			for i, h := range raw.Header {
				if i == ti || i == yi || i == ri {
					continue
				}
				if i < len(row) {
					rec.Extra[h] = row[i]
				} else {
					rec.Extra[h] = ""
				}
			}
		}
		t.records = append(t.records, rec)
	}

	if len(t.skipped) > 0 {
		logger.Warn("dropped rows with missing or non-numeric year or rating",
			zap.String("source", raw.Source),
			zap.Int("dropped", len(t.skipped)),
			zap.Int("first_line", t.skipped[0].Line),
		)
	}
	return t, nil
}

// missingRole returns the first required column row has no cell for, checking
// Year, then Rating, then Title.
func missingRole(row []string, roles columnRoles, ti, yi, ri int) (string, bool) {
	switch {
	case yi >= len(row):
		return roles.year, true
	case ri >= len(row):
		return roles.rating, true
	case ti >= len(row):
		return roles.title, true
	}
	return "", false
}

// resolveRoles finds the header names holding Title, Year and Rating.
func resolveRoles(raw *RawTable) (columnRoles, error) {
	seen := make(map[string]string, len(raw.Header))
	for _, h := range raw.Header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := seen[key]; dup {
			return columnRoles{}, &SchemaError{URI: raw.Source, Column: strings.TrimSpace(h), Reason: "duplicate"}
		}
		seen[key] = h
	}

	var roles columnRoles
	for _, want := range []struct {
		name string
		dst  *string
	}{
		{ColTitle, &roles.title},
		{ColYear, &roles.year},
		{ColRating, &roles.rating},
	} {
		h, ok := seen[strings.ToLower(want.name)]
		if !ok {
			return columnRoles{}, &SchemaError{URI: raw.Source, Column: want.name, Reason: "missing"}
		}
		*want.dst = h
	}
	return roles, nil
}

// parseRating accepts finite decimal numbers only; NaN and infinities are
// treated as missing.
func parseRating(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
