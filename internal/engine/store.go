package engine

import "maps"

// Canonical names of the columns the engine depends on.
const (
	ColTitle  = "Title"
	ColYear   = "Year"
	ColRating = "Rating"
)

// MovieRecord is one validated row. Extra carries every column the engine
// does not interpret, keyed by its original header name.
type MovieRecord struct {
	Title  string
	Year   int
	Rating float64
	Extra  map[string]string
}

// clone returns a copy that shares nothing with r.
func (r MovieRecord) clone() MovieRecord {
	if r.Extra != nil {
		r.Extra = maps.Clone(r.Extra)
	}
	return r
}

// RowIssue describes a source row dropped during validation.
type RowIssue struct {
	Line   int // 1-based, the header is line 1
	Column string
	Value  string
}

// MovieTable is an ordered, read-only set of records in source order.
// Every accessor hands out copies; derived views are new tables.
type MovieTable struct {
	source      string
	columns     []string // original header, original order
	roles       columnRoles
	records     []MovieRecord
	skipped     []RowIssue
	fingerprint uint64
}

// columnRoles maps the canonical columns to the header names used by the source.
type columnRoles struct {
	title, year, rating string
}

// NewMovieTable builds a table from canonical column names. Columns not named
// Title/Year/Rating are pass-through and read from each record's Extra.
func NewMovieTable(source string, columns []string, records []MovieRecord) *MovieTable {
	t := &MovieTable{
		source:  source,
		columns: append([]string(nil), columns...),
		roles:   columnRoles{title: ColTitle, year: ColYear, rating: ColRating},
		records: make([]MovieRecord, len(records)),
	}
	for i, r := range records {
		t.records[i] = r.clone()
	}
	return t
}

// derive returns an empty table with the same schema and provenance.
func (t *MovieTable) derive(capacity int) *MovieTable {
	return &MovieTable{
		source:      t.source,
		columns:     t.columns,
		roles:       t.roles,
		records:     make([]MovieRecord, 0, capacity),
		fingerprint: t.fingerprint,
	}
}

func (t *MovieTable) Source() string      { return t.source }
func (t *MovieTable) Len() int            { return len(t.records) }
func (t *MovieTable) Fingerprint() uint64 { return t.fingerprint }

// Columns returns the header in source order.
func (t *MovieTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// At returns a copy of the i-th record.
func (t *MovieTable) At(i int) MovieRecord {
	return t.records[i].clone()
}

// Records returns a copy of all records in source order.
func (t *MovieTable) Records() []MovieRecord {
	out := make([]MovieRecord, len(t.records))
	for i, r := range t.records {
		out[i] = r.clone()
	}
	return out
}

// Skipped returns the rows dropped during validation.
func (t *MovieTable) Skipped() []RowIssue {
	return append([]RowIssue(nil), t.skipped...)
}

// YearBounds returns the observed [min, max] year. ok is false for an empty table.
func (t *MovieTable) YearBounds() (bounds YearRange, ok bool) {
	if len(t.records) == 0 {
		return YearRange{}, false
	}
	bounds = YearRange{Min: t.records[0].Year, Max: t.records[0].Year}
	for _, r := range t.records[1:] {
		bounds.Min = min(bounds.Min, r.Year)
		bounds.Max = max(bounds.Max, r.Year)
	}
	return bounds, true
}

// value renders the named column of r as source text.
func (t *MovieTable) value(r *MovieRecord, column string) string {
	switch column {
	case t.roles.title:
		return r.Title
	case t.roles.year:
		return formatYear(r.Year)
	case t.roles.rating:
		return formatRating(r.Rating)
	default:
		return r.Extra[column]
	}
}
