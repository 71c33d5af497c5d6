package models

type Movie struct {
	Title  string            `json:"title"`
	Year   int               `json:"year"`
	Rating float64           `json:"rating"`
	Extra  map[string]string `json:"extra,omitempty"`
}

type MoviePage struct {
	Data   []Movie `json:"data"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

type FilteredMovies struct {
	From  int     `json:"from"`
	To    int     `json:"to"`
	Count int     `json:"count"`
	Data  []Movie `json:"data"`
}

type TopMovies struct {
	From int     `json:"from"`
	To   int     `json:"to"`
	N    int     `json:"n"`
	By   string  `json:"by"`
	Data []Movie `json:"data"`
}

type DecadeItem struct {
	Decade  int     `json:"decade"`
	Average float64 `json:"average_rating"`
	Movies  int     `json:"movies"`
}

type DecadeAverages struct {
	From *int         `json:"from,omitempty"`
	To   *int         `json:"to,omitempty"`
	Data []DecadeItem `json:"data"`
}

type SkippedRow struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

type DatasetSummary struct {
	Source      string       `json:"source"`
	Rows        int          `json:"rows"`
	Columns     []string     `json:"columns"`
	MinYear     int          `json:"min_year"`
	MaxYear     int          `json:"max_year"`
	Skipped     []SkippedRow `json:"skipped"`
	Fingerprint string       `json:"fingerprint"`
}

type Health struct {
	Status string `json:"status"` // loading, ready or failed
	Error  string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
