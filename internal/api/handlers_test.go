package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moviestats/internal/config"
	"moviestats/internal/engine"
	"moviestats/internal/metrics"
	"moviestats/internal/models"
)

func newTestServer(t *testing.T) (*echo.Echo, *Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RateLimit = 0
	reg := prometheus.NewRegistry()
	h := NewHandler(cfg.Query, zap.NewNop(), metrics.New(reg))
	return NewServer(cfg, h, zap.NewNop(), reg), h
}

func readyServer(t *testing.T) *echo.Echo {
	t.Helper()
	e, h := newTestServer(t)
	h.SetData(engine.NewMovieTable("test://movies", []string{engine.ColTitle, engine.ColYear, engine.ColRating, "Director"}, []engine.MovieRecord{
		{Title: "Shawshank", Year: 1994, Rating: 9.3, Extra: map[string]string{"Director": "Darabont"}},
		{Title: "Godfather", Year: 1972, Rating: 9.2, Extra: map[string]string{"Director": "Coppola"}},
		{Title: "Dark Knight", Year: 2008, Rating: 9.0, Extra: map[string]string{"Director": "Nolan"}},
	}), nil)
	return e
}

func get(e *echo.Echo, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func movieTitles(movies []models.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Title
	}
	return out
}

func TestLoadingState(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/movies")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service_unavailable", decode[models.ErrorResponse](t, rec).Error)

	rec = get(e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loading", decode[models.Health](t, rec).Status)
}

func TestFailedLoadState(t *testing.T) {
	e, h := newTestServer(t)
	h.SetData(nil, &engine.LoadError{URI: "https://example.com/x.csv", Op: "fetch", StatusCode: 404})

	rec := get(e, "/api/movies/top")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "dataset_unavailable", body.Error)
	assert.Contains(t, body.Message, "cannot proceed, no data")
	assert.Equal(t, "https://example.com/x.csv", body.Details["uri"])
	assert.EqualValues(t, 404, body.Details["status_code"])

	health := decode[models.Health](t, get(e, "/healthz"))
	assert.Equal(t, "failed", health.Status)
	assert.Contains(t, health.Error, "HTTP 404")
}

func TestSchemaErrorState(t *testing.T) {
	e, h := newTestServer(t)
	h.SetData(nil, &engine.SchemaError{URI: "src", Column: "Rating", Reason: "missing"})

	rec := get(e, "/api/decades")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "dataset_schema", body.Error)
	assert.Equal(t, "Rating", body.Details["column"])
}

func TestGetDataset(t *testing.T) {
	rec := get(readyServer(t), "/api/dataset")
	require.Equal(t, http.StatusOK, rec.Code)

	s := decode[models.DatasetSummary](t, rec)
	assert.Equal(t, "test://movies", s.Source)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 1972, s.MinYear)
	assert.Equal(t, 2008, s.MaxYear)
	assert.Equal(t, []string{"Title", "Year", "Rating", "Director"}, s.Columns)
	assert.Empty(t, s.Skipped)
}

func TestGetMovies_Pagination(t *testing.T) {
	e := readyServer(t)

	page := decode[models.MoviePage](t, get(e, "/api/movies"))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"Shawshank", "Godfather", "Dark Knight"}, movieTitles(page.Data))
	assert.Equal(t, "Darabont", page.Data[0].Extra["Director"])

	page = decode[models.MoviePage](t, get(e, "/api/movies?limit=1&offset=1"))
	assert.Equal(t, []string{"Godfather"}, movieTitles(page.Data))

	page = decode[models.MoviePage](t, get(e, "/api/movies?offset=10"))
	assert.Empty(t, page.Data)
	assert.Equal(t, 3, page.Total)
}

func TestGetFilteredMovies(t *testing.T) {
	e := readyServer(t)

	rec := get(e, "/api/movies/filter?from=1990&to=2010")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[models.FilteredMovies](t, rec)
	assert.Equal(t, []string{"Shawshank", "Dark Knight"}, movieTitles(out.Data))
	assert.Equal(t, 2, out.Count)
}

func TestGetFilteredMovies_DefaultRangeIsClamped(t *testing.T) {
	out := decode[models.FilteredMovies](t, get(readyServer(t), "/api/movies/filter"))
	assert.Equal(t, 2000, out.From)
	assert.Equal(t, 2008, out.To)
	assert.Equal(t, []string{"Dark Knight"}, movieTitles(out.Data))
}

func TestGetFilteredMovies_BadParameters(t *testing.T) {
	e := readyServer(t)

	rec := get(e, "/api/movies/filter?from=2010&to=1990")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_range", decode[models.ErrorResponse](t, rec).Error)

	rec = get(e, "/api/movies/filter?from=nineteen")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "invalid_argument", body.Error)
	assert.Equal(t, "from", body.Details["name"])
}

func TestGetTopMovies(t *testing.T) {
	e := readyServer(t)

	out := decode[models.TopMovies](t, get(e, "/api/movies/top?from=1900&to=2100&n=2"))
	assert.Equal(t, []string{"Shawshank", "Godfather"}, movieTitles(out.Data))
	assert.Equal(t, 2, out.N)
	assert.Equal(t, "rating", out.By)

	out = decode[models.TopMovies](t, get(e, "/api/movies/top?from=1900&to=2100"))
	assert.Equal(t, 10, out.N)
	assert.Len(t, out.Data, 3)

	out = decode[models.TopMovies](t, get(e, "/api/movies/top?from=1900&to=2100&by=year&n=1"))
	assert.Equal(t, []string{"Dark Knight"}, movieTitles(out.Data))
}

func TestGetTopMovies_BadParameters(t *testing.T) {
	e := readyServer(t)

	for _, target := range []string{
		"/api/movies/top?n=0",
		"/api/movies/top?n=-1",
		"/api/movies/top?n=ten",
		"/api/movies/top?by=votes",
	} {
		rec := get(e, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "invalid_argument", decode[models.ErrorResponse](t, rec).Error, target)
	}
}

func TestGetDecadeAverages(t *testing.T) {
	e := readyServer(t)

	out := decode[models.DecadeAverages](t, get(e, "/api/decades"))
	assert.Nil(t, out.From)
	assert.Equal(t, []models.DecadeItem{
		{Decade: 1970, Average: 9.2, Movies: 1},
		{Decade: 1990, Average: 9.3, Movies: 1},
		{Decade: 2000, Average: 9.0, Movies: 1},
	}, out.Data)

	out = decode[models.DecadeAverages](t, get(e, "/api/decades?from=1990"))
	require.NotNil(t, out.From)
	assert.Equal(t, 1990, *out.From)
	assert.Equal(t, 2008, *out.To)
	assert.Len(t, out.Data, 2)
}

func TestExportMovies_CSV(t *testing.T) {
	e := readyServer(t)

	rec := get(e, "/api/movies/export?from=1990&to=2010")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="filtered_imdb.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "Title,Year,Rating,Director\nShawshank,1994,9.3,Darabont\nDark Knight,2008,9,Nolan\n", rec.Body.String())

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	rec = get(e, "/api/movies/export?from=1990&to=2010", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestExportMovies_IfNoneMatchForms(t *testing.T) {
	e := readyServer(t)
	target := "/api/movies/export?from=1990&to=2010"
	etag := get(e, target).Header().Get("ETag")
	require.NotEmpty(t, etag)

	tests := map[string]struct {
		header string
		want   int
	}{
		"list":      {`"0000000000000000", ` + etag, http.StatusNotModified},
		"weak":      {"W/" + etag, http.StatusNotModified},
		"wildcard":  {"*", http.StatusNotModified},
		"other tag": {`"0000000000000000"`, http.StatusOK},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(e, target, "If-None-Match", tt.header).Code)
		})
	}
}

func TestEtagMatches(t *testing.T) {
	assert.False(t, etagMatches("", `"abc"`))
	assert.True(t, etagMatches(`"abc"`, `"abc"`))
	assert.True(t, etagMatches(`W/"abc"`, `"abc"`))
	assert.True(t, etagMatches(`"x", "abc"`, `"abc"`))
	assert.False(t, etagMatches(`"abcd"`, `"abc"`))
}

func TestExportMovies_Arrow(t *testing.T) {
	rec := get(readyServer(t), "/api/movies/export?from=1900&to=2100&format=arrow")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.ArrowExportMIMEType, rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), engine.ArrowExportFilename))

	r, err := ipc.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer r.Release()
	require.True(t, r.Next())
	assert.EqualValues(t, 3, r.Record().NumRows())
}

func TestExportMovies_BadFormat(t *testing.T) {
	rec := get(readyServer(t), "/api/movies/export?format=xlsx")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := readyServer(t)
	get(e, "/api/movies/top?n=3")

	rec := get(e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `moviestats_queries_total{op="top",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "moviestats_dataset_rows 3")
}

func TestUnknownRoute(t *testing.T) {
	rec := get(readyServer(t), "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[models.ErrorResponse](t, rec).Error)
}
