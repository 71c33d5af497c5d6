package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"moviestats/internal/config"
	"moviestats/internal/engine"
	"moviestats/internal/metrics"
	"moviestats/internal/models"
)

var errLoading = echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is still loading")

// datasetState is swapped in once the background load finishes.
type datasetState struct {
	table *engine.MovieTable
	err   error
}

type Handler struct {
	state   atomic.Pointer[datasetState]
	query   config.QueryConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a handler with no data. Until SetData is called every
// dataset route answers 503.
func NewHandler(query config.QueryConfig, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{query: query, logger: logger, metrics: m}
}

// SetData publishes the outcome of the dataset load. A non-nil err keeps the
// API in the failed state; nothing retries the load.
func (h *Handler) SetData(t *engine.MovieTable, err error) {
	h.state.Store(&datasetState{table: t, err: err})
	if err != nil {
		h.logger.Error("dataset unavailable, serving errors", zap.Error(err))
		return
	}
	if h.metrics != nil {
		h.metrics.SetDataset(t)
	}
	h.logger.Info("dataset ready", zap.Int("rows", t.Len()))
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.GetHealth)

	api := e.Group("/api")
	api.GET("/dataset", h.GetDataset)
	api.GET("/movies", h.GetMovies)
	api.GET("/movies/filter", h.GetFilteredMovies)
	api.GET("/movies/top", h.GetTopMovies)
	api.GET("/movies/export", h.ExportMovies)
	api.GET("/decades", h.GetDecadeAverages)
}

// --- HELPERS ---

func (h *Handler) table() (*engine.MovieTable, error) {
	s := h.state.Load()
	if s == nil {
		return nil, errLoading
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

func (h *Handler) observe(op string, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.ObserveQuery(op, time.Since(start), err)
	}
}

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func intParam(c echo.Context, name string) (int, bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, &engine.InvalidArgumentError{Name: name, Value: v, Reason: "must be an integer"}
	}
	return n, true, nil
}

// yearRange reads from/to. Missing values fall back to the configured default
// range clamped to the years present in the dataset.
func (h *Handler) yearRange(c echo.Context, t *engine.MovieTable) (engine.YearRange, error) {
	r := engine.YearRange{Min: h.query.DefaultFrom, Max: h.query.DefaultTo}
	if bounds, ok := t.YearBounds(); ok {
		r = r.Clamp(bounds)
	}

	from, ok, err := intParam(c, "from")
	if err != nil {
		return r, err
	}
	if ok {
		r.Min = from
	}
	to, ok, err := intParam(c, "to")
	if err != nil {
		return r, err
	}
	if ok {
		r.Max = to
	}
	return r, nil
}

func (h *Handler) filtered(c echo.Context, t *engine.MovieTable) (*engine.MovieTable, engine.YearRange, error) {
	r, err := h.yearRange(c, t)
	if err != nil {
		return nil, r, err
	}
	start := time.Now()
	out, err := engine.FilterByYearRange(t, r)
	h.observe("filter", start, err)
	return out, r, err
}

// --- HANDLERS ---

func (h *Handler) GetHealth(c echo.Context) error {
	s := h.state.Load()
	switch {
	case s == nil:
		return c.JSON(http.StatusOK, models.Health{Status: "loading"})
	case s.err != nil:
		return c.JSON(http.StatusOK, models.Health{Status: "failed", Error: s.err.Error()})
	default:
		return c.JSON(http.StatusOK, models.Health{Status: "ready"})
	}
}

func (h *Handler) GetDataset(c echo.Context) error {
	t, err := h.table()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSummary(t))
}

// GetMovies returns the full table, paginated.
func (h *Handler) GetMovies(c echo.Context) error {
	t, err := h.table()
	if err != nil {
		return err
	}
	total := t.Len()
	limit, offset := getPaginationParams(c, total)

	page := models.MoviePage{Data: []models.Movie{}, Total: total, Limit: limit, Offset: offset}
	if offset >= total {
		return c.JSON(http.StatusOK, page)
	}
	end := min(offset+limit, total)
	page.Data = make([]models.Movie, 0, end-offset)
	for i := offset; i < end; i++ {
		page.Data = append(page.Data, toMovie(t.At(i)))
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetFilteredMovies(c echo.Context) error {
	t, err := h.table()
	if err != nil {
		return err
	}
	out, r, err := h.filtered(c, t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.FilteredMovies{
		From:  r.Min,
		To:    r.Max,
		Count: out.Len(),
		Data:  toMovies(out.Records()),
	})
}

// GetTopMovies ranks the year-filtered view.
func (h *Handler) GetTopMovies(c echo.Context) error {
	t, err := h.table()
	if err != nil {
		return err
	}
	n := h.query.TopN
	if v, ok, err := intParam(c, "n"); err != nil {
		return err
	} else if ok {
		n = v
	}
	by, err := engine.ParseRankField(c.QueryParam("by"))
	if err != nil {
		return err
	}

	out, r, err := h.filtered(c, t)
	if err != nil {
		return err
	}
	start := time.Now()
	ranked, err := engine.TopN(out, n, by)
	h.observe("top", start, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.TopMovies{From: r.Min, To: r.Max, N: n, By: string(by), Data: toMovies(ranked)})
}

// GetDecadeAverages aggregates the whole table unless from or to is given.
func (h *Handler) GetDecadeAverages(c echo.Context) error {
	t, err := h.table()
	if err != nil {
		return err
	}
	resp := models.DecadeAverages{}
	if c.QueryParam("from") != "" || c.QueryParam("to") != "" {
		out, r, err := h.filtered(c, t)
		if err != nil {
			return err
		}
		t = out
		resp.From, resp.To = &r.Min, &r.Max
	}

	start := time.Now()
	resp.Data = toDecades(engine.AggregateByDecade(t))
	h.observe("decades", start, nil)
	return c.JSON(http.StatusOK, resp)
}

// ExportMovies downloads the year-filtered view as CSV (default) or Arrow.
func (h *Handler) ExportMovies(c echo.Context) error {
	t, err := h.table()
	if err != nil {
		return err
	}
	out, _, err := h.filtered(c, t)
	if err != nil {
		return err
	}

	var (
		body        []byte
		filename    string
		contentType string
	)
	start := time.Now()
	switch format := c.QueryParam("format"); format {
	case "", "csv":
		var text string
		text, err = engine.ToDelimitedText(out)
		body, filename, contentType = []byte(text), engine.ExportFilename, engine.ExportMIMEType
	case "arrow":
		body, err = engine.ToArrowIPC(out)
		filename, contentType = engine.ArrowExportFilename, engine.ArrowExportMIMEType
	default:
		err = &engine.InvalidArgumentError{Name: "format", Value: format, Reason: "must be csv or arrow"}
	}
	h.observe("export", start, err)
	if err != nil {
		return err
	}

	etag := fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
	header := c.Response().Header()
	header.Set("ETag", etag)
	if etagMatches(c.Request().Header.Get("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, contentType, body)
}

// etagMatches applies the weak comparison If-None-Match uses: "*" matches
// anything, otherwise any listed tag equal to etag once W/ is stripped.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	etag = strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

// isDatasetError reports whether err means there is no data to serve.
func isDatasetError(err error) bool {
	return errors.Is(err, engine.ErrLoad) || errors.Is(err, engine.ErrSchema)
}
