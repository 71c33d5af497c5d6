package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviestats/internal/engine"
)

func TestObserveLoad(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLoad("src", false, 20*time.Millisecond, nil)
	m.ObserveLoad("src", true, 0, nil)
	m.ObserveLoad("src", true, 0, nil)
	m.ObserveLoad("src", false, time.Millisecond, &engine.SchemaError{Column: "Year", Reason: "missing"})
	m.ObserveLoad("src", false, time.Millisecond, &engine.LoadError{URI: "src", Op: "fetch"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("loaded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("cache_hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("schema_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("load_error")))
}

func TestObserveQuery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveQuery("top", time.Microsecond, nil)
	m.ObserveQuery("top", time.Microsecond, &engine.InvalidArgumentError{Name: "n"})
	m.ObserveQuery("filter", time.Microsecond, &engine.InvalidRangeError{Min: 2, Max: 1})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues("top", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues("top", "invalid_argument")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues("filter", "invalid_argument")))
}

func TestSetDatasetAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SetDataset(engine.NewMovieTable("src", []string{engine.ColTitle, engine.ColYear, engine.ColRating}, []engine.MovieRecord{
		{Title: "A", Year: 1990, Rating: 8},
		{Title: "B", Year: 1991, Rating: 7},
	}))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.datasetRows))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "moviestats_dataset_rows 2")
}
