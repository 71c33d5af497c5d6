package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBytes     = 32 << 20
)

// --- 1. RAW TABLE ---

// RawTable is a parsed but unvalidated delimited-text resource.
type RawTable struct {
	Source      string
	Header      []string
	Rows        [][]string
	Lines       []int // source line of each row
	Fingerprint uint64
}

// ParseDelimited parses comma-delimited text with a header row. Quoted fields
// follow the usual CSV escaping. A UTF-8 byte order mark is ignored.
//
// Parsing is lenient: rows may have fewer or more fields than the header and
// a stray quote inside an unquoted field is kept as text. Short rows are left
// for Validate to drop.
func ParseDelimited(source string, data []byte) (*RawTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &LoadError{URI: source, Op: "parse", Err: errors.New("empty document")}
	}

	decoded := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, &LoadError{URI: source, Op: "parse", Err: fmt.Errorf("read header: %w", err)}
	}

	raw := &RawTable{
		Source:      source,
		Header:      header,
		Fingerprint: xxh3.Hash(data),
	}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{URI: source, Op: "parse", Err: err}
		}
		line, _ := reader.FieldPos(0)
		raw.Rows = append(raw.Rows, row)
		raw.Lines = append(raw.Lines, line)
	}
	return raw, nil
}

// --- 2. LOADER ---

// LoadObserver is notified once per Load call.
type LoadObserver interface {
	ObserveLoad(source string, cacheHit bool, elapsed time.Duration, err error)
}

// Loader fetches, parses and validates a dataset and keeps the last
// successfully loaded table in a single-slot cache keyed by source URI.
type Loader struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
	observer LoadObserver

	slot  cacheSlot
	group singleflight.Group
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) { l.client = c }
}

// WithMaxBytes caps the size of a fetched document.
func WithMaxBytes(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func WithObserver(o LoadObserver) LoaderOption {
	return func(l *Loader) { l.observer = o }
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		client:   &http.Client{Timeout: DefaultFetchTimeout},
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the table for sourceURI. A cached table for the same URI is
// returned without I/O. Concurrent misses for one URI share a single fetch.
// Failures are not cached and are never retried here.
func (l *Loader) Load(ctx context.Context, sourceURI string) (*MovieTable, error) {
	start := time.Now()

	if t, ok := l.slot.get(sourceURI); ok {
		l.observe(sourceURI, true, start, nil)
		return t, nil
	}

	v, err, _ := l.group.Do(sourceURI, func() (interface{}, error) {
		// Another caller may have filled the slot while we waited.
		if t, ok := l.slot.get(sourceURI); ok {
			return t, nil
		}
		t, err := l.loadUncached(ctx, sourceURI)
		if err != nil {
			return nil, err
		}
		l.slot.put(sourceURI, t)
		return t, nil
	})
	l.observe(sourceURI, false, start, err)
	if err != nil {
		return nil, err
	}
	return v.(*MovieTable), nil
}

func (l *Loader) loadUncached(ctx context.Context, sourceURI string) (*MovieTable, error) {
	log := l.logger.With(zap.String("source", sourceURI))
	log.Info("loading dataset")
	start := time.Now()

	data, err := l.fetch(ctx, sourceURI)
	if err != nil {
		log.Error("dataset fetch failed", zap.Error(err))
		return nil, err
	}

	raw, err := ParseDelimited(sourceURI, data)
	if err != nil {
		log.Error("dataset parse failed", zap.Error(err))
		return nil, err
	}

	table, err := Validate(raw, log)
	if err != nil {
		log.Error("dataset rejected", zap.Error(err))
		return nil, err
	}

	log.Info("dataset loaded",
		zap.Int("rows", table.Len()),
		zap.Int("skipped", len(table.skipped)),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

func (l *Loader) observe(source string, hit bool, start time.Time, err error) {
	if l.observer != nil {
		l.observer.ObserveLoad(source, hit, time.Since(start), err)
	}
}

// --- 3. FETCH ---

func (l *Loader) fetch(ctx context.Context, sourceURI string) ([]byte, error) {
	u, err := url.Parse(sourceURI)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters, are files.
		return l.readFile(sourceURI, sourceURI)
	}
	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, sourceURI)
	case "file":
		return l.readFile(sourceURI, u.Path)
	default:
		return nil, &LoadError{URI: sourceURI, Op: "fetch", Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, sourceURI string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURI, nil)
	if err != nil {
		return nil, &LoadError{URI: sourceURI, Op: "fetch", Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &LoadError{URI: sourceURI, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{URI: sourceURI, Op: "fetch", StatusCode: resp.StatusCode}
	}
	return l.readLimited(sourceURI, resp.Body)
}

func (l *Loader) readFile(sourceURI, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{URI: sourceURI, Op: "read", Err: err}
	}
	defer f.Close()
	return l.readLimited(sourceURI, f)
}

func (l *Loader) readLimited(sourceURI string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, &LoadError{URI: sourceURI, Op: "read", Err: err}
	}
	if int64(len(data)) > l.maxBytes {
		return nil, &LoadError{URI: sourceURI, Op: "read", Err: fmt.Errorf("document exceeds %d bytes", l.maxBytes)}
	}
	return data, nil
}

// --- 4. FIELD PARSERS ---

// parseYear parses a base-10 integer such as "1994", allowing surrounding
// spaces and a leading sign. It rejects anything else.
func parseYear(s string) (int, bool) {
	b := strings.TrimSpace(s)
	if b == "" {
		return 0, false
	}
	neg := false
	if b[0] == '-' || b[0] == '+' {
		neg = b[0] == '-'
		b = b[1:]
	}
	if b == "" || len(b) > 9 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}
