package engine

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// Download metadata for exported views.
const (
	ExportFilename = "filtered_imdb.csv"
	ExportMIMEType = "text/csv"

	ArrowExportFilename = "filtered_imdb.arrow"
	ArrowExportMIMEType = "application/vnd.apache.arrow.stream"
)

func formatYear(y int) string { return strconv.Itoa(y) }

// formatRating uses the shortest text that parses back to the same float64.
func formatRating(r float64) string { return strconv.FormatFloat(r, 'f', -1, 64) }

// ToDelimitedText renders t as comma-delimited text: the source header, then
// one row per record. Fields holding commas, quotes or line breaks are quoted.
// ParseDelimited followed by Validate reproduces t, except that a \r\n inside
// a field reads back as \n. Tables loaded by ParseDelimited never hold \r\n,
// so loaded data round-trips exactly.
func ToDelimitedText(t *MovieTable) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(t.columns); err != nil {
		return "", fmt.Errorf("export header: %w", err)
	}
	row := make([]string, len(t.columns))
	for i := range t.records {
		for j, c := range t.columns {
			row[j] = t.value(&t.records[i], c)
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("export row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export flush: %w", err)
	}
	return sb.String(), nil
}

// ToArrowIPC renders t as an Arrow IPC stream holding one record batch.
// Year is int64, Rating float64, every other column utf8.
func ToArrowIPC(t *MovieTable) ([]byte, error) {
	fields := make([]arrow.Field, len(t.columns))
	for i, c := range t.columns {
		switch c {
		case t.roles.year:
			fields[i] = arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Int64}
		case t.roles.rating:
			fields[i] = arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Float64}
		default:
			fields[i] = arrow.Field{Name: c, Type: arrow.BinaryTypes.String}
		}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	for i := range t.records {
		r := &t.records[i]
		for j, c := range t.columns {
			switch fb := b.Field(j).(type) {
			case *array.Int64Builder:
				fb.Append(int64(r.Year))
			case *array.Float64Builder:
				fb.Append(r.Rating)
			case *array.StringBuilder:
				fb.Append(t.value(r, c))
			}
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	if err := w.Write(rec); err != nil {
		return nil, fmt.Errorf("arrow export: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("arrow export: %w", err)
	}
	return buf.Bytes(), nil
}
