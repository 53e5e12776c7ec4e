// Package atd reads arrival-time distribution datasets.
//
// A dataset is a tab-separated table: the header row names the columns, the
// first column holds the arrival-time series and every further column holds
// one distribution (ATD) keyed by its header label.
package atd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Sentinel errors.
var (
	// ErrMalformed is returned when a row cannot be parsed.
	ErrMalformed = errors.New("malformed dataset")
	// ErrNoTraces is returned when the dataset has no distribution columns.
	ErrNoTraces = errors.New("dataset has no distribution columns")
	// ErrUnknownKey is returned when a requested ATD key is absent.
	ErrUnknownKey = errors.New("unknown ATD key")
)

// Dataset is a parsed ATD table.
type Dataset struct {
	// Name identifies the dataset, usually the file name without extension.
	Name string
	// TimeLabel is the header of the arrival-time column.
	TimeLabel string
	// Times is the arrival-time series.
	Times  []float64
	traces map[string][]float64
	keys   []string
}

// New builds a dataset from in-memory columns. Every trace must be as long
// as times.
func New(name string, times []float64, traces map[string][]float64) (*Dataset, error) {
	if len(traces) == 0 {
		return nil, ErrNoTraces
	}

	ds := &Dataset{Name: name, Times: slices.Clone(times), traces: make(map[string][]float64, len(traces))}

	for key, trace := range traces {
		if len(trace) != len(times) {
			return nil, fmt.Errorf("%w: column %q has %d samples, want %d", ErrMalformed, key, len(trace), len(times))
		}

		ds.traces[key] = slices.Clone(trace)
		ds.keys = append(ds.keys, key)
	}

	SortNatural(ds.keys)

	return ds, nil
}

// ReadFile parses the dataset at path. The dataset is named after the file.
func ReadFile(path string) (*Dataset, error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf("open dataset: %w", openErr)
	}
	defer f.Close()

	base := filepath.Base(path)

	return Read(f, strings.TrimSuffix(base, filepath.Ext(base)))
}

// Read parses a tab-separated dataset from r.
func Read(r io.Reader, name string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	header, headerErr := reader.Read()
	if errors.Is(headerErr, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	if headerErr != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformed, headerErr)
	}

	header = trimTrailingEmpty(header)
	if len(header) < 2 {
		return nil, ErrNoTraces
	}

	columns := make([][]float64, len(header))

	for line := 2; ; line++ {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, readErr)
		}

		record = trimTrailingEmpty(record)
		if len(record) == 0 {
			continue
		}

		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", ErrMalformed, line, len(record), len(header))
		}

		for i, field := range record {
			v, parseErr := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if parseErr != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %w", ErrMalformed, line, header[i], parseErr)
			}

			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: line %d column %q: non-finite value %q", ErrMalformed, line, header[i], field)
			}

			columns[i] = append(columns[i], v)
		}
	}

	traces := make(map[string][]float64, len(header)-1)

	for i, label := range header[1:] {
		label = strings.TrimSpace(label)
		if _, dup := traces[label]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformed, label)
		}

		traces[label] = columns[i+1]
	}

	ds, newErr := New(name, columns[0], traces)
	if newErr != nil {
		return nil, newErr
	}

	ds.TimeLabel = strings.TrimSpace(header[0])

	return ds, nil
}

// trimTrailingEmpty drops empty fields left by trailing tabs and CR line ends.
func trimTrailingEmpty(record []string) []string {
	for len(record) > 0 && strings.TrimSpace(record[len(record)-1]) == "" {
		record = record[:len(record)-1]
	}

	return record
}

// Keys returns the ATD keys in natural order.
func (d *Dataset) Keys() []string {
	return slices.Clone(d.keys)
}

// Len returns the number of samples per series.
func (d *Dataset) Len() int {
	return len(d.Times)
}

// Trace returns a copy of the ATD stored under key.
func (d *Dataset) Trace(key string) ([]float64, error) {
	trace, ok := d.traces[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	return slices.Clone(trace), nil
}

// Write emits the dataset in the tab-separated format accepted by Read.
func (d *Dataset) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	timeLabel := d.TimeLabel
	if timeLabel == "" {
		timeLabel = d.Name
	}

	header := append([]string{timeLabel}, d.keys...)

	writeErr := writer.Write(header)
	if writeErr != nil {
		return fmt.Errorf("write header: %w", writeErr)
	}

	row := make([]string, len(header))

	for i, t := range d.Times {
		row[0] = strconv.FormatFloat(t, 'g', -1, 64)

		for j, key := range d.keys {
			row[j+1] = strconv.FormatFloat(d.traces[key][i], 'g', -1, 64)
		}

		rowErr := writer.Write(row)
		if rowErr != nil {
			return fmt.Errorf("write row %d: %w", i, rowErr)
		}
	}

	writer.Flush()

	return writer.Error()
}
