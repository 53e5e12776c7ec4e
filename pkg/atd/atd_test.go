package atd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
)

const sample = "time\t10V\t2V\t5V\r\n" +
	"0.1\t1\t4\t0\r\n" +
	"0.2\t3\t5\t2\r\n" +
	"\r\n" +
	"0.3\t2\t1\t7\r\n"

func TestRead(t *testing.T) {
	t.Parallel()

	ds, err := atd.Read(strings.NewReader(sample), "run1")
	require.NoError(t, err)

	assert.Equal(t, "run1", ds.Name)
	assert.Equal(t, "time", ds.TimeLabel)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, ds.Times)
	assert.Equal(t, []string{"2V", "5V", "10V"}, ds.Keys())
	assert.Equal(t, 3, ds.Len())

	trace, err := ds.Trace("10V")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2}, trace)

	_, err = ds.Trace("99V")
	require.ErrorIs(t, err, atd.ErrUnknownKey)
}

func TestReadTraceIsCopy(t *testing.T) {
	t.Parallel()

	ds, err := atd.Read(strings.NewReader(sample), "run1")
	require.NoError(t, err)

	trace, err := ds.Trace("2V")
	require.NoError(t, err)

	trace[0] = 100

	again, err := ds.Trace("2V")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, again[0], 1e-12)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		target error
	}{
		{name: "empty", input: "", target: atd.ErrMalformed},
		{name: "time_only", input: "time\n1\n2\n", target: atd.ErrNoTraces},
		{name: "ragged_row", input: "t\ta\tb\n1\t2\n", target: atd.ErrMalformed},
		{name: "not_a_number", input: "t\ta\n1\tx\n", target: atd.ErrMalformed},
		{name: "nan_cell", input: "t\ta\n1\tNaN\n", target: atd.ErrMalformed},
		{name: "inf_cell", input: "t\ta\n1\t2\n+Inf\t3\n", target: atd.ErrMalformed},
		{name: "duplicate_column", input: "t\ta\ta\n1\t2\t3\n", target: atd.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := atd.Read(strings.NewReader(tt.input), "x")
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestReadFileNamesDataset(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ubiquitin.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	ds, err := atd.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ubiquitin", ds.Name)

	_, err = atd.ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	ds, err := atd.Read(strings.NewReader(sample), "run1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ds.Write(&buf))

	back, err := atd.Read(&buf, "run1")
	require.NoError(t, err)

	assert.Equal(t, ds.Keys(), back.Keys())
	assert.Equal(t, ds.Times, back.Times)

	for _, key := range ds.Keys() {
		want, _ := ds.Trace(key)
		got, _ := back.Trace(key)
		assert.Equal(t, want, got, key)
	}
}

func TestNewValidatesLengths(t *testing.T) {
	t.Parallel()

	_, err := atd.New("x", []float64{1, 2}, map[string][]float64{"a": {1}})
	require.ErrorIs(t, err, atd.ErrMalformed)

	_, err = atd.New("x", []float64{1, 2}, nil)
	require.ErrorIs(t, err, atd.ErrNoTraces)
}

func TestSortNatural(t *testing.T) {
	t.Parallel()

	keys := []string{"10V", "2V", "100V", "1V", "05V", "5V", "abc", "V"}
	atd.SortNatural(keys)

	assert.Equal(t, []string{"1V", "2V", "05V", "5V", "10V", "100V", "V", "abc"}, keys)
}

func TestAlignmentIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		trace    []float64
		expected int
	}{
		{name: "empty", trace: nil, expected: 0},
		{name: "single", trace: []float64{3}, expected: 0},
		{name: "max_before_runner_up", trace: []float64{0, 9, 1, 8, 0}, expected: 1},
		{name: "runner_up_before_max", trace: []float64{0, 8, 1, 9, 0}, expected: 1},
		{name: "adjacent_top", trace: []float64{0, 1, 5, 6, 2}, expected: 2},
		{name: "duplicate_max", trace: []float64{1, 7, 0, 7}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, atd.AlignmentIndex(tt.trace))
		})
	}
}

func TestAlign(t *testing.T) {
	t.Parallel()

	ds, err := atd.New("x", []float64{0, 1, 2, 3, 4, 5}, map[string][]float64{
		"1V": {0, 5, 6, 1, 0, 0},
		"2V": {0, 0, 0, 5, 6, 1},
		"3V": {0, 0, 5, 6, 1, 0},
	})
	require.NoError(t, err)

	aligned, shifts := ds.Align()

	assert.Equal(t, map[string]int{"1V": 0, "2V": 2, "3V": 1}, shifts)

	for key, want := range map[string][]float64{
		"1V": {0, 5, 6, 1, 0, 0},
		"2V": {0, 5, 6, 1, 0, 0},
		"3V": {0, 5, 6, 1, 0, 0},
	} {
		got, traceErr := aligned.Trace(key)
		require.NoError(t, traceErr)
		assert.Equal(t, want, got, key)
	}

	original, err := ds.Trace("2V")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 5, 6, 1}, original, "source must not be shifted")
}
