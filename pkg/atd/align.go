package atd

import "slices"

// AlignmentIndex returns the lower of the indices of the two largest samples
// of trace. A single-sample trace aligns on index 0.
func AlignmentIndex(trace []float64) int {
	if len(trace) < 2 {
		return 0
	}

	first, second := 0, -1

	for i := 1; i < len(trace); i++ {
		switch {
		case trace[i] > trace[first]:
			first, second = i, first
		case second < 0 || trace[i] > trace[second]:
			second = i
		}
	}

	return min(first, second)
}

// Align returns a copy of the dataset in which every ATD is shifted left so
// that its alignment index matches the smallest alignment index of the set.
// Shifted-out samples are dropped and the tail is zero padded. The returned
// map holds the shift applied per key.
func (d *Dataset) Align() (*Dataset, map[string]int) {
	indices := make(map[string]int, len(d.keys))
	lowest := -1

	for _, key := range d.keys {
		idx := AlignmentIndex(d.traces[key])
		indices[key] = idx

		if lowest < 0 || idx < lowest {
			lowest = idx
		}
	}

	out := &Dataset{
		Name:      d.Name,
		TimeLabel: d.TimeLabel,
		Times:     slices.Clone(d.Times),
		traces:    make(map[string][]float64, len(d.traces)),
		keys:      slices.Clone(d.keys),
	}

	shifts := make(map[string]int, len(d.keys))

	for _, key := range d.keys {
		shift := indices[key] - lowest
		shifts[key] = shift

		trace := d.traces[key]
		shifted := make([]float64, len(trace))
		copy(shifted, trace[shift:])

		out.traces[key] = shifted
	}

	return out, shifts
}
