package atd

import (
	"slices"
	"strings"
)

// SortNatural sorts keys so embedded numbers compare by value ("2V" < "10V").
func SortNatural(keys []string) {
	slices.SortFunc(keys, CompareNatural)
}

// CompareNatural compares a and b chunk by chunk, digits as numbers and the
// rest as text. Equal-valued numbers with different zero padding fall back to
// plain string order.
func CompareNatural(a, b string) int {
	ra, rb := a, b

	for ra != "" && rb != "" {
		ca, restA := nextChunk(ra)
		cb, restB := nextChunk(rb)

		c := compareChunk(ca, cb)
		if c != 0 {
			return c
		}

		ra, rb = restA, restB
	}

	switch {
	case ra == "" && rb != "":
		return -1
	case ra != "" && rb == "":
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func nextChunk(s string) (chunk, rest string) {
	digit := isDigit(s[0])

	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}

	return s[:i], s[i:]
}

func compareChunk(a, b string) int {
	if !isDigit(a[0]) || !isDigit(b[0]) {
		return strings.Compare(a, b)
	}

	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")

	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}

		return 1
	}

	return strings.Compare(ta, tb)
}
