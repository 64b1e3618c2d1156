package decoder

import "fmt"

// FromMatrix converts an N×K score matrix whose columns follow labels into
// per-position distributions.
func FromMatrix(labels []Label, rows [][]float64) ([]Distribution, error) {
	dists := make([]Distribution, len(rows))
	for t, row := range rows {
		if len(row) != len(labels) {
			return nil, fmt.Errorf("%w: row %d has %d scores for %d labels",
				ErrMalformedInput, t, len(row), len(labels))
		}
		d := make(Distribution, len(labels))
		for y, l := range labels {
			d[l] = row[y]
		}
		dists[t] = d
	}
	return dists, nil
}
