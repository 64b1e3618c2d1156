package decoder

import (
	"fmt"
	"sort"
)

// Independent picks the highest scoring label at each position without
// consulting any grammar.
type Independent struct {
	labels []Label
	index  map[Label]int
}

// NewIndependent returns an argmax decoder. When labels are given they fix
// the tie-break order and every distribution must stay within them; without
// labels ties are broken lexicographically.
func NewIndependent(labels ...Label) *Independent {
	ind := &Independent{}
	if len(labels) > 0 {
		ind.labels = append([]Label(nil), labels...)
		ind.index = make(map[Label]int, len(labels))
		for i, l := range labels {
			if _, ok := ind.index[l]; !ok {
				ind.index[l] = i
			}
		}
	}
	return ind
}

// DecodeIndependent takes the per-position argmax, breaking ties
// lexicographically.
func DecodeIndependent(dists []Distribution) (Sequence, error) {
	return NewIndependent().Decode(dists)
}

// Decode returns the argmax label at every position.
func (d *Independent) Decode(dists []Distribution) (Sequence, error) {
	if err := checkScores(dists); err != nil {
		return nil, err
	}
	seq := make(Sequence, len(dists))
	for t, dist := range dists {
		candidates, err := d.candidates(t, dist)
		if err != nil {
			return nil, err
		}
		best := candidates[0]
		for _, l := range candidates[1:] {
			if dist[l] > dist[best] {
				best = l
			}
		}
		seq[t] = best
	}
	return seq, nil
}

// candidates lists the labels to consider at position t in tie-break order.
func (d *Independent) candidates(t int, dist Distribution) ([]Label, error) {
	if d.labels != nil {
		for l := range dist {
			if _, ok := d.index[l]; !ok {
				return nil, fmt.Errorf("%w: unknown label %q at position %d", ErrMalformedInput, l, t)
			}
		}
		return d.labels, nil
	}
	if len(dist) == 0 {
		return nil, fmt.Errorf("%w: empty distribution at position %d", ErrMalformedInput, t)
	}
	labels := make([]Label, 0, len(dist))
	for l := range dist {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels, nil
}
