// Package decoder assigns one disfluency tag per token from per-position
// label scores.
//
// Two strategies are provided. Constrained finds the highest scoring label
// sequence that a transition grammar allows; Independent takes the argmax at
// every position and ignores the grammar.
//
//	seq, err := decoder.Decode(dists, decoder.DisfluencyGrammar())
//	if errors.Is(err, decoder.ErrDecodingInfeasible) {
//	    seq, err = decoder.DecodeIndependent(dists)
//	}
package decoder

import (
	"fmt"
	"math"
	"strings"
)

// Label is a single tag from a small closed alphabet.
type Label string

// Disfluency tags.
const (
	O    Label = "O"     // outside any edit region
	BE   Label = "BE"    // first token of an edit region
	BEIP Label = "BE-IP" // single-token edit region ending at an interruption point
	IP   Label = "IP"    // last token of an edit region (interruption point)
	IE   Label = "IE"    // inside an edit region
)

// Distribution holds the scores for one position. Labels without an entry
// score 0.
type Distribution map[Label]float64

// Sequence is a decoded label sequence; index i is the label at position i.
type Sequence []Label

// Score returns the summed score of the sequence under dists.
func (s Sequence) Score(dists []Distribution) float64 {
	var total float64
	for i, l := range s {
		if i < len(dists) {
			total += dists[i][l]
		}
	}
	return total
}

// String joins the labels with spaces.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, l := range s {
		parts[i] = string(l)
	}
	return strings.Join(parts, " ")
}

// checkScores rejects distributions that upstream sources must never produce.
func checkScores(dists []Distribution) error {
	for t, d := range dists {
		if d == nil {
			return fmt.Errorf("%w: missing distribution at position %d", ErrMalformedInput, t)
		}
		for l, v := range d {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: score %v for %q at position %d", ErrMalformedInput, v, l, t)
			}
		}
	}
	return nil
}
