package decoder

import (
	"fmt"
	"math"
)

// Decoder maps per-position distributions to one label per position.
type Decoder interface {
	Decode(dists []Distribution) (Sequence, error)
}

// Strategy names accepted by NewDecoder.
const (
	StrategyConstrained = "constrained"
	StrategyIndependent = "independent"
)

// NewDecoder returns the decoder registered under strategy. The independent
// decoder uses the grammar's alphabet for tie-breaking only.
func NewDecoder(strategy string, g *Grammar) (Decoder, error) {
	switch strategy {
	case StrategyConstrained, "":
		return NewConstrained(g)
	case StrategyIndependent:
		if g == nil {
			return NewIndependent(), nil
		}
		return NewIndependent(g.Labels...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// Constrained finds the highest scoring label sequence allowed by a grammar.
// It holds no mutable state and is safe for concurrent use.
type Constrained struct {
	g *compiledGrammar
}

// NewConstrained validates and compiles g.
func NewConstrained(g *Grammar) (*Constrained, error) {
	cg, err := compile(g)
	if err != nil {
		return nil, err
	}
	return &Constrained{g: cg}, nil
}

// Decode runs a forward max-sum pass over the label lattice and backtracks
// from the best end label. Ties go to the label declared first in the grammar.
func Decode(dists []Distribution, g *Grammar) (Sequence, error) {
	c, err := NewConstrained(g)
	if err != nil {
		return nil, err
	}
	return c.Decode(dists)
}

// Decode returns the feasible sequence with the largest summed score.
func (c *Constrained) Decode(dists []Distribution) (Sequence, error) {
	scores, err := c.g.scores(dists)
	if err != nil {
		return nil, err
	}
	path, _, err := c.viterbi(scores)
	if err != nil {
		return nil, err
	}
	seq := make(Sequence, len(path))
	for t, y := range path {
		seq[t] = c.g.labels[y]
	}
	return seq, nil
}

// viterbi returns label indices and the total score. Unreachable cells hold
// -Inf; psi is -1 where no legal predecessor exists.
func (c *Constrained) viterbi(scores [][]float64) ([]int, float64, error) {
	T := len(scores)
	if T == 0 {
		return nil, 0, nil
	}
	K := len(c.g.labels)
	negInf := math.Inf(-1)

	// delta[t][y] = best score of a legal prefix ending at t with label y
	delta := make([][]float64, T)
	// psi[t][y] = predecessor label achieving delta[t][y]
	psi := make([][]int, T)

	delta[0] = make([]float64, K)
	psi[0] = make([]int, K)
	for y := 0; y < K; y++ {
		psi[0][y] = -1
		if c.g.start[y] {
			delta[0][y] = scores[0][y]
		} else {
			delta[0][y] = negInf
		}
	}

	for t := 1; t < T; t++ {
		delta[t] = make([]float64, K)
		psi[t] = make([]int, K)
		for y := 0; y < K; y++ {
			best := negInf
			bestPrev := -1
			for yp := 0; yp < K; yp++ {
				if !c.g.allowed[yp][y] || math.IsInf(delta[t-1][yp], -1) {
					continue
				}
				if s := delta[t-1][yp]; bestPrev < 0 || s > best {
					best = s
					bestPrev = yp
				}
			}
			psi[t][y] = bestPrev
			if bestPrev < 0 {
				delta[t][y] = negInf
				continue
			}
			delta[t][y] = best + scores[t][y]
		}
	}

	bestScore := negInf
	bestLabel := -1
	for y := 0; y < K; y++ {
		if !c.g.end[y] || math.IsInf(delta[T-1][y], -1) {
			continue
		}
		if bestLabel < 0 || delta[T-1][y] > bestScore {
			bestScore = delta[T-1][y]
			bestLabel = y
		}
	}
	if bestLabel < 0 {
		return nil, negInf, fmt.Errorf("%w: length %d", ErrDecodingInfeasible, T)
	}

	path := make([]int, T)
	path[T-1] = bestLabel
	for t := T - 1; t > 0; t-- {
		path[t-1] = psi[t][path[t]]
	}
	return path, bestScore, nil
}
