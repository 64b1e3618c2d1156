package crf

import (
	"math"

	"github.com/happyhackingspace/disfl/decoder"
)

// Viterbi finds the best label sequence under state and transition scores
// (log-domain). Every transition is allowed; ties go to the lower label ID.
func Viterbi(stateScores, transScores [][]float64) ([]int, float64) {
	T := len(stateScores)
	if T == 0 {
		return nil, math.Inf(-1)
	}
	L := len(stateScores[0])

	// delta[t][y] = best score ending at time t with label y
	delta := make([][]float64, T)
	// psi[t][y] = best previous label for backtracking
	psi := make([][]int, T)

	delta[0] = append([]float64(nil), stateScores[0]...)
	psi[0] = make([]int, L)

	for t := 1; t < T; t++ {
		delta[t] = make([]float64, L)
		psi[t] = make([]int, L)
		for y := 0; y < L; y++ {
			bestScore := math.Inf(-1)
			bestPrev := 0
			for yp := 0; yp < L; yp++ {
				if score := delta[t-1][yp] + transScores[yp][y]; score > bestScore {
					bestScore = score
					bestPrev = yp
				}
			}
			delta[t][y] = bestScore + stateScores[t][y]
			psi[t][y] = bestPrev
		}
	}

	bestScore := math.Inf(-1)
	bestLabel := 0
	for y := 0; y < L; y++ {
		if delta[T-1][y] > bestScore {
			bestScore = delta[T-1][y]
			bestLabel = y
		}
	}

	path := make([]int, T)
	path[T-1] = bestLabel
	for t := T - 2; t >= 0; t-- {
		path[t] = psi[t+1][path[t+1]]
	}
	return path, bestScore
}

// Predict returns the model's own best label sequence. It applies the
// learned transition weights but no tag grammar.
func (m *Model) Predict(features []map[string]float64) decoder.Sequence {
	path, _ := Viterbi(m.ComputeStateScores(features), m.ComputeTransScores())
	seq := make(decoder.Sequence, len(path))
	for i, id := range path {
		seq[i] = decoder.Label(m.Labels.ToStr[id])
	}
	return seq
}

// Distributions returns the marginal label probabilities at each position,
// ready for a decoder.
func (m *Model) Distributions(features []map[string]float64) []decoder.Distribution {
	fb := ForwardBackward(m.ComputeStateScores(features), m.ComputeTransScores())
	out := make([]decoder.Distribution, len(features))
	for t := range features {
		out[t] = make(decoder.Distribution, m.NumLabels)
		for y, name := range m.Labels.ToStr {
			out[t][decoder.Label(name)] = fb.Marginals[t][y]
		}
	}
	return out
}
