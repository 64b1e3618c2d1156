package crf

import "math"

// ForwardBackwardResult holds the results of the forward-backward algorithm.
type ForwardBackwardResult struct {
	LogZ      float64     // log partition function
	Marginals [][]float64 // [T][L] marginal probabilities P(y_t=j|x)
}

// ForwardBackward computes label marginals with per-position scaling.
// stateScores: [T][L] state feature scores
// transScores: [L][L] transition feature scores
//
// State scores are shifted by their row maximum and transition scores by
// their overall maximum before exponentiation so large weights do not
// overflow; both shifts are added back into LogZ.
func ForwardBackward(stateScores, transScores [][]float64) ForwardBackwardResult {
	T := len(stateScores)
	if T == 0 || len(stateScores[0]) == 0 {
		return ForwardBackwardResult{}
	}
	L := len(stateScores[0])

	shift := make([]float64, T)
	expState := make([][]float64, T)
	for t := 0; t < T; t++ {
		shift[t] = math.Inf(-1)
		for y := 0; y < L; y++ {
			shift[t] = math.Max(shift[t], stateScores[t][y])
		}
		expState[t] = make([]float64, L)
		for y := 0; y < L; y++ {
			expState[t][y] = math.Exp(stateScores[t][y] - shift[t])
		}
	}

	transShift := math.Inf(-1)
	for i := 0; i < L; i++ {
		for j := 0; j < L; j++ {
			transShift = math.Max(transShift, transScores[i][j])
		}
	}
	expTrans := make([][]float64, L)
	for i := 0; i < L; i++ {
		expTrans[i] = make([]float64, L)
		for j := 0; j < L; j++ {
			expTrans[i][j] = math.Exp(transScores[i][j] - transShift)
		}
	}

	alpha := make([][]float64, T)
	scale := make([]float64, T)
	for t := 0; t < T; t++ {
		alpha[t] = make([]float64, L)
		var sum float64
		for y := 0; y < L; y++ {
			if t == 0 {
				alpha[t][y] = expState[t][y]
			} else {
				var s float64
				for yp := 0; yp < L; yp++ {
					s += alpha[t-1][yp] * expTrans[yp][y]
				}
				alpha[t][y] = s * expState[t][y]
			}
			sum += alpha[t][y]
		}
		scale[t] = 1.0
		if sum > 0 {
			scale[t] = 1.0 / sum
		}
		for y := 0; y < L; y++ {
			alpha[t][y] *= scale[t]
		}
	}

	// Backward pass reuses the forward scale factors.
	beta := make([][]float64, T)
	beta[T-1] = make([]float64, L)
	for y := 0; y < L; y++ {
		beta[T-1][y] = scale[T-1]
	}
	for t := T - 2; t >= 0; t-- {
		beta[t] = make([]float64, L)
		for y := 0; y < L; y++ {
			var s float64
			for yn := 0; yn < L; yn++ {
				s += expTrans[y][yn] * expState[t+1][yn] * beta[t+1][yn]
			}
			beta[t][y] = s * scale[t]
		}
	}

	logZ := float64(T-1) * transShift
	for t := 0; t < T; t++ {
		logZ += shift[t] - math.Log(scale[t])
	}

	marginals := make([][]float64, T)
	for t := 0; t < T; t++ {
		marginals[t] = make([]float64, L)
		for y := 0; y < L; y++ {
			marginals[t][y] = alpha[t][y] * beta[t][y] / scale[t]
		}
	}

	return ForwardBackwardResult{
		LogZ:      logZ,
		Marginals: marginals,
	}
}
