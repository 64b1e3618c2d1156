// Package crf implements linear-chain Conditional Random Field inference.
//
// A Model scores every (position, label) pair from sparse attributes and every
// adjacent label pair from transition weights. Forward-backward marginals
// give the per-position label distributions consumed by the decoder package;
// Viterbi gives the model's own best path.
package crf

import (
	"errors"
	"fmt"
	"math"

	"github.com/happyhackingspace/disfl/decoder"
)

// ErrBadModel is returned when model parameters are inconsistent.
var ErrBadModel = errors.New("crf: inconsistent model")

// Alphabet maps between string labels/attributes and integer IDs.
type Alphabet struct {
	ToID  map[string]int `json:"to_id"`
	ToStr []string       `json:"to_str"`
}

// NewAlphabet creates an alphabet holding items in order.
func NewAlphabet(items ...string) *Alphabet {
	a := &Alphabet{ToID: make(map[string]int, len(items))}
	for _, s := range items {
		a.Add(s)
	}
	return a
}

// Add adds a string to the alphabet if not already present, returns its ID.
func (a *Alphabet) Add(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	id := len(a.ToStr)
	a.ToID[s] = id
	a.ToStr = append(a.ToStr, s)
	return id
}

// Get returns the ID for a string, or -1 if not found.
func (a *Alphabet) Get(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	return -1
}

// Size returns the number of entries.
func (a *Alphabet) Size() int {
	return len(a.ToStr)
}

// validate checks that ToID is the exact inverse of ToStr.
func (a *Alphabet) validate() error {
	if len(a.ToID) != len(a.ToStr) {
		return fmt.Errorf("%d ids for %d entries", len(a.ToID), len(a.ToStr))
	}
	for i, s := range a.ToStr {
		if id, ok := a.ToID[s]; !ok || id != i {
			return fmt.Errorf("entry %q at %d has id %d", s, i, a.ToID[s])
		}
	}
	return nil
}

// Model holds the CRF parameters.
//
// Weight layout: [state features | transition features]. The state weight of
// (attribute a, label y) sits at a*NumLabels+y; the transition weight of
// (from, to) sits at TransOffset()+from*NumLabels+to.
type Model struct {
	Labels     *Alphabet `json:"labels"`
	Attributes *Alphabet `json:"attributes"`
	Weights    []float64 `json:"weights"`
	NumLabels  int       `json:"num_labels"`
}

// NewModel creates a zero-weight model over the given labels and attributes.
func NewModel(labels []decoder.Label, attributes []string) *Model {
	m := &Model{
		Labels:     NewAlphabet(),
		Attributes: NewAlphabet(attributes...),
	}
	for _, l := range labels {
		m.Labels.Add(string(l))
	}
	m.NumLabels = m.Labels.Size()
	m.Weights = make([]float64, m.NumWeights())
	return m
}

// Validate checks that alphabets and weights agree and that every weight is
// finite.
func (m *Model) Validate() error {
	if m.Labels == nil || m.Attributes == nil {
		return fmt.Errorf("%w: missing alphabet", ErrBadModel)
	}
	if err := m.Labels.validate(); err != nil {
		return fmt.Errorf("%w: labels: %v", ErrBadModel, err)
	}
	if err := m.Attributes.validate(); err != nil {
		return fmt.Errorf("%w: attributes: %v", ErrBadModel, err)
	}
	if m.NumLabels != m.Labels.Size() || m.NumLabels == 0 {
		return fmt.Errorf("%w: num_labels %d, %d labels", ErrBadModel, m.NumLabels, m.Labels.Size())
	}
	if len(m.Weights) != m.NumWeights() {
		return fmt.Errorf("%w: %d weights, want %d", ErrBadModel, len(m.Weights), m.NumWeights())
	}
	for i, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %v", ErrBadModel, i, w)
		}
	}
	return nil
}

// LabelSet returns the model's labels in ID order.
func (m *Model) LabelSet() []decoder.Label {
	out := make([]decoder.Label, m.Labels.Size())
	for i, s := range m.Labels.ToStr {
		out[i] = decoder.Label(s)
	}
	return out
}

// TransOffset returns the offset where transition features start in the weight vector.
func (m *Model) TransOffset() int {
	return m.Attributes.Size() * m.NumLabels
}

// NumWeights returns the total number of weights.
func (m *Model) NumWeights() int {
	return m.TransOffset() + m.NumLabels*m.NumLabels
}

// StateFeatureIndex returns the weight index for a state feature.
func (m *Model) StateFeatureIndex(attrID, labelID int) int {
	return attrID*m.NumLabels + labelID
}

// TransFeatureIndex returns the weight index for a transition feature.
func (m *Model) TransFeatureIndex(fromLabelID, toLabelID int) int {
	return m.TransOffset() + fromLabelID*m.NumLabels + toLabelID
}

// SetState sets the weight of (attribute, label), adding the attribute if
// needed. Adding an attribute grows the state block.
func (m *Model) SetState(attr string, label decoder.Label, w float64) error {
	y := m.Labels.Get(string(label))
	if y < 0 {
		return fmt.Errorf("%w: unknown label %q", ErrBadModel, label)
	}
	a := m.Attributes.Get(attr)
	if a < 0 {
		off := m.TransOffset()
		grown := make([]float64, 0, len(m.Weights)+m.NumLabels)
		grown = append(grown, m.Weights[:off]...)
		grown = append(grown, make([]float64, m.NumLabels)...)
		grown = append(grown, m.Weights[off:]...)
		a = m.Attributes.Add(attr)
		m.Weights = grown
	}
	m.Weights[m.StateFeatureIndex(a, y)] = w
	return nil
}

// SetTransition sets the weight of the label pair (from, to).
func (m *Model) SetTransition(from, to decoder.Label, w float64) error {
	i, j := m.Labels.Get(string(from)), m.Labels.Get(string(to))
	if i < 0 || j < 0 {
		return fmt.Errorf("%w: unknown transition %q -> %q", ErrBadModel, from, to)
	}
	m.Weights[m.TransFeatureIndex(i, j)] = w
	return nil
}

// ComputeStateScores computes state feature scores for each position and label.
// Returns [T][L] matrix where T is sequence length and L is number of labels.
// Unknown attributes are ignored.
func (m *Model) ComputeStateScores(features []map[string]float64) [][]float64 {
	T := len(features)
	L := m.NumLabels
	scores := make([][]float64, T)
	for t := 0; t < T; t++ {
		scores[t] = make([]float64, L)
		for attr, val := range features[t] {
			attrID := m.Attributes.Get(attr)
			if attrID < 0 {
				continue
			}
			for y := 0; y < L; y++ {
				scores[t][y] += m.Weights[m.StateFeatureIndex(attrID, y)] * val
			}
		}
	}
	return scores
}

// ComputeTransScores returns the [L][L] transition score matrix.
func (m *Model) ComputeTransScores() [][]float64 {
	L := m.NumLabels
	trans := make([][]float64, L)
	for i := 0; i < L; i++ {
		trans[i] = make([]float64, L)
		for j := 0; j < L; j++ {
			trans[i][j] = m.Weights[m.TransFeatureIndex(i, j)]
		}
	}
	return trans
}
