// Package maxent implements multinomial logistic regression (maximum
// entropy) inference over dict features, scoring every token on its own.
package maxent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/happyhackingspace/disfl/decoder"
	"github.com/happyhackingspace/disfl/internal/vectorizer"
)

// ErrBadModel is returned when model parameters are inconsistent.
var ErrBadModel = errors.New("maxent: inconsistent model")

// Model holds a trained per-token classifier.
type Model struct {
	Classes    []decoder.Label            `json:"classes"`
	Coef       [][]float64                `json:"coef"`      // [numClasses][numFeatures]
	Intercept  []float64                  `json:"intercept"` // [numClasses]
	Vectorizer *vectorizer.DictVectorizer `json:"vectorizer"`
}

// Validate checks that coefficients match the classes and vocabulary.
func (m *Model) Validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("%w: no classes", ErrBadModel)
	}
	if m.Vectorizer == nil {
		return fmt.Errorf("%w: missing vectorizer", ErrBadModel)
	}
	if len(m.Coef) != len(m.Classes) || len(m.Intercept) != len(m.Classes) {
		return fmt.Errorf("%w: %d classes, %d coef rows, %d intercepts",
			ErrBadModel, len(m.Classes), len(m.Coef), len(m.Intercept))
	}
	if err := m.Vectorizer.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadModel, err)
	}
	dim := m.Vectorizer.VocabSize()
	for c, row := range m.Coef {
		if len(row) != dim {
			return fmt.Errorf("%w: coef row %d has %d weights for %d features", ErrBadModel, c, len(row), dim)
		}
		if !finite(row...) || !finite(m.Intercept[c]) {
			return fmt.Errorf("%w: class %q has a non-finite weight", ErrBadModel, m.Classes[c])
		}
	}
	return nil
}

// Proba returns the class probabilities of one token's features in Classes
// order.
func (m *Model) Proba(features map[string]any) []float64 {
	x := m.Vectorizer.Transform(features)
	logits := make([]float64, len(m.Classes))
	for c := range m.Classes {
		logits[c] = x.Dot(m.Coef[c]) + m.Intercept[c]
	}
	return softmax(logits)
}

// Distributions scores every token of a sentence independently.
func (m *Model) Distributions(features []map[string]any) []decoder.Distribution {
	out := make([]decoder.Distribution, len(features))
	for t, f := range features {
		probs := m.Proba(f)
		d := make(decoder.Distribution, len(m.Classes))
		for c, l := range m.Classes {
			d[l] = probs[c]
		}
		out[t] = d
	}
	return out
}

func finite(ws ...float64) bool {
	for _, w := range ws {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
	}
	return true
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// MarshalModel serializes the model to JSON bytes.
func MarshalModel(model *Model) ([]byte, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(model)
}

// UnmarshalModel deserializes and validates a model from JSON bytes.
func UnmarshalModel(data []byte) (*Model, error) {
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &model, nil
}
