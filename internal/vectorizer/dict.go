package vectorizer

import (
	"fmt"
	"sort"
)

// DictVectorizer converts feature dicts to sparse vectors.
//
// String values become one-hot "name=value" columns, string lists one
// "name=item" column per item, and numbers and bools use the name itself.
type DictVectorizer struct {
	FeatureNames []string       `json:"feature_names"`
	FeatureIndex map[string]int `json:"feature_index"`
}

// NewDictVectorizer creates an empty DictVectorizer.
func NewDictVectorizer() *DictVectorizer {
	return &DictVectorizer{}
}

// Fit builds the feature mapping from a list of feature dicts. Columns are
// sorted by name.
func (dv *DictVectorizer) Fit(data []map[string]any) {
	featureSet := make(map[string]bool)
	for _, d := range data {
		for k, v := range d {
			for _, key := range featureKeys(k, v) {
				featureSet[key] = true
			}
		}
	}

	dv.FeatureNames = make([]string, 0, len(featureSet))
	for f := range featureSet {
		dv.FeatureNames = append(dv.FeatureNames, f)
	}
	sort.Strings(dv.FeatureNames)

	dv.FeatureIndex = make(map[string]int, len(dv.FeatureNames))
	for i, f := range dv.FeatureNames {
		dv.FeatureIndex[f] = i
	}
}

// Transform converts a feature dict to a sparse vector. Unseen features are
// dropped.
func (dv *DictVectorizer) Transform(d map[string]any) SparseVector {
	sv := NewSparseVector(len(dv.FeatureNames))
	for k, v := range d {
		val := featureValue(v)
		for _, key := range featureKeys(k, v) {
			if idx, ok := dv.FeatureIndex[key]; ok {
				sv.Set(idx, val)
			}
		}
	}
	return sv
}

// Validate checks that FeatureIndex is the exact inverse of FeatureNames.
func (dv *DictVectorizer) Validate() error {
	if len(dv.FeatureIndex) != len(dv.FeatureNames) {
		return fmt.Errorf("vectorizer: %d indexed features for %d names", len(dv.FeatureIndex), len(dv.FeatureNames))
	}
	for i, name := range dv.FeatureNames {
		if idx, ok := dv.FeatureIndex[name]; !ok || idx != i {
			return fmt.Errorf("vectorizer: feature %q at %d has index %d", name, i, dv.FeatureIndex[name])
		}
	}
	return nil
}

// VocabSize returns the number of features.
func (dv *DictVectorizer) VocabSize() int {
	return len(dv.FeatureNames)
}

func featureKeys(name string, value any) []string {
	switch v := value.(type) {
	case string:
		return []string{fmt.Sprintf("%s=%s", name, v)}
	case []string:
		keys := make([]string, len(v))
		for i, item := range v {
			keys[i] = fmt.Sprintf("%s=%s", name, item)
		}
		return keys
	default:
		return []string{name}
	}
}

func featureValue(value any) float64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1.0
		}
		return 0.0
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 1.0
	}
}
