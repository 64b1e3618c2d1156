package crf

import (
	"encoding/json"
	"fmt"
)

// MarshalModel serializes the model to JSON bytes.
func MarshalModel(model *Model) ([]byte, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(model)
}

// UnmarshalModel deserializes a model and checks that it is safe to score
// with.
func UnmarshalModel(data []byte) (*Model, error) {
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("crf: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &model, nil
}
