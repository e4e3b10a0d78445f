package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// Scaler is a fitted per-dimension affine transform.
type Scaler struct {
	Type  string    `json:"type"`
	Mean  []float64 `json:"mean,omitempty"`
	Min   []float64 `json:"min,omitempty"`
	Scale []float64 `json:"scale"`
}

func (s *Scaler) Validate() error {
	switch s.Type {
	case ScalerStandard:
		if len(s.Mean) != len(s.Scale) {
			return fmt.Errorf("standard scaler: %d means for %d scales", len(s.Mean), len(s.Scale))
		}
	case ScalerMinMax:
		if len(s.Min) != len(s.Scale) {
			return fmt.Errorf("minmax scaler: %d mins for %d scales", len(s.Min), len(s.Scale))
		}
	default:
		return fmt.Errorf("unknown scaler type %q", s.Type)
	}
	if len(s.Scale) == 0 {
		return fmt.Errorf("%s scaler has no dimensions", s.Type)
	}
	for i, v := range s.Scale {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s scaler: non-finite scale at %d", s.Type, i)
		}
	}
	return nil
}

func (s *Scaler) Dim() int {
	return len(s.Scale)
}

func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if len(values) != s.Dim() {
		return nil, fmt.Errorf("%s scaler expects %d values, got %d", s.Type, s.Dim(), len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		switch s.Type {
		case ScalerStandard:
			scale := s.Scale[i]
			if scale == 0 {
				scale = 1
			}
			out[i] = (v - s.Mean[i]) / scale
		case ScalerMinMax:
			out[i] = v*s.Scale[i] + s.Min[i]
		default:
			return nil, fmt.Errorf("unknown scaler type %q", s.Type)
		}
	}
	return out, nil
}

// TransformOne scales a single value with a 1-dimensional scaler.
func (s *Scaler) TransformOne(value float64) (float64, error) {
	out, err := s.Transform([]float64{value})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

func LoadScaler(path string) (*Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scaler Scaler
	if err := json.Unmarshal(payload, &scaler); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := scaler.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &scaler, nil
}

// LoadScalers reads a column -> scaler object.
func LoadScalers(path string) (map[string]*Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	scalers := make(map[string]*Scaler)
	if err := json.Unmarshal(payload, &scalers); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for column, scaler := range scalers {
		if scaler == nil {
			return nil, fmt.Errorf("%s: scaler for %q is null", path, column)
		}
		if err := scaler.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, column, err)
		}
	}
	return scalers, nil
}
