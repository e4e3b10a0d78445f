package stroke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"strokerisk/logging"
	"strokerisk/ml"
)

// Transformer encodes and scales a payload with one artifact set.
type Transformer struct {
	artifacts *Artifacts
}

func NewTransformer(artifacts *Artifacts) *Transformer {
	return &Transformer{artifacts: artifacts}
}

// Transform returns the scaled feature vector in training order. Categorical
// columns are handled before numeric ones, so an unseen label is reported
// even when a numeric field is also bad.
func (t *Transformer) Transform(ctx context.Context, payload Payload) (FeatureVector, error) {
	logger := logging.FromContext(ctx)
	scaled := make(map[string]float64, NumFeatures)

	for _, column := range categoricalColumns {
		code, err := t.encode(column, payload[column])
		if err != nil {
			return FeatureVector{}, err
		}
		value, err := t.artifacts.CategoricalScalers[column].TransformOne(float64(code))
		if err != nil {
			return FeatureVector{}, predictionErrorf("scale %q: %w", column, err)
		}
		logger.Debug("encoded categorical",
			zap.String("column", column),
			zap.Any("raw", payload[column]),
			zap.Int("code", code),
			zap.Float64("scaled", value))
		scaled[column] = value
	}

	numericScalers := map[string]*ml.Scaler{
		Age:             t.artifacts.AgeScaler,
		AvgGlucoseLevel: t.artifacts.GlucoseScaler,
	}
	for _, column := range numericColumns {
		raw, err := parseNumeric(payload[column])
		if err != nil {
			return FeatureVector{}, &NumericError{Column: column, Err: err}
		}
		value, err := numericScalers[column].TransformOne(raw)
		if err != nil {
			return FeatureVector{}, predictionErrorf("scale %q: %w", column, err)
		}
		logger.Debug("scaled numeric",
			zap.String("column", column),
			zap.Float64("raw", raw),
			zap.Float64("scaled", value))
		scaled[column] = value
	}

	return assemble(scaled)
}

func (t *Transformer) encode(column string, raw any) (int, error) {
	value, ok := raw.(string)
	if !ok {
		return 0, &EncodingError{Column: column, Err: fmt.Errorf("expected a string, got %s", jsonType(raw))}
	}
	code, err := t.artifacts.Encoders[column].Transform(value)
	if err != nil {
		return 0, &EncodingError{Column: column, Err: err}
	}
	return code, nil
}

func assemble(scaled map[string]float64) (FeatureVector, error) {
	var vector FeatureVector
	for i, column := range featureOrder {
		value, ok := scaled[column]
		if !ok {
			return FeatureVector{}, predictionErrorf("no value for feature %q", column)
		}
		vector[i] = value
	}
	return vector, nil
}

// parseNumeric accepts a JSON number or a numeric string.
func parseNumeric(raw any) (float64, error) {
	var (
		value float64
		err   error
	)
	switch v := raw.(type) {
	case json.Number:
		value, err = strconv.ParseFloat(v.String(), 64)
	case string:
		value, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	case float64:
		value = v
	default:
		return 0, fmt.Errorf("expected a number or numeric string, got %s", jsonType(raw))
	}
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, fmt.Errorf("could not convert %q to float", numErr.Num)
		}
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("value %v is not finite", value)
	}
	return value, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
