package stroke

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strokerisk/ml"
	"strokerisk/monitoring"
)

func TestPredictExamplePayload(t *testing.T) {
	predictor, err := NewPredictor(loadTestArtifacts(t))
	require.NoError(t, err)

	prediction, err := predictor.Predict(context.Background(), validPayload(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.7333333333, prediction.NoStroke, 1e-9)
	assert.InDelta(t, 0.2666666667, prediction.Stroke, 1e-9)
	assert.InDelta(t, 1.0, prediction.NoStroke+prediction.Stroke, 1e-6)
}

func TestPredictProbabilitiesInRange(t *testing.T) {
	predictor, err := NewPredictor(loadTestArtifacts(t))
	require.NoError(t, err)

	genders := []string{"Female", "Male", "Other"}
	smoking := []string{"Unknown", "formerly smoked", "never smoked", "smokes"}
	ages := []any{"0.5", 18.0, "45", 82.0}
	for _, gender := range genders {
		for _, status := range smoking {
			for _, age := range ages {
				payload := validPayload(t)
				payload[Gender] = gender
				payload[SmokingStatus] = status
				payload[Age] = age

				prediction, err := predictor.Predict(context.Background(), payload)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, prediction.NoStroke, 0.0)
				assert.LessOrEqual(t, prediction.Stroke, 1.0)
				assert.InDelta(t, 1.0, prediction.NoStroke+prediction.Stroke, 1e-6)
			}
		}
	}
}

func TestPredictCache(t *testing.T) {
	metrics := monitoring.NewMetricsCollector()
	cached, err := NewPredictor(loadTestArtifacts(t), WithCache(8), WithMetrics(metrics))
	require.NoError(t, err)
	uncached, err := NewPredictor(loadTestArtifacts(t))
	require.NoError(t, err)

	first, err := cached.Predict(context.Background(), validPayload(t))
	require.NoError(t, err)
	second, err := cached.Predict(context.Background(), validPayload(t))
	require.NoError(t, err)
	plain, err := uncached.Predict(context.Background(), validPayload(t))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, plain, first)
	assert.Equal(t, 1.0, metrics.CounterValue("predict_cache_hits_total", nil))
}

type brokenModel struct {
	proba []float64
	err   error
}

func (m *brokenModel) PredictProba([]float64) ([]float64, error) { return m.proba, m.err }
func (m *brokenModel) Classes() []int { return []int{0, 1} }
func (m *brokenModel) NumFeatures() int { return NumFeatures }
func (m *brokenModel) FeatureNames() []string { return nil }

func withModel(t *testing.T, model ml.Classifier) *Artifacts {
	t.Helper()
	base := loadTestArtifacts(t)
	artifacts, err := NewArtifacts(base.Encoders, base.CategoricalScalers, base.AgeScaler, base.GlucoseScaler, model, "test")
	require.NoError(t, err)
	return artifacts
}

func TestPredictInferenceFailures(t *testing.T) {
	models := map[string]*brokenModel{
		"error":        {err: errors.New("boom")},
		"width":        {proba: []float64{1}},
		"out of range": {proba: []float64{1.5, -0.5}},
		"sum":          {proba: []float64{0.5, 0.4}},
	}
	for name, model := range models {
		t.Run(name, func(t *testing.T) {
			predictor, err := NewPredictor(withModel(t, model))
			require.NoError(t, err)

			_, err = predictor.Predict(context.Background(), validPayload(t))
			var predErr *PredictionError
			assert.ErrorAs(t, err, &predErr)
		})
	}
}

func TestPredictUsesClassOrder(t *testing.T) {
	base := loadTestArtifacts(t)
	model := &reversedModel{}
	artifacts, err := NewArtifacts(base.Encoders, base.CategoricalScalers, base.AgeScaler, base.GlucoseScaler, model, "test")
	require.NoError(t, err)
	predictor, err := NewPredictor(artifacts)
	require.NoError(t, err)

	prediction, err := predictor.Predict(context.Background(), validPayload(t))
	require.NoError(t, err)
	assert.Equal(t, Prediction{NoStroke: 0.8, Stroke: 0.2}, prediction)
}

// reversedModel lists class 1 first.
type reversedModel struct{}

func (reversedModel) PredictProba([]float64) ([]float64, error) { return []float64{0.2, 0.8}, nil }
func (reversedModel) Classes() []int { return []int{1, 0} }
func (reversedModel) NumFeatures() int { return NumFeatures }
func (reversedModel) FeatureNames() []string { return nil }

func copyArtifacts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := os.ReadDir(testArtifactsDir)
	require.NoError(t, err)
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(testArtifactsDir, entry.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, entry.Name()), data, 0o600))
	}
	return dir
}

func TestLoadArtifactsRejectsFeatureOrderMismatch(t *testing.T) {
	dir := copyArtifacts(t)
	path := filepath.Join(dir, "rf_model.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	swapped := strings.Replace(string(data),
		`["gender", "age", "ever_married"`,
		`["age", "gender", "ever_married"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(swapped), 0o600))

	_, err = LoadArtifacts(DefaultArtifactPaths(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature order")
}

func TestLoadArtifactsMissingScaler(t *testing.T) {
	dir := copyArtifacts(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat_scalers.json"),
		[]byte(`{"gender":{"type":"standard","mean":[0],"scale":[1]}}`), 0o600))

	_, err := LoadArtifacts(DefaultArtifactPaths(dir))
	assert.ErrorContains(t, err, "no scaler")
}

func TestReloadSwapsAndKeepsOldOnFailure(t *testing.T) {
	dir := copyArtifacts(t)
	metrics := monitoring.NewMetricsCollector()
	predictor, err := NewPredictor(loadTestArtifacts(t), WithCache(4), WithMetrics(metrics))
	require.NoError(t, err)
	before := predictor.Artifacts()

	require.NoError(t, predictor.Reload(DefaultArtifactPaths(dir)))
	assert.NotSame(t, before, predictor.Artifacts())
	loaded := predictor.Artifacts()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rf_model.json"), []byte("{broken"), 0o600))
	assert.Error(t, predictor.Reload(DefaultArtifactPaths(dir)))
	assert.Same(t, loaded, predictor.Artifacts())

	_, err = predictor.Predict(context.Background(), validPayload(t))
	assert.NoError(t, err)
	assert.Equal(t, 1.0, metrics.CounterValue("artifact_reloads_total", map[string]string{"outcome": "ok"}))
	assert.Equal(t, 1.0, metrics.CounterValue("artifact_reloads_total", map[string]string{"outcome": "error"}))
}
