package stroke

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"strokerisk/logging"
	"strokerisk/monitoring"
)

const probabilityTolerance = 1e-6

// Prediction is the classifier output for one payload.
type Prediction struct {
	NoStroke float64 `json:"no_stroke_probability"`
	Stroke   float64 `json:"stroke_probability"`
}

// snapshot ties a cache to the artifact set that filled it.
type snapshot struct {
	artifacts   *Artifacts
	transformer *Transformer
	cache       *lru.Cache[FeatureVector, Prediction]
}

type Predictor struct {
	current   atomic.Pointer[snapshot]
	cacheSize int
	metrics   *monitoring.MetricsCollector
}

type Option func(*Predictor)

// WithCache enables an LRU cache of size entries keyed by feature vector.
func WithCache(size int) Option {
	return func(p *Predictor) {
		p.cacheSize = size
	}
}

func WithMetrics(metrics *monitoring.MetricsCollector) Option {
	return func(p *Predictor) {
		p.metrics = metrics
	}
}

func NewPredictor(artifacts *Artifacts, opts ...Option) (*Predictor, error) {
	p := &Predictor{}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Swap(artifacts); err != nil {
		return nil, err
	}
	return p, nil
}

// Swap installs a new artifact set. Requests already running finish on the
// set they started with.
func (p *Predictor) Swap(artifacts *Artifacts) error {
	if artifacts == nil {
		return errors.New("nil artifacts")
	}
	next := &snapshot{
		artifacts:   artifacts,
		transformer: NewTransformer(artifacts),
	}
	if p.cacheSize > 0 {
		cache, err := lru.New[FeatureVector, Prediction](p.cacheSize)
		if err != nil {
			return fmt.Errorf("create prediction cache: %w", err)
		}
		next.cache = cache
	}
	p.current.Store(next)
	return nil
}

// Reload loads artifacts from paths and swaps them in. On error the current
// set stays active.
func (p *Predictor) Reload(paths ArtifactPaths) error {
	artifacts, err := LoadArtifacts(paths)
	if err != nil {
		p.metrics.IncrCounter("artifact_reloads_total", map[string]string{"outcome": "error"})
		return err
	}
	if err := p.Swap(artifacts); err != nil {
		return err
	}
	p.metrics.IncrCounter("artifact_reloads_total", map[string]string{"outcome": "ok"})
	return nil
}

func (p *Predictor) Artifacts() *Artifacts {
	return p.current.Load().artifacts
}

// Predict transforms payload and returns the class probabilities.
func (p *Predictor) Predict(ctx context.Context, payload Payload) (Prediction, error) {
	snap := p.current.Load()
	logger := logging.FromContext(ctx)

	vector, err := snap.transformer.Transform(ctx, payload)
	if err != nil {
		return Prediction{}, err
	}
	logger.Debug("feature vector", zap.Any("features", vector.Map()))

	if snap.cache != nil {
		if cached, ok := snap.cache.Get(vector); ok {
			p.metrics.IncrCounter("predict_cache_hits_total", nil)
			return cached, nil
		}
	}

	prediction, err := infer(snap.artifacts, vector)
	if err != nil {
		return Prediction{}, err
	}
	if snap.cache != nil {
		snap.cache.Add(vector, prediction)
	}
	return prediction, nil
}

func infer(artifacts *Artifacts, vector FeatureVector) (Prediction, error) {
	proba, err := artifacts.Model.PredictProba(vector.Slice())
	if err != nil {
		return Prediction{}, &PredictionError{Err: err}
	}
	if len(proba) != 2 {
		return Prediction{}, predictionErrorf("model returned %d probabilities, want 2", len(proba))
	}
	prediction := Prediction{
		NoStroke: proba[artifacts.noStrokeIdx],
		Stroke:   proba[artifacts.strokeIdx],
	}
	for _, v := range []float64{prediction.NoStroke, prediction.Stroke} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return Prediction{}, predictionErrorf("probability %v out of range", v)
		}
	}
	if sum := prediction.NoStroke + prediction.Stroke; math.Abs(sum-1) > probabilityTolerance {
		return Prediction{}, predictionErrorf("probabilities sum to %v", sum)
	}
	return prediction, nil
}
