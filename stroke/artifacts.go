package stroke

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"strokerisk/ml"
)

// ArtifactPaths locates the fitted artifacts on disk.
type ArtifactPaths struct {
	LabelEncoders      string
	CategoricalScalers string
	AgeScaler          string
	GlucoseScaler      string
	Model              string
	ModelType          string
}

// DefaultArtifactPaths uses the conventional file names inside dir.
func DefaultArtifactPaths(dir string) ArtifactPaths {
	return ArtifactPaths{
		LabelEncoders:      filepath.Join(dir, "label_encoders.json"),
		CategoricalScalers: filepath.Join(dir, "cat_scalers.json"),
		AgeScaler:          filepath.Join(dir, "scaler_age.json"),
		GlucoseScaler:      filepath.Join(dir, "scaler_glucose.json"),
		Model:              filepath.Join(dir, "rf_model.json"),
		ModelType:          ml.ModelTypeRandomForest,
	}
}

// Artifacts is one immutable set of fitted transforms and the classifier.
// It is shared by all requests and never written after LoadArtifacts returns.
type Artifacts struct {
	Encoders           map[string]*ml.LabelEncoder
	CategoricalScalers map[string]*ml.Scaler
	AgeScaler          *ml.Scaler
	GlucoseScaler      *ml.Scaler
	Model              ml.Classifier
	ModelType          string
	LoadedAt           time.Time

	noStrokeIdx int
	strokeIdx   int
}

func LoadArtifacts(paths ArtifactPaths) (*Artifacts, error) {
	encoders, err := ml.LoadLabelEncoders(paths.LabelEncoders)
	if err != nil {
		return nil, fmt.Errorf("load label encoders: %w", err)
	}
	catScalers, err := ml.LoadScalers(paths.CategoricalScalers)
	if err != nil {
		return nil, fmt.Errorf("load categorical scalers: %w", err)
	}
	ageScaler, err := ml.LoadScaler(paths.AgeScaler)
	if err != nil {
		return nil, fmt.Errorf("load age scaler: %w", err)
	}
	glucoseScaler, err := ml.LoadScaler(paths.GlucoseScaler)
	if err != nil {
		return nil, fmt.Errorf("load glucose scaler: %w", err)
	}
	model, err := ml.LoadModel(paths.ModelType, paths.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	modelType := paths.ModelType
	if modelType == "" {
		modelType = ml.ModelTypeRandomForest
	}
	return NewArtifacts(encoders, catScalers, ageScaler, glucoseScaler, model, modelType)
}

// NewArtifacts checks that the pieces fit together before they are served.
func NewArtifacts(
	encoders map[string]*ml.LabelEncoder,
	catScalers map[string]*ml.Scaler,
	ageScaler, glucoseScaler *ml.Scaler,
	model ml.Classifier,
	modelType string,
) (*Artifacts, error) {
	a := &Artifacts{
		Encoders:           encoders,
		CategoricalScalers: catScalers,
		AgeScaler:          ageScaler,
		GlucoseScaler:      glucoseScaler,
		Model:              model,
		ModelType:          modelType,
		LoadedAt:           time.Now(),
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Artifacts) validate() error {
	for _, column := range categoricalColumns {
		if a.Encoders[column] == nil {
			return fmt.Errorf("no label encoder for %q", column)
		}
		scaler := a.CategoricalScalers[column]
		if scaler == nil {
			return fmt.Errorf("no scaler for %q", column)
		}
		if scaler.Dim() != 1 {
			return fmt.Errorf("scaler for %q has %d dimensions, want 1", column, scaler.Dim())
		}
	}
	if a.AgeScaler == nil || a.AgeScaler.Dim() != 1 {
		return errors.New("age scaler must be 1-dimensional")
	}
	if a.GlucoseScaler == nil || a.GlucoseScaler.Dim() != 1 {
		return errors.New("glucose scaler must be 1-dimensional")
	}

	if a.Model == nil {
		return errors.New("no model")
	}
	if n := a.Model.NumFeatures(); n != NumFeatures {
		return fmt.Errorf("model expects %d features, want %d", n, NumFeatures)
	}
	if names := a.Model.FeatureNames(); len(names) > 0 && !slices.Equal(names, featureOrder[:]) {
		return fmt.Errorf("model feature order %v does not match %v", names, featureOrder)
	}
	classes := a.Model.Classes()
	if len(classes) != 2 {
		return fmt.Errorf("model has %d classes, want 2", len(classes))
	}
	a.noStrokeIdx = slices.Index(classes, 0)
	a.strokeIdx = slices.Index(classes, 1)
	if a.noStrokeIdx < 0 || a.strokeIdx < 0 {
		return fmt.Errorf("model classes %v, want 0 and 1", classes)
	}
	return nil
}
