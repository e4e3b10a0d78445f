// Package stroke validates stroke-risk payloads, turns them into the feature
// vector the classifier was trained on and runs the classifier.
package stroke

const (
	Gender          = "gender"
	EverMarried     = "ever_married"
	WorkType        = "work_type"
	ResidenceType   = "Residence_type"
	SmokingStatus   = "smoking_status"
	Age             = "age"
	AvgGlucoseLevel = "avg_glucose_level"
)

// NumFeatures is the width of the classifier input.
const NumFeatures = 7

// FeatureVector holds scaled values in training order. It is comparable and
// used directly as a cache key.
type FeatureVector [NumFeatures]float64

// featureOrder must match the column order used when the classifier was
// trained. A different order still predicts, just wrongly.
var featureOrder = [NumFeatures]string{
	Gender,
	Age,
	EverMarried,
	WorkType,
	ResidenceType,
	AvgGlucoseLevel,
	SmokingStatus,
}

var categoricalColumns = []string{Gender, EverMarried, WorkType, ResidenceType, SmokingStatus}

var numericColumns = []string{Age, AvgGlucoseLevel}

func FeatureOrder() []string {
	return append([]string(nil), featureOrder[:]...)
}

func CategoricalColumns() []string {
	return append([]string(nil), categoricalColumns...)
}

func NumericColumns() []string {
	return append([]string(nil), numericColumns...)
}

// RequiredColumns lists categoricals first, then numerics.
func RequiredColumns() []string {
	return append(CategoricalColumns(), numericColumns...)
}

func (v FeatureVector) Slice() []float64 {
	return append([]float64(nil), v[:]...)
}

// Map keys the vector by column name, for logging.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range featureOrder {
		m[name] = v[i]
	}
	return m
}
