package ml

const (
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeRandomForest = "random_forest"
)

// Classifier estimates class probabilities over a fixed-order feature vector.
type Classifier interface {
	PredictProba(features []float64) ([]float64, error)
	Classes() []int
	NumFeatures() int
	FeatureNames() []string
}
