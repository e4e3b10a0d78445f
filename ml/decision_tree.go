package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type DecisionTree struct {
	nodes        []TreeNode
	classes      []int
	featureNames []string
	features     int
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value"`
}

type treeFile struct {
	ModelType    string     `json:"model_type"`
	Classes      []int      `json:"classes"`
	NumFeatures  int        `json:"n_features"`
	FeatureNames []string   `json:"feature_names,omitempty"`
	Nodes        []TreeNode `json:"nodes"`
}

func NewDecisionTree(nodes []TreeNode, classes []int, numFeatures int) (*DecisionTree, error) {
	dt := &DecisionTree{nodes: nodes, classes: classes, features: numFeatures}
	if numFeatures <= 0 {
		return nil, errors.New("n_features must be positive")
	}
	if err := dt.validate(); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) Classes() []int {
	return append([]int(nil), dt.classes...)
}

func (dt *DecisionTree) NumFeatures() int {
	return dt.features
}

// FeatureNames is empty when the tree was saved without column names.
func (dt *DecisionTree) FeatureNames() []string {
	return append([]string(nil), dt.featureNames...)
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return normalize(leaf.Value)
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	if len(features) != dt.features {
		return TreeNode{}, fmt.Errorf("expected %d features, got %d", dt.features, len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(treeFile{
		ModelType:    ModelTypeDecisionTree,
		Classes:      dt.classes,
		NumFeatures:  dt.features,
		FeatureNames: dt.featureNames,
		Nodes:        dt.nodes,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file treeFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if file.ModelType != "" && file.ModelType != ModelTypeDecisionTree {
		return fmt.Errorf("model_type %q is not %q", file.ModelType, ModelTypeDecisionTree)
	}
	loaded, err := NewDecisionTree(file.Nodes, file.Classes, file.NumFeatures)
	if err != nil {
		return err
	}
	if err := loaded.SetFeatureNames(file.FeatureNames); err != nil {
		return err
	}
	*dt = *loaded
	return nil
}

func (dt *DecisionTree) SetFeatureNames(names []string) error {
	if len(names) != 0 && len(names) != dt.features {
		return fmt.Errorf("%d feature names for %d features", len(names), dt.features)
	}
	dt.featureNames = append([]string(nil), names...)
	return nil
}

func (dt *DecisionTree) validate() error {
	if len(dt.nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	if len(dt.classes) < 2 {
		return fmt.Errorf("tree needs at least 2 classes, got %d", len(dt.classes))
	}
	for i, node := range dt.nodes {
		if node.IsLeaf {
			if len(node.Value) != len(dt.classes) {
				return fmt.Errorf("node %d: leaf value has %d entries, want %d", i, len(node.Value), len(dt.classes))
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.features {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		// Children always follow their parent, so traversal cannot loop.
		if node.LeftChild <= i || node.LeftChild >= len(dt.nodes) {
			return fmt.Errorf("node %d: left child %d out of range", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(dt.nodes) {
			return fmt.Errorf("node %d: right child %d out of range", i, node.RightChild)
		}
	}
	return nil
}

func normalize(weights []float64) ([]float64, error) {
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative leaf weight %v", w)
		}
		total += w
	}
	if total == 0 {
		return nil, errors.New("leaf has zero total weight")
	}
	proba := make([]float64, len(weights))
	for i, w := range weights {
		proba[i] = w / total
	}
	return proba, nil
}
