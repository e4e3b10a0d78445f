package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

// RandomForest averages the class probabilities of its trees.
type RandomForest struct {
	trees        []*DecisionTree
	classes      []int
	featureNames []string
	features     int
}

type forestFile struct {
	ModelType    string     `json:"model_type"`
	Classes      []int      `json:"classes"`
	NumFeatures  int        `json:"n_features"`
	FeatureNames []string   `json:"feature_names,omitempty"`
	Trees        []treeBody `json:"trees"`
}

type treeBody struct {
	Nodes []TreeNode `json:"nodes"`
}

func NewRandomForest(trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	first := trees[0]
	for i, tree := range trees[1:] {
		if tree.features != first.features {
			return nil, fmt.Errorf("tree %d: %d features, want %d", i+1, tree.features, first.features)
		}
		if !slices.Equal(tree.classes, first.classes) {
			return nil, fmt.Errorf("tree %d: classes %v, want %v", i+1, tree.classes, first.classes)
		}
	}
	return &RandomForest{
		trees:    trees,
		classes:  first.Classes(),
		features: first.features,
	}, nil
}

func (rf *RandomForest) Classes() []int {
	return append([]int(nil), rf.classes...)
}

func (rf *RandomForest) NumFeatures() int {
	return rf.features
}

func (rf *RandomForest) NumTrees() int {
	return len(rf.trees)
}

func (rf *RandomForest) FeatureNames() []string {
	return append([]string(nil), rf.featureNames...)
}

func (rf *RandomForest) SetFeatureNames(names []string) error {
	if len(names) != 0 && len(names) != rf.features {
		return fmt.Errorf("%d feature names for %d features", len(names), rf.features)
	}
	rf.featureNames = append([]string(nil), names...)
	return nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.trees) == 0 {
		return nil, errors.New("model not trained")
	}
	proba := make([]float64, len(rf.classes))
	for i, tree := range rf.trees {
		p, err := tree.PredictProba(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		for j := range proba {
			proba[j] += p[j]
		}
	}
	n := float64(len(rf.trees))
	for j := range proba {
		proba[j] /= n
	}
	return proba, nil
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.trees) == 0 {
		return errors.New("model not trained")
	}
	file := forestFile{
		ModelType:    ModelTypeRandomForest,
		Classes:      rf.classes,
		NumFeatures:  rf.features,
		FeatureNames: rf.featureNames,
		Trees:        make([]treeBody, len(rf.trees)),
	}
	for i, tree := range rf.trees {
		file.Trees[i] = treeBody{Nodes: tree.nodes}
	}
	payload, err := json.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file forestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if file.ModelType != "" && file.ModelType != ModelTypeRandomForest {
		return fmt.Errorf("model_type %q is not %q", file.ModelType, ModelTypeRandomForest)
	}
	trees := make([]*DecisionTree, len(file.Trees))
	for i, body := range file.Trees {
		tree, err := NewDecisionTree(body.Nodes, file.Classes, file.NumFeatures)
		if err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}
	loaded, err := NewRandomForest(trees)
	if err != nil {
		return err
	}
	if err := loaded.SetFeatureNames(file.FeatureNames); err != nil {
		return err
	}
	*rf = *loaded
	return nil
}
