package ml

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
)

const KindDecisionTree = "decision_tree"

// DecisionTreeTrainer grows a binary tree over sparse features. A node sends a
// row right when the feature value is above the threshold, which for hashed
// counts means "n-gram present".
type DecisionTreeTrainer struct {
	MaxDepth int
	MinLeaf  int
}

func NewDecisionTreeTrainer(maxDepth, minLeaf int) *DecisionTreeTrainer {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minLeaf <= 0 {
		minLeaf = 2
	}
	return &DecisionTreeTrainer{MaxDepth: maxDepth, MinLeaf: minLeaf}
}

func (t *DecisionTreeTrainer) Kind() string {
	return KindDecisionTree
}

func (t *DecisionTreeTrainer) Train(ctx context.Context, features []SparseVector, labels []bool) (Classifier, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, modelError("features or labels empty")
	}
	if len(features) != len(labels) {
		return nil, modelError("features and labels size mismatch")
	}

	rows := make([]int, len(features))
	for i := range rows {
		rows[i] = i
	}
	builder := treeBuilder{
		ctx:      ctx,
		features: features,
		labels:   labels,
		maxDepth: t.MaxDepth,
		minLeaf:  t.MinLeaf,
	}
	nodes, err := builder.buildNode(rows, 0)
	if err != nil {
		return nil, err
	}
	return &DecisionTree{Nodes: nodes}, nil
}

type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	Probability float64 `json:"probability"`
	Samples     int     `json:"samples"`
	IsLeaf      bool    `json:"is_leaf"`
}

func (dt *DecisionTree) Kind() string {
	return KindDecisionTree
}

func (dt *DecisionTree) Predict(features SparseVector) (float64, float64) {
	node, err := dt.leaf(features)
	if err != nil {
		return 0, 0.5
	}
	p := node.Probability
	return math.Log(p / (1 - p)), p
}

func (dt *DecisionTree) leaf(features SparseVector) (TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if features.At(node.FeatureIdx) <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

// Validate checks the child links of a loaded tree.
func (dt *DecisionTree) Validate() error {
	if len(dt.Nodes) == 0 {
		return errors.New("model not trained")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if node.Probability <= 0 || node.Probability >= 1 {
				return errors.Errorf("node %d: leaf probability %v out of range", i, node.Probability)
			}
			continue
		}
		if node.LeftChild <= i || node.RightChild <= i || node.LeftChild >= len(dt.Nodes) || node.RightChild >= len(dt.Nodes) {
			return errors.Errorf("node %d: invalid children %d/%d", i, node.LeftChild, node.RightChild)
		}
	}
	return nil
}

type treeBuilder struct {
	ctx      context.Context
	features []SparseVector
	labels   []bool
	maxDepth int
	minLeaf  int
}

func (b *treeBuilder) buildNode(rows []int, depth int) ([]TreeNode, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "decision tree training cancelled")
	}

	positives := b.countPositive(rows)
	leaf := []TreeNode{{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		Probability: leafProbability(positives, len(rows)),
		Samples:     len(rows),
		IsLeaf:      true,
	}}
	if depth >= b.maxDepth || positives == 0 || positives == len(rows) || len(rows) < 2*b.minLeaf {
		return leaf, nil
	}

	bestFeature, ok := b.findBestSplit(rows, positives)
	if !ok {
		return leaf, nil
	}

	leftRows, rightRows := b.splitRows(rows, bestFeature)
	leftNodes, err := b.buildNode(leftRows, depth+1)
	if err != nil {
		return nil, err
	}
	rightNodes, err := b.buildNode(rightRows, depth+1)
	if err != nil {
		return nil, err
	}

	root := TreeNode{
		FeatureIdx:  bestFeature,
		Threshold:   0,
		LeftChild:   1,
		RightChild:  1 + len(leftNodes),
		Probability: leaf[0].Probability,
		Samples:     len(rows),
		IsLeaf:      false,
	}

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, shiftChildren(leftNodes, root.LeftChild)...)
	nodes = append(nodes, shiftChildren(rightNodes, root.RightChild)...)
	return nodes, nil
}

// shiftChildren rebases subtree child links, which are relative to the
// subtree root, onto the position the subtree takes in its parent.
func shiftChildren(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

// findBestSplit only considers features present in at least one row; an
// absent feature cannot separate anything.
func (b *treeBuilder) findBestSplit(rows []int, positives int) (int, bool) {
	type counts struct{ present, positive int }
	perFeature := make(map[int]*counts)
	for _, row := range rows {
		for i, idx := range b.features[row].Indices {
			if b.features[row].Values[i] <= 0 {
				continue
			}
			c, ok := perFeature[idx]
			if !ok {
				c = &counts{}
				perFeature[idx] = c
			}
			c.present++
			if b.labels[row] {
				c.positive++
			}
		}
	}

	candidates := make([]int, 0, len(perFeature))
	for idx := range perFeature {
		candidates = append(candidates, idx)
	}
	sort.Ints(candidates)

	total := len(rows)
	bestFeature := -1
	bestImpurity := math.MaxFloat64
	for _, idx := range candidates {
		c := perFeature[idx]
		right, rightPos := c.present, c.positive
		left, leftPos := total-right, positives-rightPos
		if left < b.minLeaf || right < b.minLeaf {
			continue
		}
		impurity := weightedGini(leftPos, left, rightPos, right)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = idx
		}
	}
	if bestFeature == -1 {
		return -1, false
	}
	return bestFeature, true
}

func (b *treeBuilder) splitRows(rows []int, featureIdx int) ([]int, []int) {
	leftRows := make([]int, 0)
	rightRows := make([]int, 0)
	for _, row := range rows {
		if b.features[row].At(featureIdx) <= 0 {
			leftRows = append(leftRows, row)
		} else {
			rightRows = append(rightRows, row)
		}
	}
	return leftRows, rightRows
}

func (b *treeBuilder) countPositive(rows []int) int {
	positives := 0
	for _, row := range rows {
		if b.labels[row] {
			positives++
		}
	}
	return positives
}

func weightedGini(leftPos, left, rightPos, right int) float64 {
	total := float64(left + right)
	return (float64(left)/total)*gini(leftPos, left) + (float64(right)/total)*gini(rightPos, right)
}

func gini(positives, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(positives) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}

// leafProbability is the Laplace smoothed positive rate, so it never reaches 0 or 1.
func leafProbability(positives, n int) float64 {
	return (float64(positives) + 1) / (float64(n) + 2)
}
