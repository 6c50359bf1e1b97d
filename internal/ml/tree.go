package ml

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
)

const leafFeature = -1

// treeNode is one node of a fitted decision tree. Internal nodes route
// x[Feature] <= Threshold to Left; leaves carry a normalized class
// distribution.
type treeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"`
}

// Tree is a CART classification tree grown on weighted Gini impurity.
type Tree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for t.Nodes[i].Feature != leafFeature {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

func (t *Tree) validate(numFeatures, numClasses int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Feature == leafFeature {
			if len(n.Value) != numClasses {
				return fmt.Errorf("leaf %d has %d class values, want %d", i, len(n.Value), numClasses)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d out of %d", i, n.Feature, numFeatures)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

type treeParams struct {
	maxFeatures    int
	maxDepth       int
	minSamplesLeaf int
}

// treeBuilder grows one tree. Samples with zero weight are not part of the
// tree; weights already fold in bootstrap multiplicity and class balancing.
type treeBuilder struct {
	x      [][]float64
	y      []int
	w      []float64
	k      int
	params treeParams
	rng    *rand.Rand
	nodes  []treeNode
}

func growTree(x [][]float64, y []int, w []float64, k int, params treeParams, rng *rand.Rand) *Tree {
	b := &treeBuilder{x: x, y: y, w: w, k: k, params: params, rng: rng}
	idx := make([]int, 0, len(y))
	for i, wi := range w {
		if wi > 0 {
			idx = append(idx, i)
		}
	}
	b.build(idx, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) classWeights(idx []int) ([]float64, float64) {
	counts := make([]float64, b.k)
	total := 0.0
	for _, i := range idx {
		counts[b.y[i]] += b.w[i]
		total += b.w[i]
	}
	return counts, total
}

func (b *treeBuilder) build(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Feature: leafFeature})

	counts, total := b.classWeights(idx)
	pure := 0
	for _, c := range counts {
		if c > 0 {
			pure++
		}
	}
	stop := pure <= 1 ||
		len(idx) < 2*b.params.minSamplesLeaf ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth)

	if !stop {
		if feature, threshold, ok := b.bestSplit(idx); ok {
			left := make([]int, 0, len(idx))
			right := make([]int, 0, len(idx))
			for _, i := range idx {
				if b.x[i][feature] <= threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			l := b.build(left, depth+1)
			r := b.build(right, depth+1)
			b.nodes[self] = treeNode{Feature: feature, Threshold: threshold, Left: l, Right: r}
			return self
		}
	}

	value := make([]float64, b.k)
	if total > 0 {
		for c := range counts {
			value[c] = counts[c] / total
		}
	}
	b.nodes[self].Value = value
	return self
}

// bestSplit searches up to maxFeatures non-constant features drawn in random
// order and returns the split maximizing the weighted Gini decrease.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	d := len(b.x[0])
	order := slices.Clone(idx)
	leftCounts := make([]float64, b.k)
	rightCounts := make([]float64, b.k)
	totalCounts, _ := b.classWeights(idx)

	bestFeature, bestThreshold, bestScore := -1, 0.0, -1.0
	visited := 0
	for _, f := range b.rng.Perm(d) {
		if visited >= b.params.maxFeatures {
			break
		}
		slices.SortFunc(order, func(a, c int) int { return cmp.Compare(b.x[a][f], b.x[c][f]) })
		if b.x[order[0]][f] == b.x[order[len(order)-1]][f] {
			continue
		}
		visited++

		clear(leftCounts)
		copy(rightCounts, totalCounts)
		wl, wr := 0.0, 0.0
		for _, c := range rightCounts {
			wr += c
		}
		minLeaf := b.params.minSamplesLeaf
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftCounts[b.y[i]] += b.w[i]
			rightCounts[b.y[i]] -= b.w[i]
			wl += b.w[i]
			wr -= b.w[i]

			cur, next := b.x[i][f], b.x[order[pos+1]][f]
			if cur == next || pos+1 < minLeaf || len(order)-pos-1 < minLeaf {
				continue
			}
			if wl <= 0 || wr <= 0 {
				continue
			}
			score := sumSquares(leftCounts)/wl + sumSquares(rightCounts)/wr
			if score > bestScore {
				threshold := cur + (next-cur)/2
				if threshold >= next {
					threshold = cur
				}
				bestFeature, bestThreshold, bestScore = f, threshold, score
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func sumSquares(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}
