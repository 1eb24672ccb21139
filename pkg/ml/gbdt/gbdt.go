package gbdt

import (
	"math"
	"sort"
)

type Options struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
	MinLeafSize  int
	Lambda       float64
}

// Node is one split or leaf in a regression tree. Children reference
// positions in the tree's node slice; leaves hold the boosted value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Model is an additive ensemble of depth-limited regression trees fit on
// logistic loss. The raw score is base + lr * sum(tree outputs); the
// probability is its sigmoid.
type Model struct {
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

type Metrics struct {
	Loss     float64
	Accuracy float64
}

func Train(samples [][]float64, labels []float64, opts Options) (Model, Metrics) {
	if opts.Rounds <= 0 {
		opts.Rounds = 50
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	if opts.MinLeafSize <= 0 {
		opts.MinLeafSize = 5
	}
	if opts.Lambda <= 0 {
		opts.Lambda = 1.0
	}

	n := len(samples)
	if n == 0 {
		return Model{}, Metrics{}
	}

	model := Model{
		BaseScore:    initialScore(labels),
		LearningRate: opts.LearningRate,
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = model.BaseScore
	}

	grads := make([]float64, n)
	hess := make([]float64, n)
	indices := make([]int, n)

	for round := 0; round < opts.Rounds; round++ {
		for i := range samples {
			p := sigmoid(scores[i])
			grads[i] = p - labels[i]
			hess[i] = p * (1 - p)
		}
		for i := range indices {
			indices[i] = i
		}

		builder := treeBuilder{
			samples:     samples,
			grads:       grads,
			hess:        hess,
			maxDepth:    opts.MaxDepth,
			minLeafSize: opts.MinLeafSize,
			lambda:      opts.Lambda,
		}
		tree := Tree{}
		builder.build(&tree, indices, 0)
		model.Trees = append(model.Trees, tree)

		for i, sample := range samples {
			scores[i] += opts.LearningRate * tree.predict(sample)
		}
	}

	loss, accuracy := evaluate(model, samples, labels)
	return model, Metrics{Loss: loss, Accuracy: accuracy}
}

func (m Model) PredictProb(sample []float64) float64 {
	score := m.BaseScore
	for _, tree := range m.Trees {
		score += m.LearningRate * tree.predict(sample)
	}
	return sigmoid(score)
}

func (t Tree) predict(sample []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if sample[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

type treeBuilder struct {
	samples     [][]float64
	grads       []float64
	hess        []float64
	maxDepth    int
	minLeafSize int
	lambda      float64
}

// build appends the subtree for indices and returns its root position.
func (b *treeBuilder) build(tree *Tree, indices []int, depth int) int {
	var gradSum, hessSum float64
	for _, i := range indices {
		gradSum += b.grads[i]
		hessSum += b.hess[i]
	}

	pos := len(tree.Nodes)
	if depth >= b.maxDepth || len(indices) < 2*b.minLeafSize {
		tree.Nodes = append(tree.Nodes, leaf(gradSum, hessSum, b.lambda))
		return pos
	}

	feature, threshold, gain := b.bestSplit(indices, gradSum, hessSum)
	if gain <= 0 {
		tree.Nodes = append(tree.Nodes, leaf(gradSum, hessSum, b.lambda))
		return pos
	}

	var left, right []int
	for _, i := range indices {
		if b.samples[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	tree.Nodes = append(tree.Nodes, Node{Feature: feature, Threshold: threshold})
	leftPos := b.build(tree, left, depth+1)
	rightPos := b.build(tree, right, depth+1)
	tree.Nodes[pos].Left = leftPos
	tree.Nodes[pos].Right = rightPos
	return pos
}

// bestSplit scans every feature in order and every boundary between
// distinct values, so ties resolve identically run to run.
func (b *treeBuilder) bestSplit(indices []int, gradSum, hessSum float64) (int, float64, float64) {
	parentScore := gradSum * gradSum / (hessSum + b.lambda)

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	featureCount := len(b.samples[indices[0]])
	ordered := make([]int, len(indices))

	for f := 0; f < featureCount; f++ {
		copy(ordered, indices)
		sort.SliceStable(ordered, func(a, c int) bool {
			return b.samples[ordered[a]][f] < b.samples[ordered[c]][f]
		})

		var leftGrad, leftHess float64
		for k := 0; k < len(ordered)-1; k++ {
			i := ordered[k]
			leftGrad += b.grads[i]
			leftHess += b.hess[i]

			current := b.samples[i][f]
			next := b.samples[ordered[k+1]][f]
			if current == next {
				continue
			}
			if k+1 < b.minLeafSize || len(ordered)-k-1 < b.minLeafSize {
				continue
			}

			rightGrad := gradSum - leftGrad
			rightHess := hessSum - leftHess
			gain := leftGrad*leftGrad/(leftHess+b.lambda) +
				rightGrad*rightGrad/(rightHess+b.lambda) -
				parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (current + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

func leaf(gradSum, hessSum, lambda float64) Node {
	return Node{Leaf: true, Value: -gradSum / (hessSum + lambda)}
}

func initialScore(labels []float64) float64 {
	var positives float64
	for _, y := range labels {
		positives += y
	}
	p := positives / float64(len(labels))
	if p < 1e-6 {
		p = 1e-6
	}
	if p > 1-1e-6 {
		p = 1 - 1e-6
	}
	return math.Log(p / (1 - p))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func evaluate(model Model, samples [][]float64, labels []float64) (float64, float64) {
	var loss float64
	var correct int
	for i, sample := range samples {
		prediction := model.PredictProb(sample)
		loss += -labels[i]*math.Log(prediction+1e-9) - (1-labels[i])*math.Log(1-prediction+1e-9)
		if (prediction >= 0.5 && labels[i] == 1) || (prediction < 0.5 && labels[i] == 0) {
			correct++
		}
	}
	loss /= float64(len(samples))
	accuracy := float64(correct) / float64(len(samples))
	return loss, accuracy
}
