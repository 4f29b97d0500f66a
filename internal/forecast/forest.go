package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// ForestConfig controls the bagged regression tree ensemble.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.Trees <= 0 {
		c.Trees = 50
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 8
	}
	if c.MinLeaf <= 0 {
		c.MinLeaf = 2
	}
	return c
}

// Forest is a random-forest style ensemble of multi-output regression trees.
// Each tree is grown on a bootstrap sample; a split minimises the summed
// squared error over all outputs, and a leaf predicts the mean output vector.
type Forest struct {
	cfg     ForestConfig
	trees   []*node
	outputs int
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     []float64 // leaf only
}

func NewForest(cfg ForestConfig) *Forest {
	return &Forest{cfg: cfg.withDefaults()}
}

// Fit trains the ensemble. X rows are feature vectors, Y rows the matching
// output vectors. Trees are grown concurrently; results are deterministic
// for a given seed.
func (f *Forest) Fit(X, Y [][]float64) error {
	if len(X) == 0 {
		return errors.New("forest: no training rows")
	}
	if len(X) != len(Y) {
		return fmt.Errorf("forest: %d feature rows but %d target rows", len(X), len(Y))
	}
	features, outputs := len(X[0]), len(Y[0])
	for i := range X {
		if len(X[i]) != features || len(Y[i]) != outputs {
			return fmt.Errorf("forest: ragged row %d", i)
		}
		for _, v := range X[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("forest: non-finite feature in row %d", i)
			}
		}
	}

	// Seeds are drawn up front so tree order does not affect results.
	seeder := rand.New(rand.NewSource(f.cfg.Seed))
	seeds := make([]int64, f.cfg.Trees)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	trees := make([]*node, f.cfg.Trees)
	var wg sync.WaitGroup
	for i := range trees {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seeds[i]))
			sample := make([]int, len(X))
			for j := range sample {
				sample[j] = rng.Intn(len(X))
			}
			b := builder{X: X, Y: Y, cfg: f.cfg, outputs: outputs}
			trees[i] = b.grow(sample, 0)
		}(i)
	}
	wg.Wait()

	f.trees = trees
	f.outputs = outputs
	return nil
}

// Predict averages the trees' outputs for x.
func (f *Forest) Predict(x []float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, errors.New("forest: not fitted")
	}
	out := make([]float64, f.outputs)
	for _, t := range f.trees {
		floats.Add(out, t.predict(x))
	}
	floats.Scale(1/float64(len(f.trees)), out)
	return out, nil
}

func (n *node) predict(x []float64) []float64 {
	for n.value == nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type builder struct {
	X, Y    [][]float64
	cfg     ForestConfig
	outputs int
}

func (b *builder) leaf(idx []int) *node {
	mean := make([]float64, b.outputs)
	for _, i := range idx {
		floats.Add(mean, b.Y[i])
	}
	floats.Scale(1/float64(len(idx)), mean)
	return &node{value: mean}
}

// sse is the summed squared error of idx around its per-output mean.
func (b *builder) sse(idx []int) float64 {
	sum := make([]float64, b.outputs)
	sq := make([]float64, b.outputs)
	for _, i := range idx {
		for k, v := range b.Y[i] {
			sum[k] += v
			sq[k] += v * v
		}
	}
	n := float64(len(idx))
	var total float64
	for k := range sum {
		total += sq[k] - sum[k]*sum[k]/n
	}
	return total
}

func (b *builder) grow(idx []int, depth int) *node {
	if depth >= b.cfg.MaxDepth || len(idx) < 2*b.cfg.MinLeaf {
		return b.leaf(idx)
	}
	parent := b.sse(idx)
	if parent <= 1e-12 {
		return b.leaf(idx)
	}

	bestFeature, bestThreshold, bestErr := -1, 0.0, parent
	sorted := make([]int, len(idx))
	leftSum := make([]float64, b.outputs)
	leftSq := make([]float64, b.outputs)
	totalSum := make([]float64, b.outputs)
	totalSq := make([]float64, b.outputs)
	for _, i := range idx {
		for k, v := range b.Y[i] {
			totalSum[k] += v
			totalSq[k] += v * v
		}
	}

	n := len(idx)
	for feat := range b.X[0] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][feat] < b.X[sorted[c]][feat] })
		for k := range leftSum {
			leftSum[k], leftSq[k] = 0, 0
		}

		for pos := 0; pos < n-1; pos++ {
			for k, v := range b.Y[sorted[pos]] {
				leftSum[k] += v
				leftSq[k] += v * v
			}
			nl := pos + 1
			nr := n - nl
			if nl < b.cfg.MinLeaf || nr < b.cfg.MinLeaf {
				continue
			}
			cur, next := b.X[sorted[pos]][feat], b.X[sorted[pos+1]][feat]
			if cur == next {
				continue
			}
			var errSum float64
			for k := range leftSum {
				rs := totalSum[k] - leftSum[k]
				rq := totalSq[k] - leftSq[k]
				errSum += leftSq[k] - leftSum[k]*leftSum[k]/float64(nl)
				errSum += rq - rs*rs/float64(nr)
			}
			if errSum < bestErr-1e-12 {
				bestFeature, bestThreshold, bestErr = feat, (cur+next)/2, errSum
			}
		}
	}

	if bestFeature < 0 {
		return b.leaf(idx)
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(idx)
	}
	return &node{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}
