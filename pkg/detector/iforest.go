package detector

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sync"
)

// IsolationForest detects anomalies by how quickly randomized partitioning
// trees isolate a sample: short average path lengths mean anomalous. The
// decision threshold is calibrated from the contamination ratio on the
// training data itself.
type IsolationForest struct {
	mu sync.RWMutex

	nTrees        int
	sampleSize    int
	contamination float64
	maxDepth      int
	seed          int64

	trees         []*iTree
	threshold     float64
	avgPathLength float64
	trained       bool
}

// iTree is a single isolation tree.
type iTree struct {
	Root *iNode
}

// iNode is a node in an isolation tree. Fields are exported for gob.
type iNode struct {
	SplitFeature int
	SplitValue   float64
	Left         *iNode
	Right        *iNode
	Size         int
}

// IsolationForestOption configures an IsolationForest.
type IsolationForestOption func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) IsolationForestOption {
	return func(f *IsolationForest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) IsolationForestOption {
	return func(f *IsolationForest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies in training
// data.
func WithContamination(c float64) IsolationForestOption {
	return func(f *IsolationForest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducible tree construction.
func WithSeed(seed int64) IsolationForestOption {
	return func(f *IsolationForest) {
		f.seed = seed
	}
}

// NewIsolationForest creates an IsolationForest with the given options.
func NewIsolationForest(opts ...IsolationForestOption) *IsolationForest {
	f := &IsolationForest{
		nTrees:        100,
		sampleSize:    256,
		contamination: 0.1,
		seed:          42,
	}

	for _, opt := range opts {
		opt(f)
	}

	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))

	return f
}

// Algorithm returns the isolation forest tag.
func (f *IsolationForest) Algorithm() Algorithm {
	return AlgorithmIsolationForest
}

// Trained reports whether Fit has completed.
func (f *IsolationForest) Trained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.trained
}

// Fit trains the forest on the given matrix and calibrates the anomaly
// threshold so roughly the contamination fraction of the training data
// classifies as anomalous.
func (f *IsolationForest) Fit(data [][]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}

	nSamples := len(data)
	nFeatures := len(data[0])
	rng := rand.New(rand.NewSource(f.seed))

	sampleSize := f.sampleSize
	if sampleSize > nSamples {
		sampleSize = nSamples
	}

	trees := make([]*iTree, f.nTrees)
	for i := 0; i < f.nTrees; i++ {
		indices := rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}
		trees[i] = &iTree{Root: buildNode(rng, sample, nFeatures, 0, f.maxDepth)}
	}

	f.trees = trees
	f.avgPathLength = averagePathLength(float64(sampleSize))
	f.trained = true

	// Calibrate the threshold from the contamination ratio.
	scores := make([]float64, nSamples)
	for i, row := range data {
		scores[i] = f.pathScore(row)
	}
	f.threshold = percentile(scores, 100*(1-f.contamination))

	return nil
}

func buildNode(rng *rand.Rand, data [][]float64, nFeatures, depth, maxDepth int) *iNode {
	n := len(data)

	if depth >= maxDepth || n <= 1 {
		return &iNode{Size: n}
	}

	feature := rng.Intn(nFeatures)

	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}

	if minVal == maxVal {
		return &iNode{Size: n}
	}

	splitValue := minVal + rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &iNode{
		SplitFeature: feature,
		SplitValue:   splitValue,
		Left:         buildNode(rng, leftData, nFeatures, depth+1, maxDepth),
		Right:        buildNode(rng, rightData, nFeatures, depth+1, maxDepth),
	}
}

// Score evaluates one vector. RawScore is the negated path-length score, so
// more negative means more anomalous, matching the sign convention of the
// original model this replaces.
func (f *IsolationForest) Score(features []float64) (ScoreResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return ScoreResult{}, ErrModelNotTrained
	}

	score := f.pathScore(features)
	raw := -score

	return ScoreResult{
		IsAnomaly:  score > f.threshold,
		RawScore:   raw,
		Confidence: math.Abs(raw),
	}, nil
}

// pathScore computes the normalized anomaly score 2^(-avgPath/c(n)) in
// (0, 1); higher means more anomalous. Caller holds the lock.
func (f *IsolationForest) pathScore(features []float64) float64 {
	var totalPath float64
	for _, tree := range f.trees {
		totalPath += pathLength(features, tree.Root, 0)
	}
	avgPath := totalPath / float64(len(f.trees))

	return math.Pow(2, -avgPath/f.avgPathLength)
}

func pathLength(features []float64, n *iNode, depth int) float64 {
	if n.Left == nil && n.Right == nil {
		return float64(depth) + averagePathLength(float64(n.Size))
	}

	if features[n.SplitFeature] < n.SplitValue {
		return pathLength(features, n.Left, depth+1)
	}
	return pathLength(features, n.Right, depth+1)
}

// averagePathLength returns the average path length of unsuccessful search
// in a BST: c(n) = 2*H(n-1) - 2*(n-1)/n.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

// Threshold returns the contamination-calibrated anomaly threshold.
func (f *IsolationForest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// isolationForestState is the gob envelope for Save and Load.
type isolationForestState struct {
	NTrees        int
	SampleSize    int
	Contamination float64
	Threshold     float64
	AvgPathLength float64
	Seed          int64
	Trees         []*iTree
}

// Save serializes the trained forest.
func (f *IsolationForest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, ErrModelNotTrained
	}

	var buf bytes.Buffer
	state := isolationForestState{
		NTrees:        f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
		Threshold:     f.threshold,
		AvgPathLength: f.avgPathLength,
		Seed:          f.seed,
		Trees:         f.trees,
	}
	if err := gob.NewEncoder(&buf).Encode(&state); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Load deserializes a trained forest.
func (f *IsolationForest) Load(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var state isolationForestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}

	f.nTrees = state.NTrees
	f.sampleSize = state.SampleSize
	f.contamination = state.Contamination
	f.threshold = state.Threshold
	f.avgPathLength = state.AvgPathLength
	f.seed = state.Seed
	f.trees = state.Trees
	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))
	f.trained = true

	return nil
}
