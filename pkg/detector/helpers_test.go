package detector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// stubModel is a controllable Model for aggregation and lifecycle tests.
type stubModel struct {
	alg      Algorithm
	result   ScoreResult
	scoreErr error
	fitErr   error
	fitDelay time.Duration
	fitHook  func()
	trained  bool

	mu       sync.Mutex
	fitCalls int
}

func (s *stubModel) Algorithm() Algorithm { return s.alg }

func (s *stubModel) Fit(data [][]float64) error {
	if s.fitHook != nil {
		s.fitHook()
	}
	if s.fitDelay > 0 {
		time.Sleep(s.fitDelay)
	}
	s.mu.Lock()
	s.fitCalls++
	s.mu.Unlock()
	if s.fitErr != nil {
		return s.fitErr
	}
	s.trained = true
	return nil
}

func (s *stubModel) Score(features []float64) (ScoreResult, error) {
	if s.scoreErr != nil {
		return ScoreResult{}, s.scoreErr
	}
	return s.result, nil
}

func (s *stubModel) Trained() bool         { return s.trained }
func (s *stubModel) Save() ([]byte, error) { return []byte("stub"), nil }
func (s *stubModel) Load(data []byte) error {
	s.trained = true
	return nil
}

// memStore is an in-memory Store used to test the engine without a
// database.
type memStore struct {
	mu       sync.Mutex
	results  []*AnomalyResult
	metrics  []*ModelMetrics
	feedback []*FeedbackRecord

	failSaveResult bool
}

var errStoreMiss = errors.New("not found")

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) SaveResult(_ context.Context, result *AnomalyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveResult {
		return fmt.Errorf("store unavailable")
	}
	clone := *result
	s.results = append(s.results, &clone)
	return nil
}

func (s *memStore) SaveMetrics(_ context.Context, metrics *ModelMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *metrics
	s.metrics = append(s.metrics, &clone)
	return nil
}

func (s *memStore) SaveFeedback(_ context.Context, feedback *FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *feedback
	s.feedback = append(s.feedback, &clone)
	return nil
}

func (s *memStore) ListResults(_ context.Context, limit int, algorithm Algorithm) ([]*AnomalyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*AnomalyResult
	for i := len(s.results) - 1; i >= 0; i-- {
		r := s.results[i]
		if algorithm != "" && r.Algorithm != algorithm {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) GetResult(_ context.Context, id uuid.UUID) (*AnomalyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errStoreMiss
}

func (s *memStore) CountResults(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.results)), nil
}

func (s *memStore) ListMetrics(_ context.Context) ([]*ModelMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ModelMetrics, len(s.metrics))
	copy(out, s.metrics)
	return out, nil
}

// recordingDispatcher captures notified results.
type recordingDispatcher struct {
	mu      sync.Mutex
	results []*AnomalyResult
	err     error
}

func (d *recordingDispatcher) Notify(_ context.Context, result *AnomalyResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, result)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.results)
}

// gaussianMatrix generates seeded normal training data for model tests.
func gaussianMatrix(seed int64, rows, cols int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, rows)
	for i := range data {
		row := make([]float64, cols)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		data[i] = row
	}
	return data
}
