package detector

import "time"

// modelSet is an immutable snapshot of the trained models. The lifecycle
// manager replaces the whole set atomically at the end of a training run;
// nothing mutates a set after publication, so detections can hold a
// reference across the swap without torn reads.
type modelSet struct {
	models    map[Algorithm]Model
	createdAt time.Time
}

func newModelSet(models ...Model) *modelSet {
	set := &modelSet{
		models:    make(map[Algorithm]Model, len(models)),
		createdAt: time.Now(),
	}
	for _, m := range models {
		set.models[m.Algorithm()] = m
	}
	return set
}

// get returns the model registered for the algorithm.
func (s *modelSet) get(algorithm Algorithm) (Model, bool) {
	m, ok := s.models[algorithm]
	return m, ok
}

// members returns the ensemble voters in a stable order. The stateless
// statistical method is excluded unless explicitly included: it has no
// trained state and would fire independently of the trained models.
func (s *modelSet) members(includeStatistical bool) []Model {
	var out []Model
	for _, alg := range Algorithms() {
		if alg == AlgorithmStatistical && !includeStatistical {
			continue
		}
		if m, ok := s.models[alg]; ok {
			out = append(out, m)
		}
	}
	return out
}

// algorithms lists the registered algorithm tags in a stable order.
func (s *modelSet) algorithms() []Algorithm {
	var out []Algorithm
	for _, alg := range Algorithms() {
		if _, ok := s.models[alg]; ok {
			out = append(out, alg)
		}
	}
	return out
}
