package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

func TestScoreEnsembleTieIsNotAnomaly(t *testing.T) {
	members := []Model{
		&stubModel{alg: AlgorithmIsolationForest, result: ScoreResult{IsAnomaly: true, RawScore: -0.8, Confidence: 0.8}},
		&stubModel{alg: AlgorithmOneClassSVM, result: ScoreResult{IsAnomaly: false, RawScore: 0.4, Confidence: 0.4}},
	}

	out, err := scoreEnsemble(members, []float64{1, 2}, logger.Nop())
	require.NoError(t, err)

	assert.False(t, out.IsAnomaly, "one vote of two is a tie, ties resolve to not anomaly")
	assert.Equal(t, 1, out.Votes)
	assert.Equal(t, 2, out.Members)
}

func TestScoreEnsembleUnanimity(t *testing.T) {
	members := []Model{
		&stubModel{alg: AlgorithmIsolationForest, result: ScoreResult{IsAnomaly: true, RawScore: -0.6, Confidence: 0.6}},
		&stubModel{alg: AlgorithmOneClassSVM, result: ScoreResult{IsAnomaly: true, RawScore: -0.2, Confidence: 0.9}},
	}

	out, err := scoreEnsemble(members, []float64{1, 2}, logger.Nop())
	require.NoError(t, err)

	assert.True(t, out.IsAnomaly)
	assert.Equal(t, 2, out.Votes)
	assert.InDelta(t, 0.75, out.Confidence, 1e-9, "confidence is the mean of member confidences")
	assert.InDelta(t, -0.4, out.Score, 1e-9, "score is the mean of member raw scores")
}

func TestScoreEnsembleSkipsFailingMember(t *testing.T) {
	members := []Model{
		&stubModel{alg: AlgorithmIsolationForest, scoreErr: errors.New("boom")},
		&stubModel{alg: AlgorithmOneClassSVM, result: ScoreResult{IsAnomaly: true, RawScore: -0.5, Confidence: 0.95}},
	}

	out, err := scoreEnsemble(members, []float64{1, 2}, logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, out.Members, "failing members are skipped, not fatal")
	assert.True(t, out.IsAnomaly, "the single surviving vote is a majority of one")
	assert.InDelta(t, 0.95, out.Confidence, 1e-9)
}

func TestScoreEnsembleAllMembersFail(t *testing.T) {
	members := []Model{
		&stubModel{alg: AlgorithmIsolationForest, scoreErr: errors.New("a")},
		&stubModel{alg: AlgorithmOneClassSVM, scoreErr: errors.New("b")},
	}

	_, err := scoreEnsemble(members, []float64{1, 2}, logger.Nop())
	assert.ErrorIs(t, err, ErrNoAlgorithmAvailable)
}

func TestScoreEnsembleNoMembers(t *testing.T) {
	_, err := scoreEnsemble(nil, []float64{1, 2}, logger.Nop())
	assert.ErrorIs(t, err, ErrNoAlgorithmAvailable)
}

func TestModelSetMembership(t *testing.T) {
	set := newModelSet(
		&stubModel{alg: AlgorithmIsolationForest},
		&stubModel{alg: AlgorithmOneClassSVM},
		&stubModel{alg: AlgorithmStatistical},
	)

	voters := set.members(false)
	require.Len(t, voters, 2, "the stateless method is excluded by default")
	for _, m := range voters {
		assert.NotEqual(t, AlgorithmStatistical, m.Algorithm())
	}

	assert.Len(t, set.members(true), 3)

	_, ok := set.get(AlgorithmStatistical)
	assert.True(t, ok)
	_, ok = set.get(AlgorithmEnsemble)
	assert.False(t, ok)
}
