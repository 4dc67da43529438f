package detector

import (
	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

// ensembleOutcome is the aggregate of the member verdicts for one vector.
type ensembleOutcome struct {
	IsAnomaly  bool
	Confidence float64
	Score      float64
	Votes      int
	Members    int
}

// scoreEnsemble runs every ensemble member on the vector and aggregates by
// strict majority: more than half of the members that scored successfully
// must flag the vector. A tie is not a majority and resolves to not anomalous.
// Members that fail are skipped and logged; if none succeed the vector cannot
// be scored at all.
func scoreEnsemble(members []Model, features []float64, log *logger.Logger) (ensembleOutcome, error) {
	var out ensembleOutcome
	var confSum, scoreSum float64

	for _, m := range members {
		res, err := m.Score(features)
		if err != nil {
			if log != nil {
				log.Warn("ensemble member %s failed to score: %v", m.Algorithm(), err)
			}
			continue
		}
		out.Members++
		confSum += res.Confidence
		scoreSum += res.RawScore
		if res.IsAnomaly {
			out.Votes++
		}
	}

	if out.Members == 0 {
		return out, ErrNoAlgorithmAvailable
	}

	out.IsAnomaly = out.Votes > out.Members/2
	out.Confidence = confSum / float64(out.Members)
	out.Score = scoreSum / float64(out.Members)
	return out, nil
}
