package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAlert(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		isAnomaly  bool
		want       AlertLevel
	}{
		{"not anomaly ignores confidence", 0.99, false, AlertLow},
		{"zero confidence anomaly", 0.0, true, AlertLow},
		{"below medium band", 0.49, true, AlertLow},
		{"medium lower edge inclusive", 0.5, true, AlertMedium},
		{"inside medium band", 0.69, true, AlertMedium},
		{"high lower edge inclusive", 0.7, true, AlertHigh},
		{"inside high band", 0.89, true, AlertHigh},
		{"critical lower edge inclusive", 0.9, true, AlertCritical},
		{"above critical edge", 1.0, true, AlertCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAlert(tt.confidence, tt.isAnomaly))
		})
	}
}

func TestClassifyAlertMonotonic(t *testing.T) {
	prev := ClassifyAlert(0, true)
	for c := 0.0; c <= 1.0; c += 0.01 {
		level := ClassifyAlert(c, true)
		assert.GreaterOrEqual(t, level.Rank(), prev.Rank(),
			"severity must not decrease as confidence rises (at %.2f)", c)
		prev = level
	}
}

func TestAlertLevelRankOrdering(t *testing.T) {
	assert.Less(t, AlertLow.Rank(), AlertMedium.Rank())
	assert.Less(t, AlertMedium.Rank(), AlertHigh.Rank())
	assert.Less(t, AlertHigh.Rank(), AlertCritical.Rank())
}
