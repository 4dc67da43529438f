package detector

// ClassifyAlert maps a detection verdict and its confidence to a severity
// level. Band boundaries are inclusive at the lower edge, so the level is
// non-decreasing in confidence for anomalous results.
func ClassifyAlert(confidence float64, isAnomaly bool) AlertLevel {
	if !isAnomaly {
		return AlertLow
	}

	switch {
	case confidence >= 0.9:
		return AlertCritical
	case confidence >= 0.7:
		return AlertHigh
	case confidence >= 0.5:
		return AlertMedium
	default:
		return AlertLow
	}
}
