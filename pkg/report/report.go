// Package report summarizes stored detection activity into a document that
// can be rendered as text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
)

// Document is a point-in-time summary of detection activity and model
// quality.
type Document struct {
	GeneratedAt   time.Time                `json:"generated_at"`
	TotalResults  int                      `json:"total_results"`
	AnomalyCount  int                      `json:"anomaly_count"`
	AnomalyRate   float64                  `json:"anomaly_rate"`
	ByAlertLevel  map[string]int           `json:"by_alert_level"`
	ByAlgorithm   map[string]int           `json:"by_algorithm"`
	LatestMetrics []*detector.ModelMetrics `json:"latest_metrics"`
}

// Build aggregates results and picks the most recent metrics row per
// algorithm.
func Build(results []*detector.AnomalyResult, metrics []*detector.ModelMetrics) *Document {
	doc := &Document{
		GeneratedAt:  time.Now().UTC(),
		TotalResults: len(results),
		ByAlertLevel: make(map[string]int),
		ByAlgorithm:  make(map[string]int),
	}

	for _, r := range results {
		if r.IsAnomaly {
			doc.AnomalyCount++
		}
		doc.ByAlertLevel[string(r.AlertLevel)]++
		doc.ByAlgorithm[string(r.Algorithm)]++
	}
	if doc.TotalResults > 0 {
		doc.AnomalyRate = float64(doc.AnomalyCount) / float64(doc.TotalResults)
	}

	latest := make(map[detector.Algorithm]*detector.ModelMetrics)
	for _, m := range metrics {
		cur, ok := latest[m.Algorithm]
		if !ok || m.LastUpdated.After(cur.LastUpdated) {
			latest[m.Algorithm] = m
		}
	}
	for _, m := range latest {
		doc.LatestMetrics = append(doc.LatestMetrics, m)
	}
	sort.Slice(doc.LatestMetrics, func(i, j int) bool {
		return doc.LatestMetrics[i].Algorithm < doc.LatestMetrics[j].Algorithm
	})
	return doc
}

// JSON renders the document as indented JSON.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Render formats the document as a human-readable text block.
func (d *Document) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Anomaly Detection Report (%s)\n", d.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Results: %d total, %d anomalous (%.1f%%)\n",
		d.TotalResults, d.AnomalyCount, d.AnomalyRate*100)

	if len(d.ByAlertLevel) > 0 {
		b.WriteString("Alert levels:\n")
		for _, level := range []detector.AlertLevel{detector.AlertCritical, detector.AlertHigh, detector.AlertMedium, detector.AlertLow} {
			if n, ok := d.ByAlertLevel[string(level)]; ok {
				fmt.Fprintf(&b, "  %-8s %d\n", level, n)
			}
		}
	}
	if len(d.LatestMetrics) > 0 {
		b.WriteString("Model quality (latest run):\n")
		for _, m := range d.LatestMetrics {
			fmt.Fprintf(&b, "  %-18s precision=%.3f recall=%.3f f1=%.3f accuracy=%.3f\n",
				m.Algorithm, m.Precision, m.Recall, m.F1Score, m.Accuracy)
		}
	}
	return b.String()
}
