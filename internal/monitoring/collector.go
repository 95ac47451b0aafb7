package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of ingestion health.
type MetricsSnapshot struct {
	// Run counts within the lookback window.
	RunsTotal     int     `json:"runs_total"`
	RunsCompleted int     `json:"runs_completed"`
	RunsPartial   int     `json:"runs_partial"`
	RunsFailed    int     `json:"runs_failed"`
	RunsRunning   int     `json:"runs_running"`
	RunFailRate   float64 `json:"run_fail_rate"`

	// Document totals across those runs.
	DocumentsProcessed int     `json:"documents_processed"`
	DocumentsFailed    int     `json:"documents_failed"`
	DocFailRate        float64 `json:"doc_fail_rate"`

	// Merge anomalies across those runs.
	AnomalyCount int `json:"anomaly_count"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers run-health metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of ingestion health over the given lookback
// window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}
	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: 1000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusCompleted:
			snap.RunsCompleted++
		case model.RunStatusPartial:
			snap.RunsPartial++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		snap.DocumentsProcessed += r.DocumentsProcessed
		snap.DocumentsFailed += r.DocumentsFailed

		anomalies, err := c.store.ListAnomalies(ctx, r.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "monitoring: list anomalies for run %s", r.ID)
		}
		snap.AnomalyCount += len(anomalies)
	}

	if finished := snap.RunsCompleted + snap.RunsPartial + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if total := snap.DocumentsProcessed + snap.DocumentsFailed; total > 0 {
		snap.DocFailRate = float64(snap.DocumentsFailed) / float64(total)
	}

	return snap, nil
}
