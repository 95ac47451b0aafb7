package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-cli/internal/config"
	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedRun(t *testing.T, s store.Store, status model.RunStatus, processed, failed int) string {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	run := &model.IngestionRun{
		ID:       uuid.NewString(),
		FromDate: now.AddDate(0, 0, -1),
		ToDate:   now,
		Status:   model.RunStatusPending,
	}
	require.NoError(t, s.CreateRun(ctx, run))

	run.Status = status
	run.FinishedAt = &now
	run.DocumentsTotal = processed + failed
	run.DocumentsProcessed = processed
	run.DocumentsFailed = failed
	require.NoError(t, s.FinishRun(ctx, run))
	return run.ID
}

func TestCollectorAggregatesRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedRun(t, s, model.RunStatusCompleted, 50, 0)
	seedRun(t, s, model.RunStatusPartial, 40, 5)
	failedID := seedRun(t, s, model.RunStatusFailed, 0, 10)

	require.NoError(t, s.InsertAnomaly(ctx, &model.MergeAnomaly{
		RunID: failedID, Kind: model.AnomalyParse, Detail: "bad block",
	}))

	snap, err := NewCollector(s).Collect(ctx, 24)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsCompleted)
	assert.Equal(t, 1, snap.RunsPartial)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 90, snap.DocumentsProcessed)
	assert.Equal(t, 15, snap.DocumentsFailed)
	assert.InDelta(t, 1.0/3.0, snap.RunFailRate, 0.001)
	assert.InDelta(t, 15.0/105.0, snap.DocFailRate, 0.001)
	assert.Equal(t, 1, snap.AnomalyCount)
}

func TestCollectorEmptyStore(t *testing.T) {
	s := newTestStore(t)

	snap, err := NewCollector(s).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, snap.RunsTotal)
	assert.Zero(t, snap.RunFailRate)
	assert.Zero(t, snap.DocFailRate)
}

func TestAlerterEvaluate(t *testing.T) {
	cfg := config.MonitoringConfig{
		FailureRateThreshold: 0.25,
		AnomalyThreshold:     100,
	}
	a := NewAlerter(cfg)

	// Healthy snapshot triggers nothing.
	alerts := a.Evaluate(&MetricsSnapshot{
		RunsTotal: 2, RunsCompleted: 2,
		DocumentsProcessed: 100, LookbackHours: 24,
	})
	assert.Empty(t, alerts)

	// Failure rate over threshold plus a failed run.
	alerts = a.Evaluate(&MetricsSnapshot{
		RunsTotal: 2, RunsCompleted: 1, RunsFailed: 1, RunFailRate: 0.5,
		DocumentsProcessed: 10, DocumentsFailed: 10, DocFailRate: 0.5,
		LookbackHours: 24,
	})
	require.Len(t, alerts, 2)
	types := []AlertType{alerts[0].Type, alerts[1].Type}
	assert.Contains(t, types, AlertDocFailureRate)
	assert.Contains(t, types, AlertRunFailure)

	// Anomaly spike.
	alerts = a.Evaluate(&MetricsSnapshot{AnomalyCount: 500, LookbackHours: 24})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertAnomalySpike, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
}

func TestAlerterSmallSampleSuppressed(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	// 1 of 2 docs failed is a 50% rate but too small a sample to alert on.
	alerts := a.Evaluate(&MetricsSnapshot{
		DocumentsProcessed: 1, DocumentsFailed: 1, DocFailRate: 0.5,
		LookbackHours: 24,
	})
	assert.Empty(t, alerts)
}

func TestSendAlertsWebhook(t *testing.T) {
	var received []Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		received = append(received, a)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailure, Severity: "high", Message: "1 run failed"},
	})

	assert.Equal(t, 1, sent)
	require.Len(t, received, 1)
	assert.Equal(t, AlertRunFailure, received[0].Type)
}

func TestSendAlertsNoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailure}})
	assert.Zero(t, sent)
}

func TestCheckerStopsOnCancel(t *testing.T) {
	s := newTestStore(t)
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 24}
	c := NewChecker(NewCollector(s), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop after cancellation")
	}
}
