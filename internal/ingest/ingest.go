// Package ingest orchestrates ingestion runs: it walks a date range, acquires
// each gazette day's section-A documents, extracts their acts and applies
// them through the resolver, keeping the run ledger current throughout.
//
// Everything downstream of the fetch is idempotent, so a crashed or cancelled
// run can simply be rerun over the same dates: completed documents are
// skipped, replayed acts deduplicate to no-ops.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/registralia/borme-cli/internal/docstore"
	"github.com/registralia/borme-cli/internal/extract"
	"github.com/registralia/borme-cli/internal/fetcher"
	"github.com/registralia/borme-cli/internal/metrics"
	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/pdftext"
	"github.com/registralia/borme-cli/internal/resilience"
	"github.com/registralia/borme-cli/internal/resolve"
	"github.com/registralia/borme-cli/internal/store"
)

// Options tunes run behavior.
type Options struct {
	// Workers bounds concurrent document processing within a day.
	Workers int
	// FailureThreshold opens the circuit after this many consecutive
	// acquisition failures, failing the rest of the run fast.
	FailureThreshold int
	// Retry controls per-document retry of transient failures.
	Retry resilience.RetryConfig
}

// Ingester executes ingestion runs.
type Ingester struct {
	store    store.Store
	fetcher  fetcher.Fetcher
	docs     *docstore.Store
	conv     pdftext.Converter
	resolver *resolve.Resolver
	metrics  *metrics.Metrics
	breaker  *resilience.CircuitBreaker
	opts     Options
}

// New creates an Ingester. A nil metrics instance gets a private registry.
func New(st store.Store, f fetcher.Fetcher, docs *docstore.Store, conv pdftext.Converter, r *resolve.Resolver, m *metrics.Metrics, opts Options) *Ingester {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if m == nil {
		m = metrics.New()
	}
	return &Ingester{
		store:    st,
		fetcher:  f,
		docs:     docs,
		conv:     conv,
		resolver: r,
		metrics:  m,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: opts.FailureThreshold,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("gazette fetch circuit state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		opts: opts,
	}
}

// Prepare validates the range and records a pending run. The caller decides
// when to Execute it; the API uses this split to hand back the run ID before
// the work starts.
func (in *Ingester) Prepare(ctx context.Context, from, to time.Time) (*model.IngestionRun, error) {
	if to.Before(from) {
		return nil, eris.Errorf("ingest: range end %s before start %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	run := &model.IngestionRun{
		ID:       uuid.NewString(),
		FromDate: from,
		ToDate:   to,
		Status:   model.RunStatusPending,
	}
	if err := in.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Run ingests every gazette day in [from, to] inclusive. It always returns
// the run record; the error reports setup problems, not per-document
// failures, which land in the ledger instead.
func (in *Ingester) Run(ctx context.Context, from, to time.Time) (*model.IngestionRun, error) {
	run, err := in.Prepare(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if err := in.Execute(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// Execute processes a prepared run, mutating it in place as days complete.
func (in *Ingester) Execute(ctx context.Context, run *model.IngestionRun) error {
	from, to := run.FromDate, run.ToDate
	if err := in.store.TransitionRun(ctx, run.ID, model.RunStatusPending, model.RunStatusRunning); err != nil {
		return err
	}
	run.Status = model.RunStatusRunning

	start := time.Now()
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("ingestion run started",
		zap.String("from", from.Format("2006-01-02")),
		zap.String("to", to.Format("2006-01-02")))

	var total, processed, failed int
	cancelled := false

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		t, p, f, err := in.ingestDay(ctx, run.ID, day, log)
		total += t
		processed += p
		failed += f
		if err != nil {
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			log.Error("gazette day failed", zap.Time("day", day), zap.Error(err))
			failed++
			total++
		}
	}

	run.DocumentsTotal = total
	run.DocumentsProcessed = processed
	run.DocumentsFailed = failed
	run.Status = finalStatus(processed, failed, cancelled)
	now := time.Now().UTC()
	run.FinishedAt = &now
	if cancelled {
		run.Error = "run cancelled"
	}

	if err := in.store.FinishRun(ctx2(ctx), run); err != nil {
		return err
	}
	in.metrics.RunDuration.Observe(time.Since(start).Seconds())
	log.Info("ingestion run finished",
		zap.String("status", string(run.Status)),
		zap.Int("documents_total", total),
		zap.Int("documents_processed", processed),
		zap.Int("documents_failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// ctx2 detaches from a cancelled context so the final ledger write still
// lands. The write itself is bounded.
func ctx2(ctx context.Context) context.Context {
	if ctx.Err() == nil {
		return ctx
	}
	return context.Background()
}

func finalStatus(processed, failed int, cancelled bool) model.RunStatus {
	switch {
	case cancelled:
		return model.RunStatusPartial
	case failed == 0:
		return model.RunStatusCompleted
	case processed > 0:
		return model.RunStatusPartial
	default:
		return model.RunStatusFailed
	}
}

// ingestDay processes one gazette day and returns (total, processed, failed).
func (in *Ingester) ingestDay(ctx context.Context, runID string, day time.Time, log *zap.Logger) (int, int, int, error) {
	refs, err := in.fetcher.Summary(ctx, day)
	if err != nil {
		return 0, 0, 0, eris.Wrapf(err, "ingest: summary for %s", day.Format("2006-01-02"))
	}
	if len(refs) == 0 {
		// No gazette published (weekend or holiday).
		log.Debug("no gazette issue", zap.Time("day", day))
		return 0, 0, 0, nil
	}

	done, err := in.store.CompletedGazetteIDs(ctx, day)
	if err != nil {
		return 0, 0, 0, err
	}

	var (
		mu        sync.Mutex
		batch     []model.SourceDocument
		completed []*model.DocEntry
		processed int
		failed    int
	)

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(in.opts.Workers)

	for _, ref := range refs {
		if done[ref.GazetteID] {
			if err := in.store.UpsertDocEntry(ctx, &model.DocEntry{
				RunID:      runID,
				GazetteID:  ref.GazetteID,
				GazetteDay: ref.Day,
				Province:   ref.Province,
				Status:     model.DocStatusSkipped,
			}); err != nil {
				return len(refs), processed, failed, err
			}
			processed++
			continue
		}

		// Cancellation takes effect at document boundaries; documents
		// already started run to completion.
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			doc, actCount, procErr := in.processDocument(gctx, runID, ref)

			entry := &model.DocEntry{
				RunID:      runID,
				GazetteID:  ref.GazetteID,
				GazetteDay: ref.Day,
				Province:   ref.Province,
			}
			if procErr != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				entry.Status = model.DocStatusFailed
				entry.Error = procErr.Error()
				in.metrics.DocumentsFailed.Inc()
				log.Warn("document failed",
					zap.String("gazette_id", ref.GazetteID),
					zap.Error(procErr))
				return in.store.UpsertDocEntry(gctx, entry)
			}

			// The completed entry is held back until the document row
			// is flushed: the ledger must never mark a document
			// complete before its row exists, or a rerun would skip a
			// gazette whose record was lost mid-flush.
			entry.Status = model.DocStatusCompleted
			entry.ActCount = actCount
			mu.Lock()
			processed++
			batch = append(batch, *doc)
			completed = append(completed, entry)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return len(refs), processed, failed, err
	}
	if len(batch) > 0 {
		flushCtx := context.WithoutCancel(ctx)
		if err := in.store.BulkUpsertDocuments(flushCtx, batch); err != nil {
			return len(refs), processed, failed, err
		}
		for _, entry := range completed {
			if err := in.store.UpsertDocEntry(flushCtx, entry); err != nil {
				return len(refs), processed, failed, err
			}
		}
	}
	if ctx.Err() != nil {
		return len(refs), processed, failed, ctx.Err()
	}
	return len(refs), processed, failed, nil
}

// processDocument acquires, converts and extracts one gazette document and
// applies its acts. Transient failures are retried; the circuit breaker
// fails the remainder fast when the gazette host is down.
func (in *Ingester) processDocument(ctx context.Context, runID string, ref model.DocumentRef) (*model.SourceDocument, int, error) {
	start := time.Now()

	doc, err := resilience.DoVal(ctx, in.opts.Retry, func(ctx context.Context) (*model.SourceDocument, error) {
		return resilience.ExecuteVal(ctx, in.breaker, func(ctx context.Context) (*model.SourceDocument, error) {
			return in.docs.Acquire(ctx, ref)
		})
	})
	if err != nil {
		return nil, 0, err
	}
	in.metrics.DocumentsFetched.WithLabelValues(string(doc.FetchStatus)).Inc()

	text, err := in.conv.Text(ctx, doc.Path)
	if err != nil {
		return nil, 0, err
	}

	acts := extract.Acts(text, ref.GazetteID, ref.Province, ref.Day)
	for i := range acts {
		inserted, err := in.resolver.Apply(ctx, runID, doc, &acts[i])
		if err != nil {
			return nil, 0, err
		}
		if inserted {
			in.metrics.ActsExtracted.WithLabelValues(string(acts[i].Type)).Inc()
		} else {
			in.metrics.ActsReplayed.Inc()
		}
	}

	in.metrics.DocumentDuration.Observe(time.Since(start).Seconds())
	return doc, len(acts), nil
}
