package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/registralia/borme-cli/internal/docstore"
	"github.com/registralia/borme-cli/internal/fetcher"
	"github.com/registralia/borme-cli/internal/index"
	"github.com/registralia/borme-cli/internal/ingest"
	"github.com/registralia/borme-cli/internal/metrics"
	"github.com/registralia/borme-cli/internal/pdftext"
	"github.com/registralia/borme-cli/internal/resilience"
	"github.com/registralia/borme-cli/internal/resolve"
	"github.com/registralia/borme-cli/internal/store"
)

// env bundles the wired pipeline components for a command invocation.
type env struct {
	store    store.Store
	metrics  *metrics.Metrics
	searcher *index.Searcher
	ingester *ingest.Ingester
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "borme.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv wires the full pipeline and migrates the schema.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		BaseURL:    cfg.Fetch.BaseURL,
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RateLimiters: map[string]*rate.Limiter{
			"www.boe.es": rate.NewLimiter(rate.Limit(cfg.Fetch.RateLimit), cfg.Fetch.RateBurst),
			"boe.es":     rate.NewLimiter(rate.Limit(cfg.Fetch.RateLimit), cfg.Fetch.RateBurst),
		},
	})

	m := metrics.New()
	resolver, err := resolve.New(st, cfg.Resolver.CacheSize)
	if err != nil {
		st.Close()
		return nil, err
	}
	resolver.WithMetrics(m)
	ingester := ingest.New(
		st, f,
		docstore.New(cfg.Cache.Dir, f),
		pdftext.NewCLI(cfg.Extract.PdfToTextPath),
		resolver, m,
		ingest.Options{
			Workers:          cfg.Ingest.Workers,
			FailureThreshold: cfg.Ingest.FailureThreshold,
			Retry: resilience.FromRetryConfig(
				cfg.Ingest.RetryAttempts, cfg.Ingest.RetryBackoffMs, 0, 0, -1),
		},
	)

	return &env{
		store:    st,
		metrics:  m,
		searcher: index.New(st),
		ingester: ingester,
	}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
}
