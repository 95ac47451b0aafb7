package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/monitoring"
	"github.com/registralia/borme-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Background run-health checks alert via webhook when configured.
		checker := monitoring.NewChecker(
			monitoring.NewCollector(env.store),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		go checker.Run(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           apiRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

// apiRouter builds the HTTP API. Split out so handler tests can exercise it
// without binding a port.
func apiRouter(env *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method("GET", "/metrics", env.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", handleIngest(env))
		r.Get("/runs", handleListRuns(env))
		r.Get("/runs/{id}", handleGetRun(env))
		r.Get("/companies", handleListCompanies(env))
		r.Get("/companies/{id}", handleGetCompany(env))
		r.Get("/stats", handleStats(env))
	})
	return r
}

func handleIngest(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		to := from
		if req.To != "" {
			if to, err = time.Parse("2006-01-02", req.To); err != nil {
				writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
				return
			}
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, "to is before from")
			return
		}

		run, err := env.ingester.Prepare(r.Context(), from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// The run outlives the request; progress is visible via /api/runs.
		go func() {
			if err := env.ingester.Execute(context.Background(), run); err != nil {
				zap.L().Error("api-triggered run failed",
					zap.String("run_id", run.ID), zap.Error(err))
				return
			}
			zap.L().Info("api-triggered run finished",
				zap.String("run_id", run.ID),
				zap.String("status", string(run.Status)))
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": run.ID,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
		})
	}
}

func handleListRuns(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := env.store.ListRuns(r.Context(), store.RunFilter{
			Status: model.RunStatus(r.URL.Query().Get("status")),
			Limit:  queryInt(r, "limit", 20),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "id")
		run, err := env.store.GetRun(r.Context(), runID)
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		entries, err := env.store.ListDocEntries(r.Context(), runID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		anomalies, err := env.store.ListAnomalies(r.Context(), runID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"run":       run,
			"documents": entries,
			"anomalies": anomalies,
		})
	}
}

func handleListCompanies(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := queryInt(r, "limit", 25)

		var (
			companies []model.Company
			err       error
		)
		if query := q.Get("q"); query != "" {
			companies, err = env.searcher.Search(r.Context(), query, limit)
		} else {
			companies, err = env.store.ListCompanies(r.Context(), store.CompanyFilter{
				Province:  q.Get("province"),
				Status:    model.CompanyStatus(q.Get("status")),
				LegalForm: q.Get("legal_form"),
				Limit:     limit,
				Offset:    queryInt(r, "offset", 0),
			})
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, companies)
	}
}

func handleGetCompany(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid company id")
			return
		}
		c, err := env.store.GetCompany(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		acts, err := env.store.ListActs(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		officers, err := env.store.ListOfficers(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"company":  c,
			"acts":     acts,
			"officers": officers,
		})
	}
}

func handleStats(env *env) http.HandlerFunc {
	collector := monitoring.NewCollector(env.store)
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := collector.Collect(r.Context(), queryInt(r, "hours", 24))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
