package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/pkg/buildinfo"
	"github.com/brieflyhq/briefly/pkg/db"
	"github.com/brieflyhq/briefly/pkg/digest/audit"
	"github.com/brieflyhq/briefly/pkg/digest/decay"
	"github.com/brieflyhq/briefly/pkg/digest/dedup"
	"github.com/brieflyhq/briefly/pkg/digest/enrich"
	"github.com/brieflyhq/briefly/pkg/digest/observability"
	"github.com/brieflyhq/briefly/pkg/digest/pipeline"
	"github.com/brieflyhq/briefly/pkg/digest/queues"
	"github.com/brieflyhq/briefly/pkg/digest/workers"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the digest worker pool",
		Long: `Worker drains entity batches from the Redis queue through the digest
pipeline until interrupted. Prometheus metrics and build info are served
on the configured metrics address.`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			logger := deps.NewLogger(cfg)

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()

			queue := queues.NewRedisQueue(rdb, cfg.Redis.Queue, queues.DefaultRetryPolicy())
			metrics := observability.DefaultMetrics()

			resolver := decay.NewResolver(decayPolicy(cfg))
			enricher := enrich.NewEnricher(resolver,
				enrich.WithLogger(logger),
				enrich.WithMetrics(metrics))
			deduper := dedup.NewDeduplicator(
				dedup.WithLogger(logger),
				dedup.WithMetrics(metrics))

			pipeOpts := []pipeline.Option{
				pipeline.WithLogger(logger),
				pipeline.WithMetrics(metrics),
			}
			var dbPool *pgxpool.Pool
			if cfg.Postgres.DSN != "" {
				dbPool, err = db.ConnectWithRetry(c.Context(), db.DefaultConfig(cfg.Postgres.DSN), 5, 2*time.Second)
				if err != nil {
					return err
				}
				defer db.Close(dbPool)
				if err := db.EnsureSchema(c.Context(), dbPool, audit.Schema); err != nil {
					return err
				}
				pipeOpts = append(pipeOpts, pipeline.WithAudit(audit.NewPostgresRepository(dbPool)))
			}
			pipe := pipeline.New(enricher, deduper, pipeOpts...)

			pool := workers.NewPool(workers.Config{
				Count:           cfg.Worker.Count,
				PollInterval:    cfg.Worker.PollInterval,
				ShutdownTimeout: cfg.Worker.ShutdownTimeout,
			}, queue, pipe, logger)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.Handle("/buildinfo", buildinfo.Handler("briefly-worker"))
			mux.Handle("/health", healthHandler(dbPool, queue))
			srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Metrics server failed", logging.Err(err))
				}
			}()

			pool.Start()
			logger.Info("Worker running",
				logging.F("queue", cfg.Redis.Queue),
				logging.F("workers", cfg.Worker.Count),
				logging.F("metrics_addr", cfg.Metrics.Addr))

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			logger.Info("Shutting down")
			pool.Stop()
			return srv.Shutdown(context.Background())
		},
	}
}

// healthHandler reports queue and audit store health as JSON. The
// database section is omitted when no Postgres DSN is configured.
func healthHandler(pool *pgxpool.Pool, queue queues.Queue) http.Handler {
	type queueHealth struct {
		Name  string `json:"name"`
		Depth int64  `json:"depth"`
		Error string `json:"error,omitempty"`
	}
	type dbHealth struct {
		Healthy   bool    `json:"healthy"`
		LatencyMS float64 `json:"latency_ms"`
		Conns     int32   `json:"conns"`
		Error     string  `json:"error,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			Status   string      `json:"status"`
			Queue    queueHealth `json:"queue"`
			Database *dbHealth   `json:"database,omitempty"`
		}{
			Status: "ok",
			Queue:  queueHealth{Name: queue.Name()},
		}
		code := http.StatusOK

		depth, err := queue.Depth(r.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.Queue.Error = err.Error()
			code = http.StatusServiceUnavailable
		}
		resp.Queue.Depth = depth

		if pool != nil {
			status := db.Check(r.Context(), pool)
			d := &dbHealth{
				Healthy:   status.Healthy,
				LatencyMS: float64(status.Latency.Microseconds()) / 1000,
				Conns:     status.TotalConns,
			}
			if status.Error != nil {
				d.Error = status.Error.Error()
			}
			if !status.Healthy {
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
			resp.Database = d
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
}
