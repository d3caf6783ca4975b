package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dtk-group/quote-engine/internal/alias"
	"github.com/dtk-group/quote-engine/internal/catalog"
	"github.com/dtk-group/quote-engine/internal/model"
	"github.com/dtk-group/quote-engine/internal/resolve"
)

const shutdownTimeout = 15 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resolution API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		r := newRouter(store, initLookup(), cfg.Match.SimilarityThreshold, cfg.Batch.MaxConcurrentRows)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			if err := drainAndClose(srv); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drainAndClose shuts the server down with a fresh timeout context: the
// trigger context is already canceled by the time shutdown starts, and
// passing it along would abort the drain of in-flight requests.
func drainAndClose(srv shutdowner) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func newRouter(store catalog.Store, lookup alias.VendorLookup, threshold float64, maxConcurrent int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Post("/api/resolve", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Rows []model.PartQuery `json:"rows"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if len(body.Rows) == 0 {
			http.Error(w, `{"error":"rows is required"}`, http.StatusBadRequest)
			return
		}

		// One orchestrator per request: a batch boundary is also a
		// memoization boundary.
		orch := resolve.New(store, lookup, threshold)
		results := orch.ResolveBatch(req.Context(), body.Rows, maxConcurrent)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
