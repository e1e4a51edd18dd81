package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nitrate-atlas/internal/config"
	"github.com/sells-group/nitrate-atlas/internal/pipeline"
	"github.com/sells-group/nitrate-atlas/internal/surface"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and map front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		_, runner, err := loadRunner()
		if err != nil {
			return err
		}

		router := buildRouter(runner, cfg.Grid, cfg.Output.Dir, cfg.Server.StaticDir)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// paramKey identifies one evaluation for caching. Artifact writing is not
// part of the key: API runs always produce artifacts.
type paramKey struct {
	K         float64
	Neighbors int
	CellSize  float64
}

// resultCache memoizes completed evaluations for the lifetime of the
// process. Identical parameters over unchanged inputs always produce
// identical results, so a hit can skip the whole pipeline.
type resultCache struct {
	mu      sync.Mutex
	results map[paramKey]*pipeline.Result
}

func newResultCache() *resultCache {
	return &resultCache{results: make(map[paramKey]*pipeline.Result)}
}

func (c *resultCache) get(k paramKey) (*pipeline.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results[k]
	return res, ok
}

func (c *resultCache) put(k paramKey, res *pipeline.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[k] = res
}

// buildRouter wires the API, the generated-artifact file server, and the
// static front end. Defaults fill any parameter a request leaves at zero.
func buildRouter(runner *pipeline.Runner, defaults config.GridConfig, outDir, staticDir string) http.Handler {
	cache := newResultCache()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/run", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			K         float64 `json:"k"`
			Neighbors int     `json:"neighbors"`
			CellSize  float64 `json:"cell_size"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		p := pipeline.Params{K: body.K, Neighbors: body.Neighbors, CellSize: body.CellSize, WriteArtifacts: true}
		fillGridDefaults(&p, defaults)

		key := paramKey{K: p.K, Neighbors: p.Neighbors, CellSize: p.CellSize}
		if res, ok := cache.get(key); ok {
			zap.L().Debug("serve: cache hit", zap.Float64("k", p.K))
			writeJSON(w, http.StatusOK, res)
			return
		}

		res, err := runner.Run(req.Context(), p)
		if err != nil {
			writeRunError(w, err)
			return
		}
		cache.put(key, res)
		writeJSON(w, http.StatusOK, res)
	})

	r.Post("/api/sensitivity", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Ks          []float64 `json:"ks"`
			Neighbors   int       `json:"neighbors"`
			CellSize    float64   `json:"cell_size"`
			Concurrency int       `json:"concurrency"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if len(body.Ks) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ks is required"})
			return
		}

		p := pipeline.Params{Neighbors: body.Neighbors, CellSize: body.CellSize}
		fillGridDefaults(&p, defaults)
		concurrency := body.Concurrency
		if concurrency == 0 {
			concurrency = 4
		}

		results, err := runner.Sweep(req.Context(), body.Ks, p.Neighbors, p.CellSize, concurrency, true)
		if err != nil {
			writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	})

	// Generated artifacts change between runs under the same name, so they
	// must never be cached.
	r.Route("/outputs", func(r chi.Router) {
		r.Use(noStore)
		r.Handle("/*", http.StripPrefix("/outputs", http.FileServer(http.Dir(outDir))))
	})

	r.Handle("/*", http.FileServer(http.Dir(staticDir)))

	return r
}

func fillGridDefaults(p *pipeline.Params, defaults config.GridConfig) {
	if p.K == 0 {
		p.K = defaults.K
	}
	if p.Neighbors == 0 {
		p.Neighbors = defaults.Neighbors
	}
	if p.CellSize == 0 {
		p.CellSize = defaults.CellSize
	}
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRunError(w http.ResponseWriter, err error) {
	if eris.Is(err, surface.ErrInvalidParameter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	zap.L().Error("serve: evaluation failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "evaluation failed"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
