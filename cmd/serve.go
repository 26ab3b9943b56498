package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/model"
	"github.com/placewell/placewell/pkg/geocode"
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

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", env.handleScore)
		r.Post("/feasibility", env.handleFeasibility)
		r.Post("/coverage", env.handleCoverage)
	})

	return r
}

// siteRequest is the common request body: a coordinate or an address.
type siteRequest struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Address   string  `json:"address"`
}

func (e *appEnv) decodeSite(w http.ResponseWriter, r *http.Request, req *siteRequest) (model.Coordinate, bool) {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return model.Coordinate{}, false
	}

	site, err := e.resolveSite(r.Context(), req.Latitude, req.Longitude, req.Address)
	if err != nil {
		if eris.Is(err, geocode.ErrNoMatch) {
			writeJSONError(w, http.StatusUnprocessableEntity, "address could not be resolved")
		} else {
			writeJSONError(w, http.StatusBadRequest, err.Error())
		}
		return model.Coordinate{}, false
	}
	return site, true
}

func (e *appEnv) handleScore(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	site, ok := e.decodeSite(w, r, &req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Scorer.Score(site))
}

func (e *appEnv) handleFeasibility(w http.ResponseWriter, r *http.Request) {
	var req siteRequest
	site, ok := e.decodeSite(w, r, &req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.estimateFeasibility(site))
}

func (e *appEnv) handleCoverage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		siteRequest
		RadiusMiles float64 `json:"radius_miles"`
		Delta       bool    `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	site, err := e.resolveSite(r.Context(), req.Latitude, req.Longitude, req.Address)
	if err != nil {
		if eris.Is(err, geocode.ErrNoMatch) {
			writeJSONError(w, http.StatusUnprocessableEntity, "address could not be resolved")
		} else {
			writeJSONError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	var result model.CoverageResult
	if req.Delta {
		existing := make([]model.Coordinate, 0, len(e.Geo.Shelters()))
		for _, s := range e.Geo.Shelters() {
			existing = append(existing, s.Location)
		}
		result = e.Coverage.AggregateDelta(existing, site)
	} else {
		result = e.Coverage.CoverageFor(site, req.RadiusMiles)
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
