package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/coverage"
	"github.com/placewell/placewell/internal/feasibility"
	"github.com/placewell/placewell/internal/geodata"
	"github.com/placewell/placewell/internal/model"
	"github.com/placewell/placewell/internal/scorer"
	"github.com/placewell/placewell/internal/store"
	"github.com/placewell/placewell/pkg/geocode"
)

// appEnv holds the loaded datasets and analysis components shared by the
// score/feasibility/coverage/batch/serve commands.
type appEnv struct {
	Geo         *geodata.Store
	Scorer      *scorer.CompositeScorer
	Feasibility *feasibility.Estimator
	Coverage    *coverage.Analyzer
	Geocoder    geocode.Client
	History     store.Store // nil when persistence is disabled
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.History != nil {
		_ = e.History.Close()
	}
}

// initEnv loads the reference datasets and builds the analysis components.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if err := scorer.ValidateConfig(cfg.Scorer); err != nil {
		return nil, err
	}

	geo, err := geodata.Load(cfg.Data)
	if err != nil {
		return nil, err
	}

	if cfg.Data.BoundariesPath != "" {
		if err := geo.LoadBoundaries(cfg.Data.BoundariesPath); err != nil {
			return nil, err
		}
	}

	env := &appEnv{
		Geo:         geo,
		Scorer:      scorer.New(geo, cfg.Scorer),
		Feasibility: feasibility.New(nil, cfg.Feasibility),
		Coverage:    coverage.NewAnalyzer(geo, cfg.Coverage),
		Geocoder:    newGeocoder(cfg.Geocode),
	}

	if cfg.Store.Path != "" {
		hist, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := hist.Migrate(ctx); err != nil {
			_ = hist.Close()
			return nil, err
		}
		env.History = hist
	}

	zap.L().Info("environment ready",
		zap.Int("shelters", len(geo.Shelters())),
		zap.Int("tracts", len(geo.Tracts())),
		zap.Bool("history", env.History != nil),
	)
	return env, nil
}

func newGeocoder(gc config.GeocodeConfig) geocode.Client {
	opts := []geocode.Option{
		geocode.WithUserAgent(gc.UserAgent),
		geocode.WithRetries(gc.Retries),
		geocode.WithRateLimit(gc.RateLimitRPS),
	}
	if gc.TimeoutSecs > 0 {
		opts = append(opts, geocode.WithHTTPClient(&http.Client{
			Timeout: time.Duration(gc.TimeoutSecs) * time.Second,
		}))
	}
	if gc.CacheEnabled && gc.CachePath != "" {
		opts = append(opts, geocode.WithCache(gc.CachePath))
	}
	return geocode.NewClient(opts...)
}

// resolveSite turns --lat/--lon or --address flags into a coordinate. Exactly
// one form must be given; an address resolves through the geocoder.
func (e *appEnv) resolveSite(ctx context.Context, lat, lon float64, address string) (model.Coordinate, error) {
	hasCoords := lat != 0 || lon != 0
	if hasCoords && address != "" {
		return model.Coordinate{}, eris.New("provide either --lat/--lon or --address, not both")
	}
	if hasCoords {
		return model.Coordinate{Latitude: lat, Longitude: lon}, nil
	}
	if address == "" {
		return model.Coordinate{}, eris.New("provide --lat/--lon or --address")
	}

	result, err := e.Geocoder.Geocode(ctx, address)
	if err != nil {
		if eris.Is(err, geocode.ErrNoMatch) {
			return model.Coordinate{}, eris.Wrapf(err, "address %q could not be resolved", address)
		}
		return model.Coordinate{}, err
	}
	zap.L().Info("address resolved",
		zap.String("address", address),
		zap.Float64("lat", result.Latitude),
		zap.Float64("lon", result.Longitude),
		zap.String("source", result.Source),
	)
	return model.Coordinate{Latitude: result.Latitude, Longitude: result.Longitude}, nil
}

// saveEvaluation persists a result when history is enabled.
func (e *appEnv) saveEvaluation(ctx context.Context, kind model.EvaluationKind, address string, site model.Coordinate, result any) error {
	if e.History == nil {
		return eris.New("history store not configured, set PLACEWELL_STORE_PATH")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	return e.History.SaveEvaluation(ctx, &model.Evaluation{
		Kind:    kind,
		Address: address,
		Site:    site,
		Result:  string(payload),
	})
}
