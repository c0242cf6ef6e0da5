package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/composite"
	"github.com/terralens/landsat-dash/internal/region"
	"github.com/terralens/landsat-dash/internal/store"
	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// serviceEnv holds the initialized store, engine client, and composite
// service shared by the serve/compose/stats/export/warm commands.
type serviceEnv struct {
	Store   store.Store
	Engine  earthengine.Client
	Service *composite.Service
}

// Close releases resources held by the service environment.
func (se *serviceEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// initService validates config, opens the store, authenticates against the
// compute engine, resolves the region, and assembles the composite service.
// Callers should defer env.Close().
func initService(ctx context.Context, mode string) (*serviceEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	engine, err := initEngine()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	reg, err := region.Load(cfg.Region)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	builder := composite.NewBuilder(engine, reg, cfg.Composite)
	svc := composite.NewService(builder, st, cfg.Render, time.Duration(cfg.Cache.TTLHours)*time.Hour)

	zap.L().Info("service ready",
		zap.String("project", engine.Project()),
		zap.String("region", reg.Name()),
		zap.String("collection", cfg.Composite.Collection),
		zap.Int("years", len(svc.Years())),
	)

	return &serviceEnv{Store: st, Engine: engine, Service: svc}, nil
}

// initEngine authenticates against the compute engine with the configured
// service-account key. Missing or malformed credentials fail here, before any
// command work starts.
func initEngine() (earthengine.Client, error) {
	keyJSON := []byte(cfg.EE.ServiceAccount)
	if len(keyJSON) == 0 && cfg.EE.ServiceAccountFile != "" {
		var err error
		keyJSON, err = os.ReadFile(cfg.EE.ServiceAccountFile)
		if err != nil {
			return nil, eris.Wrapf(err, "read engine key file %s", cfg.EE.ServiceAccountFile)
		}
	}

	creds, err := earthengine.CredentialsFromJSON(keyJSON)
	if err != nil {
		return nil, eris.Wrap(err, "engine credentials (LANDSAT_EE_SERVICE_ACCOUNT)")
	}

	opts := []earthengine.Option{
		earthengine.WithRateLimit(cfg.EE.RequestsPerSec),
	}
	if cfg.EE.BaseURL != "" {
		opts = append(opts, earthengine.WithBaseURL(cfg.EE.BaseURL))
	}
	if cfg.EE.Project != "" {
		opts = append(opts, earthengine.WithProject(cfg.EE.Project))
	}

	engine, err := earthengine.NewClient(creds, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "init engine client")
	}
	return engine, nil
}

// yearSpan resolves a from/to flag pair against the configured year range.
// Zero flags fall back to the config bounds.
func yearSpan(from, to int) (int, int, error) {
	if from == 0 {
		from = cfg.Composite.MinYear
	}
	if to == 0 {
		to = cfg.Composite.MaxYear
	}
	if from > to {
		return 0, 0, eris.Errorf("invalid year range %d..%d", from, to)
	}
	if from < cfg.Composite.MinYear || to > cfg.Composite.MaxYear {
		return 0, 0, eris.Errorf("year range %d..%d outside configured %d..%d",
			from, to, cfg.Composite.MinYear, cfg.Composite.MaxYear)
	}
	return from, to, nil
}
