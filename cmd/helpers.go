package main

import (
	"context"

	"github.com/whovoted/rollmap/internal/dataset"
	"github.com/whovoted/rollmap/internal/geocode"
	"github.com/whovoted/rollmap/internal/pipeline"
	"github.com/whovoted/rollmap/internal/store"
)

// buildEnv assembles the shared job environment: artifact directory,
// dataset index, and the geocoding orchestrator.
func buildEnv() (*pipeline.Env, error) {
	dir, err := dataset.NewDir(cfg.Data.Dir)
	if err != nil {
		return nil, err
	}
	idx, err := dataset.NewIndex(dir)
	if err != nil {
		return nil, err
	}
	orch, err := geocode.NewFromConfig(cfg.Geocode, cfg.Data.CacheFile)
	if err != nil {
		return nil, err
	}
	return &pipeline.Env{
		Dir:          dir,
		Idx:          idx,
		Orch:         orch,
		Workers:      cfg.Geocode.WorkersPerJob,
		DefaultCity:  cfg.Geocode.DefaultCity,
		DefaultState: cfg.Geocode.DefaultState,
		KnownCities:  cfg.Geocode.KnownCities,
		PublicDir:    cfg.Data.PublicDir,
	}, nil
}

// buildIndex opens the artifact directory and index without the geocoder,
// for commands that only read or rewrite existing datasets.
func buildIndex() (*dataset.Dir, *dataset.Index, error) {
	dir, err := dataset.NewDir(cfg.Data.Dir)
	if err != nil {
		return nil, nil, err
	}
	idx, err := dataset.NewIndex(dir)
	if err != nil {
		return nil, nil, err
	}
	return dir, idx, nil
}

// initStore opens the configured job-history store and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
