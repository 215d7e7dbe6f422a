// Package cache is the local durability backstop for evaluation results.
//
// The whole ordered collection is stored as one JSON document under a fixed
// key of the metadata store. Every Save is a total overwrite. No method
// returns an error: failures are logged and Load degrades to an empty list.
package cache

import (
	"context"
	"encoding/json"

	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/client/repositories/metadata"
	"github.com/willnicht/willnicht/internal/common"
	"github.com/willnicht/willnicht/internal/logging"
)

type Cache struct {
	repo   metadata.Repository
	key    string
	logger logging.Logger
}

// New returns a cache storing its collection under common.ResultsStorageKey.
func New(repo metadata.Repository, logger logging.Logger) *Cache {
	return &Cache{
		repo:   repo,
		key:    common.ResultsStorageKey,
		logger: logger.With("module", "local_cache"),
	}
}

// Save replaces the stored collection with results.
func (c *Cache) Save(ctx context.Context, results []models.EvaluationResult) {
	if results == nil {
		results = []models.EvaluationResult{}
	}

	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn(ctx, "could not encode results", "count", len(results), "err", err)
		return
	}

	if err := c.repo.Set(ctx, c.key, data); err != nil {
		c.logger.Warn(ctx, "could not save results", "count", len(results), "err", err)
	}
}

// Load returns the stored collection, or an empty list if nothing usable is
// stored.
func (c *Cache) Load(ctx context.Context) []models.EvaluationResult {
	data, err := c.repo.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn(ctx, "could not load results", "err", err)
		return []models.EvaluationResult{}
	}
	if len(data) == 0 {
		return []models.EvaluationResult{}
	}

	var results []models.EvaluationResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Warn(ctx, "stored results are unreadable", "bytes", len(data), "err", err)
		return []models.EvaluationResult{}
	}
	if results == nil {
		return []models.EvaluationResult{}
	}
	return results
}

// Purge removes the stored collection.
func (c *Cache) Purge(ctx context.Context) {
	if err := c.repo.Delete(ctx, c.key); err != nil {
		c.logger.Warn(ctx, "could not purge results", "err", err)
	}
}
