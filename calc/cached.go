package calc

import (
	"context"
	"errors"
	"time"

	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/service"
	"github.com/itqwq/stockviz/storage"
	"github.com/itqwq/stockviz/tools/log"
)

// Cached stores the reports of a calculator by request. Cache failures never fail a request.
type Cached struct {
	calculator service.Calculator
	storage    storage.Storage
	maxAge     time.Duration
}

// CachedOption customizes a Cached calculator.
type CachedOption func(*Cached)

// WithMaxAge expires cached reports older than age. Zero keeps them forever.
func WithMaxAge(age time.Duration) CachedOption {
	return func(c *Cached) {
		c.maxAge = age
	}
}

// NewCached serves reports from storage and asks calculator only on a miss.
func NewCached(calculator service.Calculator, storage storage.Storage, options ...CachedOption) *Cached {
	cached := &Cached{
		calculator: calculator,
		storage:    storage,
	}
	for _, option := range options {
		option(cached)
	}
	return cached
}

func (c *Cached) lookup(key string) (model.Report, bool) {
	stored, err := c.storage.Report(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.WithField("key", key).WithError(err).Warn("calc: cache read failed")
		}
		return model.Report{}, false
	}
	if c.maxAge > 0 && time.Since(stored.CreatedAt) > c.maxAge {
		return model.Report{}, false
	}

	report, err := stored.Report()
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("calc: invalid cached report")
		return model.Report{}, false
	}
	return report, true
}

// Calculate returns the stored report of request, computing and storing it when missing or expired.
func (c *Cached) Calculate(ctx context.Context, request model.Request) (model.Report, error) {
	if report, ok := c.lookup(request.Key()); ok {
		return report, nil
	}

	report, err := c.calculator.Calculate(ctx, request)
	if err != nil {
		return model.Report{}, err
	}

	stored, err := model.NewStoredReport(request, report)
	if err == nil {
		err = c.storage.SaveReport(stored)
	}
	if err != nil {
		log.WithField("key", request.Key()).WithError(err).Warn("calc: cache write failed")
	}

	return report, nil
}
