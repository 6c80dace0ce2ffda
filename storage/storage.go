package storage

import (
	"errors"
	"time"

	"github.com/itqwq/stockviz/model"
)

// ErrNotFound is returned when no report is stored under a key.
var ErrNotFound = errors.New("report not found")

// ReportFilter selects stored reports.
type ReportFilter func(model.StoredReport) bool

// Storage caches calculation reports by request key.
type Storage interface {
	SaveReport(report *model.StoredReport) error
	Report(key string) (*model.StoredReport, error)
	Reports(filters ...ReportFilter) ([]*model.StoredReport, error)
	DeleteReport(key string) error
	Close() error
}

// WithTicker keeps the reports of ticker.
func WithTicker(ticker string) ReportFilter {
	return func(report model.StoredReport) bool {
		return report.Ticker == ticker
	}
}

// WithCreatedAfter keeps the reports created after t.
func WithCreatedAfter(t time.Time) ReportFilter {
	return func(report model.StoredReport) bool {
		return report.CreatedAt.After(t)
	}
}

func match(report model.StoredReport, filters []ReportFilter) bool {
	for _, filter := range filters {
		if !filter(report) {
			return false
		}
	}
	return true
}
