package storage

import (
	"errors"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/itqwq/stockviz/model"
)

// SQL stores reports through gorm.
type SQL struct {
	db *gorm.DB
}

// FromSQL opens dialect and migrates the report table.
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (Storage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(&model.StoredReport{})
	if err != nil {
		return nil, err
	}

	return &SQL{
		db: db,
	}, nil
}

// SaveReport inserts the report or replaces the one stored under the same key.
func (s *SQL) SaveReport(report *model.StoredReport) error {
	result := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(report)
	return result.Error
}

// Report returns the report stored under key, or ErrNotFound.
func (s *SQL) Report(key string) (*model.StoredReport, error) {
	var report model.StoredReport
	result := s.db.Where(&model.StoredReport{Key: key}).First(&report)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &report, nil
}

// Reports returns the stored reports matching every filter.
func (s *SQL) Reports(filters ...ReportFilter) ([]*model.StoredReport, error) {
	reports := make([]*model.StoredReport, 0)
	result := s.db.Order("created_at").Find(&reports)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	return lo.Filter(reports, func(report *model.StoredReport, _ int) bool {
		return match(*report, filters)
	}), nil
}

// DeleteReport removes the report stored under key.
func (s *SQL) DeleteReport(key string) error {
	result := s.db.Delete(&model.StoredReport{Key: key})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
