package storage

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/buntdb"

	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/tools/log"
)

const reportPrefix = "report:"

// Bunt stores reports in a BuntDB database.
type Bunt struct {
	db *buntdb.DB
}

// FromMemory returns a storage that lives as long as the process.
func FromMemory() (Storage, error) {
	return newBunt(":memory:")
}

// FromFile returns a storage persisted in file.
func FromFile(file string) (Storage, error) {
	return newBunt(file)
}

func newBunt(sourceFile string) (Storage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, err
	}

	err = db.CreateIndex("created_index", reportPrefix+"*", buntdb.IndexJSON("created_at"))
	if err != nil {
		return nil, err
	}
	return &Bunt{
		db: db,
	}, nil
}

// SaveReport inserts or replaces the report under its key.
func (b *Bunt) SaveReport(report *model.StoredReport) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(report)
		if err != nil {
			return err
		}

		_, _, err = tx.Set(reportPrefix+report.Key, string(content), nil)
		return err
	})
}

// Report returns the report stored under key, or ErrNotFound.
func (b *Bunt) Report(key string) (*model.StoredReport, error) {
	var report model.StoredReport
	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(reportPrefix + key)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &report)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Reports returns the stored reports matching every filter, oldest first.
func (b *Bunt) Reports(filters ...ReportFilter) ([]*model.StoredReport, error) {
	reports := make([]*model.StoredReport, 0)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("created_index", func(key, value string) bool {
			var report model.StoredReport
			if err := json.Unmarshal([]byte(value), &report); err != nil {
				log.WithField("key", key).WithError(err).Warn("storage: invalid report")
				return true
			}
			if match(report, filters) {
				reports = append(reports, &report)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// DeleteReport removes the report stored under key.
func (b *Bunt) DeleteReport(key string) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(reportPrefix + key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Close closes the database.
func (b *Bunt) Close() error {
	return b.db.Close()
}
