package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Store keeps the report history. It is append-only: one entry per save, no
// month deduplication.
type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) Insert(_ context.Context, report *Report) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(report)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("reports/%s/%s", report.Month, gonanoid.Must())
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) ListReports(_ context.Context) ([]*Report, error) {
	var reports []*Report
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("reports/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				report := &Report{}
				if err := json.Unmarshal(value, report); err != nil {
					return err
				}
				reports = append(reports, report)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return reports, nil
}
