package attendance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

// Insert appends a record under a fresh opaque key. Keys carry the record's
// date first so iteration returns the ledger in date order.
func (s *Store) Insert(_ context.Context, record Record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("attendance/%s/%s", record.Date, gonanoid.Must())
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) ListRecords(_ context.Context) ([]Record, error) {
	var records []Record
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("attendance/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				var record Record
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}
