package classes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/gymcomplete/internal/dates"
)

// Store persists the class collection as a whole: SaveAll rewrites every
// class key, LoadAll reads them all back. There are no incremental writes,
// matching the registry's dirty-flag discipline.
type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

// storedClass is the persisted wire format. Enrolled members and waitlist
// contents are deliberately absent: the historical format never carried them,
// so they do not survive a reload. Known limitation, kept for compatibility
// with existing data.
type storedClass struct {
	ID            int          `json:"id"`
	ClassName     string       `json:"className"`
	CoachName     string       `json:"coachName"`
	From          dates.Date   `json:"from"`
	To            dates.Date   `json:"to"`
	Capacity      int          `json:"capacity"`
	NumOfEnrolled int          `json:"numOfEnrolled"`
	Sessions      []dates.Date `json:"sessions"`
}

func encodeClass(class *Class) storedClass {
	return storedClass{
		ID:            class.ID,
		ClassName:     class.Name,
		CoachName:     class.CoachName,
		From:          class.FromDate,
		To:            class.ToDate,
		Capacity:      class.Capacity,
		NumOfEnrolled: class.EnrolledCount(),
		Sessions:      class.Sessions(),
	}
}

func (s storedClass) decode() *Class {
	class := New(s.ClassName, s.CoachName, s.From, s.To, s.Capacity)
	class.ID = s.ID
	for _, date := range s.Sessions {
		class.AddSession(date)
	}
	class.SetEnrolledCount(s.NumOfEnrolled)
	return class
}

// SaveAll replaces the persisted collection with the given snapshot. Callers
// encode while holding the registry lock; the store only sees plain values.
func (s *Store) SaveAll(_ context.Context, classes []storedClass) error {
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte("classes/")})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, class := range classes {
			data, err := json.Marshal(class)
			if err != nil {
				return err
			}
			if err := txn.Set(idKey(class.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll reads the whole persisted collection.
func (s *Store) LoadAll(_ context.Context) ([]*Class, error) {
	var classes []*Class
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("classes/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				var stored storedClass
				if err := json.Unmarshal(value, &stored); err != nil {
					return err
				}
				classes = append(classes, stored.decode())
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return classes, nil
}

func idKey(id int) []byte {
	return []byte(fmt.Sprintf("classes/%d", id))
}
