package members

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/gymcomplete/internal/keys"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db            *badger.DB
	encryptionKey *keys.Key
}

func NewStore(
	db *badger.DB,
	encryptionKey *keys.Key,
) *Store {
	return &Store{
		db:            db,
		encryptionKey: encryptionKey,
	}
}

func (s *Store) Insert(_ context.Context, member *Member) error {
	encoded, err := member.Encode(s.encryptionKey)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(encoded)
		if err != nil {
			return err
		}
		return txn.Set(idKey(encoded.ID), data)
	})
}

func (s *Store) FindByID(_ context.Context, id int) (*Member, error) {
	var encoded EncodedMember
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &encoded)
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return encoded.Decode(s.encryptionKey)
}

func (s *Store) ListMembers(_ context.Context) ([]*Member, error) {
	var members []*Member
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("members/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				var encoded EncodedMember
				if err := json.Unmarshal(value, &encoded); err != nil {
					return err
				}
				member, err := encoded.Decode(s.encryptionKey)
				if err != nil {
					return err
				}
				members = append(members, member)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) DeleteMember(_ context.Context, id int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(idKey(id))
	})
}

func idKey(id int) []byte {
	return []byte(fmt.Sprintf("members/%d", id))
}
