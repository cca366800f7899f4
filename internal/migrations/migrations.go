package migrations

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

func Run(db *badger.DB) error {
	if err := renameClassKeyPrefix(db); err != nil {
		return fmt.Errorf("rename class key prefix: %w", err)
	}
	return nil
}

// renameClassKeyPrefix moves classes written under the legacy singular
// "class/" prefix to "classes/".
func renameClassKeyPrefix(db *badger.DB) error {
	return db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("class/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			oldKey := it.Item().KeyCopy(nil)
			newKey := append([]byte("classes/"), bytes.TrimPrefix(oldKey, prefix)...)
			if err := it.Item().Value(func(value []byte) error {
				return txn.Set(newKey, value)
			}); err != nil {
				return fmt.Errorf("set new key: %w", err)
			}
			if err := txn.Delete(oldKey); err != nil {
				return fmt.Errorf("delete old key: %w", err)
			}
			slog.Info(
				"class migrated",
				"old_key", string(oldKey),
				"new_key", string(newKey))
		}
		return nil
	})
}
