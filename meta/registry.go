package meta

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var serversBucket = []byte("servers")

// storedEntry is ServerEntry plus the bookkeeping the registry needs but
// never sends over the wire.
type storedEntry struct {
	ServerEntry
	LastSeen time.Time
}

// Store persists the meta server's known game servers to a bbolt
// database, so a restarted meta server keeps its last-known registry
// instead of starting empty.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (creating if necessary) the bbolt database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("meta: open store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(serversBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("meta: init store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Upsert records or refreshes the entry for key (typically the sending
// endpoint's string form), stamping LastSeen as now.
func (s *Store) Upsert(key string, entry ServerEntry, now time.Time) error {
	rec := storedEntry{ServerEntry: entry, LastSeen: now}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("meta: marshal entry: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(serversBucket).Put([]byte(key), data)
	})
}

// Remove drops the entry for key, e.g. on graceful server shutdown.
func (s *Store) Remove(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(serversBucket).Delete([]byte(key))
	})
}

// List returns every entry whose LastSeen is within maxAge of now.
func (s *Store) List(now time.Time, maxAge time.Duration) ([]ServerEntry, error) {
	var out []ServerEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(serversBucket).ForEach(func(_, v []byte) error {
			var rec storedEntry
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if now.Sub(rec.LastSeen) <= maxAge {
				out = append(out, rec.ServerEntry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("meta: list entries: %w", err)
	}
	return out, nil
}

// Prune deletes every entry older than maxAge, the store-side half of
// heartbeat-timeout eviction.
func (s *Store) Prune(now time.Time, maxAge time.Duration) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(serversBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec storedEntry
			if err := json.Unmarshal(v, &rec); err != nil {
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if now.Sub(rec.LastSeen) > maxAge {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
