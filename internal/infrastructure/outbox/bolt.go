package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists deliveries whose target was unreachable so they survive restarts.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open creates the bolt file and the outbox bucket.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "outbox"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: []byte(bucket)}, nil
}

// Put stores d under a key ordered by target priority, then age.
func (s *Store) Put(d Delivery) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	d.normalize()
	d.key = deliveryKey(d)

	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(d.key, payload)
	})
}

// Peek returns up to limit deliveries in key order without removing them.
func (s *Store) Peek(limit int) ([]Delivery, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	var out []Delivery
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(out) < limit; k, v = c.Next() {
			var d Delivery
			if err := json.Unmarshal(v, &d); err != nil {
				continue
			}
			d.key = append([]byte(nil), k...)
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

// Ack removes a delivered (or abandoned) delivery.
func (s *Store) Ack(d Delivery) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	key := d.key
	if len(key) == 0 {
		key = deliveryKey(d)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(key)
	})
}

// Retry records one more attempt. The delivery keeps its place so later
// deliveries for the same aggregate stay behind it.
func (s *Store) Retry(d Delivery) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(d.key) == 0 {
		d.key = deliveryKey(d)
	}
	d.Attempts++

	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(d.key, payload)
	})
}

// HasPending reports whether a delivery for aggregate is still queued for target.
func (s *Store) HasPending(target Target, aggregate string) (bool, error) {
	if s == nil || s.db == nil {
		return false, bolt.ErrDatabaseNotOpen
	}
	prefix := []byte(fmt.Sprintf("%d_", target.priority()))
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var d Delivery
			if err := json.Unmarshal(v, &d); err != nil {
				continue
			}
			if d.Target == target && d.Aggregate == aggregate {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// Len returns the number of pending deliveries.
func (s *Store) Len() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Purge drops deliveries queued before cutoff and reports how many went.
func (s *Store) Purge(cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var purged int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var stale [][]byte
		// deleting under a live cursor skips the next key
		err := b.ForEach(func(k, v []byte) error {
			var d Delivery
			if err := json.Unmarshal(v, &d); err != nil {
				return nil
			}
			if d.QueuedAt.Before(cutoff) {
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
		purged = len(stale)
		return nil
	})
	return purged, err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func deliveryKey(d Delivery) []byte {
	return []byte(fmt.Sprintf("%d_%020d_%s", d.Target.priority(), d.QueuedAt.UnixNano(), d.ID))
}
