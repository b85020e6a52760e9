package store

import (
	"bytes"
	"fmt"

	"go.etcd.io/bbolt"
)

var rootBucket = []byte("spinpet")

// BoltStore implements Store on top of go.etcd.io/bbolt: a single-file,
// embedded, ordered B+tree, the closest idiomatic-Go analogue to the
// RocksDB engine the original service used. All keys live in one bucket;
// the mt:/tr:/or:/us:/in:/kl: prefixes are literal key prefixes, not
// separate buckets, so a single cursor answers every prefix scan.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens (creating if absent) a bbolt database file at path.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(rootBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rootBucket).Put(key, value)
	})
}

func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rootBucket).Delete(key)
	})
}

func (s *BoltStore) Scan(prefix, fromKey []byte, limit int, dir Direction) ([]KV, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	var rows []KV
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(rootBucket).Cursor()

		if dir == Forward {
			start := prefix
			if fromKey != nil {
				start = fromKey
			}
			for k, v := c.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				rows = append(rows, KV{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
				if len(rows) >= limit {
					return nil
				}
			}
			return nil
		}

		// Reverse: seek to fromKey (or past the prefix's end) then walk back.
		// Both cases clamp the seek target to this prefix's own range so a
		// missing fromKey (or one past the end of the prefix) never falls
		// through to c.Last() and crawls the whole bucket looking for a
		// match: a candle bucket key that hasn't been written yet, for
		// example, would otherwise walk every key in the store.
		upperBound := prefixUpperBound(prefix)
		var k, v []byte
		if fromKey != nil {
			seekAt := fromKey
			if upperBound != nil && bytes.Compare(seekAt, upperBound) > 0 {
				seekAt = upperBound
			}
			k, v = c.Seek(seekAt)
			if k == nil {
				k, v = c.Last()
			} else if !bytes.Equal(k, seekAt) {
				// Seek landed on the first key >= seekAt; step back once to
				// reach the last key <= seekAt.
				k, v = c.Prev()
			}
		} else {
			k, v = c.Seek(upperBound)
			if k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		}
		for k != nil && !bytes.HasPrefix(k, prefix) {
			if bytes.Compare(k, prefix) < 0 {
				// Walked back past the start of this prefix's range: no
				// match, and the range below belongs to earlier prefixes.
				k, v = nil, nil
				break
			}
			k, v = c.Prev()
		}

		for k != nil && bytes.HasPrefix(k, prefix) {
			rows = append(rows, KV{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
			if len(rows) >= limit {
				return nil
			}
			k, v = c.Prev()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// prefixUpperBound returns the smallest key strictly greater than every key
// with the given prefix, used to seek to the end of a prefix range for
// reverse scans.
func prefixUpperBound(prefix []byte) []byte {
	up := append([]byte(nil), prefix...)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] < 0xff {
			up[i]++
			return up[:i+1]
		}
	}
	return nil // prefix is all 0xff bytes; nil seeks past the end
}

func (s *BoltStore) BatchApply(ops []Op) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rootBucket)
		for _, op := range ops {
			switch op.Kind {
			case OpPut:
				if err := b.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := b.Delete(op.Key); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: unknown op kind %d", ErrInvalidInput, op.Kind)
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
