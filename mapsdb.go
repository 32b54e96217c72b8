package gitview

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"go.etcd.io/bbolt"
)

var ErrNilDB = errors.New("nil db")

// Bucket name prefixes for the two cache directions. The filter identity is
// appended so caches of different filters never collide.
const (
	forwardBucketPrefix  = "forward\x00"
	backwardBucketPrefix = "backward\x00"
)

func forwardBucket(filter Filter) []byte {
	return []byte(forwardBucketPrefix + filter.Spec())
}

func backwardBucket(filter Filter) []byte {
	return []byte(backwardBucketPrefix + filter.Spec())
}

// LoadViewMaps reads the persisted cache entries for filter from db into
// maps. A database that has never seen this filter loads nothing.
func LoadViewMaps(db *bbolt.DB, filter Filter, maps *ViewMaps) error {
	if db == nil {
		return ErrNilDB
	}

	return db.View(func(tx *bbolt.Tx) error {
		load := func(bucket []byte, record func(k, v plumbing.Hash)) error {
			b := tx.Bucket(bucket)
			if b == nil {
				return nil
			}

			return b.ForEach(func(k, v []byte) error {
				if len(k) != len(plumbing.ZeroHash) || len(v) != len(plumbing.ZeroHash) {
					return fmt.Errorf("malformed cache entry in %q", bucket)
				}

				var kh, vh plumbing.Hash
				copy(kh[:], k)
				copy(vh[:], v)
				record(kh, vh)

				return nil
			})
		}

		if err := load(forwardBucket(filter), func(k, v plumbing.Hash) {
			maps.RecordForward(filter, k, v)
		}); err != nil {
			return err
		}

		return load(backwardBucket(filter), func(k, v plumbing.Hash) {
			maps.RecordBackward(filter, k, v)
		})
	})
}

// SaveViewMaps writes the cache entries for filter from maps into db.
// Existing entries are rewritten with identical values; entries under other
// filter identities are untouched.
func SaveViewMaps(db *bbolt.DB, filter Filter, maps *ViewMaps) error {
	if db == nil {
		return ErrNilDB
	}

	return db.Update(func(tx *bbolt.Tx) error {
		save := func(bucket []byte, entries map[plumbing.Hash]plumbing.Hash) error {
			b, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
			for k, v := range entries {
				k, v := k, v
				if err := b.Put(k[:], v[:]); err != nil {
					return err
				}
			}

			return nil
		}

		if err := save(forwardBucket(filter), maps.forward[filter.Spec()]); err != nil {
			return err
		}

		return save(backwardBucket(filter), maps.backward[filter.Spec()])
	})
}
