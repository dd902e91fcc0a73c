package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// SITES is the bucket for per-site results.
var SITES = []byte("sites")

var null = []byte("null")

// Store keeps JSON encoded results of processed sites. Sites without
// a call are stored as null so that they are skipped as well on
// resume.
type Store struct {
	db *bolt.DB
}

// NewStore creates a store. A nil database gives a store which keeps
// nothing.
func NewStore(db *bolt.DB) *Store {
	return &Store{db: db}
}

// SiteKey returns the key of a genomic position.
func SiteKey(chrom string, pos int) []byte {
	return []byte(fmt.Sprintf("%s:%d", chrom, pos))
}

// Done is true if the site was processed.
func (s *Store) Done(key []byte) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	done := false
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(SITES); b != nil {
			done = b.Get(key) != nil
		}
		return nil
	})
	return done, err
}

// Save stores a site result; v is nil for sites without a call.
func (s *Store) Save(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "error encoding site result")
	}
	return SaveData(s.db, SITES, key, data)
}

// Load decodes a stored site result into v. It returns false if the
// site has no stored call.
func (s *Store) Load(key []byte, v interface{}) (bool, error) {
	data, err := LoadData(s.db, SITES, key)
	if err != nil || data == nil || bytes.Equal(data, null) {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "error decoding site result")
	}
	return true, nil
}

// ForEach calls f for every stored call in key order.
func (s *Store) ForEach(f func(key, value []byte) error) error {
	if s.db == nil {
		return nil
	}
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(SITES)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if bytes.Equal(v, null) {
				return nil
			}
			return f(k, v)
		})
	})
}
