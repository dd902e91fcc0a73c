// Package checkpoint keeps optimizer checkpoints and per-site results
// in a bolt database so that interrupted runs can be resumed.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"
	bolt "go.etcd.io/bbolt"
)

var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket for optimizer checkpoints.
var MAIN = []byte("main")

// CheckpointData stores checkpoint data.
type CheckpointData struct {
	Parameters map[string]float64
	Likelihood float64
	Iter       int
	Final      bool
}

// CheckpointIO saves and loads optimizer checkpoints under a key.
type CheckpointIO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewCheckpointIO creates a new CheckpointIO. Intermediate checkpoints
// are saved at most once per the given number of seconds.
func NewCheckpointIO(db *bolt.DB, key []byte, seconds float64) *CheckpointIO {
	return &CheckpointIO{
		db:      db,
		key:     key,
		seconds: seconds,
	}
}

// Save saves a checkpoint.
func (s *CheckpointIO) Save(data *CheckpointData) error {
	// even if saving fails, don't retry too often
	s.SetNow()
	dataB, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, MAIN, s.key, dataB)
	if err != nil {
		log.Error("Error saving checkpoint", err)
	}
	return err
}

// GetParameters returns the last checkpoint or nil if there is none.
func (s *CheckpointIO) GetParameters() (*CheckpointData, error) {
	var data *CheckpointData

	b, err := LoadData(s.db, MAIN, s.key)
	if err != nil || b == nil {
		return nil, err
	}
	if err = json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	if data == nil || len(data.Parameters) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished likelihood optimization checkpoint (iter=%v, lnL=%v)", data.Iter, data.Likelihood)
	} else {
		log.Noticef("Found unfinished likelihood optimization checkpoint (iter=%v, lnL=%v)", data.Iter, data.Likelihood)
	}
	return data, nil
}

// Old returns true if the last checkpoint was saved too long ago.
func (s *CheckpointIO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets the last checkpoint time to now.
func (s *CheckpointIO) SetNow() {
	s.last = time.Now()
}

// SaveData saves a value in the bolt database.
func SaveData(db *bolt.DB, bucket, key, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads a value from the bolt database; it returns nil if
// there is no such value.
func LoadData(db *bolt.DB, bucket, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		// the value is only valid during the transaction
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
