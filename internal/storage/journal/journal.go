// Package journal keeps a local record of frames received from the peer
// network in a bbolt database.
package journal

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	FramesBucket = "frames"
)

// Entry is one received frame.
type Entry struct {
	Seq         uint64
	ReceivedAt  time.Time
	Network     string
	From        string
	MessageID   int64
	MessageType int32
	DataLength  int64
	Frame       []byte
}

type Config struct {
	Path       string
	FileMode   os.FileMode
	Options    *bbolt.Options
	Serializer Serializer
}

type Journal struct {
	db         *bbolt.DB
	mu         sync.RWMutex
	serializer Serializer
}

// Open creates the database file if needed and makes sure the frames bucket
// exists. Read-only databases skip bucket creation.
func Open(cfg Config) (*Journal, error) {
	if cfg.Serializer == nil {
		cfg.Serializer = &GobSerializer{}
	}

	if cfg.FileMode == 0 {
		cfg.FileMode = 0600
	}

	db, err := bbolt.Open(cfg.Path, cfg.FileMode, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", cfg.Path, err)
	}

	if cfg.Options == nil || !cfg.Options.ReadOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists([]byte(FramesBucket))
			if err != nil {
				return fmt.Errorf("failed to create bucket: %w", err)
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize journal: %w", err)
		}
	}

	return &Journal{
		db:         db,
		serializer: cfg.Serializer,
	}, nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return ErrNilDB
	}
	return j.db.Close()
}

// Append stores e under the next sequence number and returns it.
func (j *Journal) Append(e Entry) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(FramesBucket))
		if bucket == nil {
			return ErrBucketMissing
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq

		data, err := j.serializer.Serialize(&e)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), data)
	})
	if err != nil {
		return 0, err
	}
	return e.Seq, nil
}

func (j *Journal) Get(seq uint64) (Entry, error) {
	var e Entry

	j.mu.RLock()
	defer j.mu.RUnlock()

	err := j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(FramesBucket))
		if bucket == nil {
			return ErrBucketMissing
		}

		data := bucket.Get(seqKey(seq))
		if data == nil {
			return ErrEntryNotFound
		}
		return j.serializer.Deserialize(data, &e)
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (j *Journal) List(limit int) ([]Entry, error) {
	var entries []Entry

	j.mu.RLock()
	defer j.mu.RUnlock()

	err := j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(FramesBucket))
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := j.serializer.Deserialize(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
