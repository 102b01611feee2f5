package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bRuns = []byte("runs")

// Store keeps the history of executed operations. Only summaries are
// written, never fitted plans or record values.
type Store struct{ db *bolt.DB }

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bRuns)
		return e
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type Run struct {
	ID         string    `json:"id"`
	When       time.Time `json:"when"`
	Op         string    `json:"op"`
	Trigger    string    `json:"trigger,omitempty"` // http, cli, cron, watch
	Status     string    `json:"status"`
	Rows       int       `json:"rows"`
	Features   int       `json:"features,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// PutRun stores r, assigning a time-ordered ID when empty.
func (s *Store) PutRun(r Run) (Run, error) {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return r, err
		}
		r.ID = id.String()
	}
	if r.When.IsZero() {
		r.When = time.Now().UTC()
	}
	j, err := json.Marshal(r)
	if err != nil {
		return r, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bRuns).Put([]byte(r.ID), j)
	})
	return r, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	out := []Run{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var r Run
			if json.Unmarshal(v, &r) != nil {
				continue
			}
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}
