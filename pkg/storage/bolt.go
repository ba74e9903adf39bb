// Package storage keeps a history of analysis runs in a bbolt file.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/yasi-python/abtest/pkg/analysis"
)

var ErrNotFound = errors.New("run not found")

var (
	bucketRuns  = []byte("runs")
	bucketIndex = []byte("runs_by_time")
)

type DB struct {
	db *bolt.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketRuns, bucketIndex} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// RunRecord is one stored invocation: where the data came from, how it was
// configured and every report it produced.
type RunRecord struct {
	ID          string             `json:"id"`
	CreatedUnix int64              `json:"created_unix"`
	Control     string             `json:"control"`
	Test        string             `json:"test"`
	Config      analysis.Config    `json:"config"`
	Reports     []*analysis.Report `json:"reports"`
}

// NewRun stamps a record with a fresh id and the current time.
func NewRun(control, test string, cfg analysis.Config, reports []*analysis.Report) RunRecord {
	return RunRecord{
		ID:          uuid.NewString(),
		CreatedUnix: time.Now().Unix(),
		Control:     control,
		Test:        test,
		Config:      cfg,
		Reports:     reports,
	}
}

// indexKey sorts by creation time, then id.
func indexKey(r RunRecord) []byte {
	k := make([]byte, 0, 20+len(r.ID))
	k = append(k, []byte(time.Unix(r.CreatedUnix, 0).UTC().Format("20060102T150405Z"))...)
	k = append(k, '/')
	return append(k, r.ID...)
}

func (d *DB) PutRun(r RunRecord) error {
	if r.ID == "" {
		return errors.New("run id is empty")
	}
	j, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode run")
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put([]byte(r.ID), j); err != nil {
			return err
		}
		return tx.Bucket(bucketIndex).Put(indexKey(r), []byte(r.ID))
	})
}

func (d *DB) GetRun(id string) (*RunRecord, error) {
	var r RunRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRuns).Get([]byte(id))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "%q", id)
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (d *DB) ListRuns(limit int) ([]RunRecord, error) {
	out := []RunRecord{}
	err := d.db.View(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		c := tx.Bucket(bucketIndex).Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			v := runs.Get(id)
			if v == nil {
				continue
			}
			var r RunRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "decode run %s", id)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (d *DB) DeleteRun(id string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		v := runs.Get([]byte(id))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "%q", id)
		}
		var r RunRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		if err := tx.Bucket(bucketIndex).Delete(indexKey(r)); err != nil {
			return err
		}
		return runs.Delete([]byte(id))
	})
}
