// Package storage persists model artifacts, evaluation reports and training
// run summaries. It uses BoltDB as the underlying storage engine.
//
// Artifacts are opaque byte blobs keyed by model variant; reports and runs are
// JSON documents. All operations are safe for concurrent use.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	artifactsBucket = "artifacts" // serialized model artifacts by variant
	reportsBucket   = "reports"   // latest evaluation report by variant
	runsBucket      = "runs"      // training run summaries by time
)

// DBFile is the database file name inside the data directory.
const DBFile = "hype-models.db"

var (
	// ErrArtifactNotFound is returned when no artifact is stored for a variant.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrReportNotFound is returned when no report is stored for a variant.
	ErrReportNotFound = errors.New("report not found")
)

// Store provides persistent storage for trained models using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database in dataPath and ensures the buckets
// exist.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{artifactsBucket, reportsBucket, runsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutArtifact stores the serialized artifact of variant, replacing any
// previous one.
func (s *Store) PutArtifact(variant string, data []byte) error {
	if variant == "" {
		return errors.New("artifact variant must not be empty")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(artifactsBucket)).Put([]byte(variant), data)
	})
}

// GetArtifact returns a copy of the artifact bytes of variant.
func (s *Store) GetArtifact(variant string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(artifactsBucket)).Get([]byte(variant))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrArtifactNotFound, variant)
		}
		// bbolt values are only valid inside the transaction.
		out = bytes.Clone(v)
		return nil
	})
	return out, err
}

// ListArtifacts returns the stored variants in key order.
func (s *Store) ListArtifacts() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(artifactsBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// PutReport stores the JSON encoding of report under variant.
func (s *Store) PutReport(variant string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportsBucket)).Put([]byte(variant), data)
	})
}

// GetReport decodes the report stored under variant into out.
func (s *Store) GetReport(variant string, out any) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(reportsBucket)).Get([]byte(variant))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrReportNotFound, variant)
		}
		if err := json.Unmarshal(v, out); err != nil {
			return fmt.Errorf("unmarshal report %s: %w", variant, err)
		}
		return nil
	})
}

// ListReports returns the variants that have a stored report.
func (s *Store) ListReports() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportsBucket)).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

// PutRun records a training run summary at ts.
func (s *Store) PutRun(ts time.Time, summary any) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).Put(runKey(ts), data)
	})
}

// GetRuns returns run summaries recorded within [start, end], oldest first.
func (s *Store) GetRuns(start, end time.Time) ([]json.RawMessage, error) {
	var runs []json.RawMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		endKey := runKey(end)
		for k, v := c.Seek(runKey(start)); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			runs = append(runs, json.RawMessage(bytes.Clone(v)))
		}
		return nil
	})
	return runs, err
}

// LatestRun decodes the most recent run summary into out. ok is false when
// no run was recorded.
func (s *Store) LatestRun(out any) (bool, error) {
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket([]byte(runsBucket)).Cursor().Last()
		if k == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, out)
	})
	return found, err
}

// runKey orders runs chronologically; the zero-padded width keeps byte order
// equal to time order.
func runKey(ts time.Time) []byte {
	return []byte(fmt.Sprintf("run_%020d", ts.UnixNano()))
}
