// Package state persists routing outcomes in a bbolt ledger,
// one record per deployment.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rotblauer/routr/conceptual"
	"github.com/rotblauer/routr/params"
	"go.etcd.io/bbolt"
)

// Outcome is the ledger record of the last routing run for a deployment.
type Outcome struct {
	DeploymentID conceptual.DeploymentID `json:"deploymentId"`
	State        string                  `json:"state"`
	Reached      string                  `json:"reached"`
	Reason       string                  `json:"reason,omitempty"`
	Error        string                  `json:"error,omitempty"`

	Fixes        int     `json:"fixes"`
	Violations   int     `json:"violations"`
	Inserted     int     `json:"inserted"`
	DetourLength float64 `json:"detourLength"`

	Elapsed    time.Duration `json:"elapsed"`
	RecordedAt time.Time     `json:"recordedAt"`

	// Runs counts how many times the deployment has been recorded.
	Runs int `json:"runs"`
}

type Ledger struct {
	DB    *bbolt.DB
	rOnly bool
}

// DefaultLedgerPath is the ledger file in the data directory.
func DefaultLedgerPath() string {
	return filepath.Join(params.DatadirRoot, params.LedgerDBName)
}

// OpenLedger opens or creates the ledger at path.
// A writable ledger holds an exclusive file lock; other openers block until it is closed.
func OpenLedger(path string, readOnly bool) (*Ledger, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  params.LedgerOpenTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &Ledger{DB: db, rOnly: readOnly}, nil
}

func (l *Ledger) Close() error {
	return l.DB.Close()
}

func (l *Ledger) readKV(key []byte) ([]byte, error) {
	var out []byte
	err := l.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.LedgerOutcomesBucket)
		if bucket == nil {
			return nil
		}
		// The value returned by Get is only valid in the scope of the transaction.
		got := bucket.Get(key)
		if got == nil {
			return nil
		}
		out = bytes.Clone(got)
		return nil
	})
	return out, err
}

// RecordOutcome stores o, replacing any earlier record for its deployment.
// The read of the earlier record and the write share one transaction.
func (l *Ledger) RecordOutcome(o Outcome) error {
	if l.rOnly {
		return fmt.Errorf("record outcome: ledger is read-only")
	}
	key := []byte(o.DeploymentID.String())
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	err := l.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(params.LedgerOutcomesBucket)
		if err != nil {
			return err
		}
		o.Runs = 1
		if prev := bucket.Get(key); prev != nil {
			var p Outcome
			if err := json.Unmarshal(prev, &p); err == nil {
				o.Runs = p.Runs + 1
			}
		}
		b, err := json.Marshal(o)
		if err != nil {
			return err
		}
		return bucket.Put(key, b)
	})
	if err != nil {
		slog.Error("Failed to record outcome", "deployment", o.DeploymentID, "error", err)
		return err
	}
	slog.Debug("Recorded outcome", "deployment", o.DeploymentID, "state", o.State, "runs", o.Runs)
	return nil
}

// ReadOutcome returns the record for id, if any.
func (l *Ledger) ReadOutcome(id conceptual.DeploymentID) (Outcome, bool, error) {
	got, err := l.readKV([]byte(id.String()))
	if err != nil || got == nil {
		return Outcome{}, false, err
	}
	var o Outcome
	if err := json.Unmarshal(got, &o); err != nil {
		return Outcome{}, false, fmt.Errorf("%w: %q", err, string(got))
	}
	return o, true, nil
}

// Outcomes returns every record, ordered by deployment id.
func (l *Ledger) Outcomes() ([]Outcome, error) {
	var out []Outcome
	err := l.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.LedgerOutcomesBucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var o Outcome
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("outcome %s: %w", k, err)
			}
			out = append(out, o)
			return nil
		})
	})
	return out, err
}
