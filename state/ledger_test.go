package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.etcd.io/bbolt"
)

func TestLedger_RecordOutcome(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(target, false)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, ok, err := l.ReadOutcome("seal-1"); err != nil || ok {
		t.Fatalf("expected no outcome in empty ledger, got ok=%v err=%v", ok, err)
	}

	first := Outcome{DeploymentID: "seal-1", State: "failed", Reached: "violations_detected",
		Reason: "no_feasible_route", Fixes: 10, Violations: 2}
	if err := l.RecordOutcome(first); err != nil {
		t.Fatal(err)
	}
	second := Outcome{DeploymentID: "seal-1", State: "reassembled", Reached: "rerouted",
		Fixes: 10, Violations: 2, Inserted: 5, DetourLength: 1234.5, Elapsed: time.Second}
	if err := l.RecordOutcome(second); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordOutcome(Outcome{DeploymentID: "gull-2", State: "reassembled", Fixes: 3}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := l.ReadOutcome("seal-1")
	if err != nil || !ok {
		t.Fatalf("read outcome: ok=%v err=%v", ok, err)
	}
	want := second
	want.Runs = 2
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Outcome{}, "RecordedAt")); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	if got.RecordedAt.IsZero() {
		t.Error("RecordedAt not set")
	}

	all, err := l.Outcomes()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].DeploymentID != "gull-2" || all[1].DeploymentID != "seal-1" {
		t.Errorf("unexpected outcomes: %+v", all)
	}
}

func TestLedger_ReadOnly(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(target, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.RecordOutcome(Outcome{DeploymentID: "seal-1", State: "reassembled"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenLedger(target, true)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	if err := ro.RecordOutcome(Outcome{DeploymentID: "seal-2"}); err == nil {
		t.Error("expected write to read-only ledger to fail")
	}
	all, err := ro.Outcomes()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 outcome, got %d", len(all))
	}
}

// TestBBoltOpenNX shows that a second writable bbolt conn
// blocks, rather than errors, until the first is closed.
func TestBBoltOpenNX(t *testing.T) {
	target := filepath.Join(t.TempDir(), "bbolt-test.db")
	db, err := bbolt.Open(target, 0600, nil)
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		db.Close()
	}()
	db2, err := bbolt.Open(target, 0600, nil)
	if err != nil {
		t.Fatalf("next db conn: %v", err)
	}
	db2.Close()
}
