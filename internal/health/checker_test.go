package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stride-app/stride/internal/infra/lock"
	"github.com/stride-app/stride/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type failingPinger struct{ err error }

func (f failingPinger) Ping(context.Context) error { return f.err }

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestChecker_RunOnceHealthy(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(0, nil,
		PingCheck("store", db),
		PingCheck("lock", lock.NewKeyed()),
		DirCheck("data_dir", t.TempDir()),
	)
	c.RunOnce(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 3 {
		t.Fatalf("Statuses() = %d, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() = false, want true")
	}
}

func TestChecker_FailingCheck(t *testing.T) {
	c := NewChecker(0, nil, PingCheck("store", failingPinger{errors.New("connection refused")}))
	c.RunOnce(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() = true, want false")
	}
	s := c.Statuses()[0]
	if s.Healthy || s.Error != "connection refused" {
		t.Errorf("status = %+v", s)
	}
}

func TestChecker_ClosedStore(t *testing.T) {
	db := newTestDB(t)
	db.Close()

	c := NewChecker(0, nil, PingCheck("store", db))
	c.RunOnce(context.Background())
	if c.IsHealthy() {
		t.Error("closed store should be unhealthy")
	}
}

func TestChecker_RecoveryRuns(t *testing.T) {
	recovered := false
	c := NewChecker(0, nil, Check{
		Name:      "flaky",
		CheckFn:   func(context.Context) error { return errors.New("down") },
		RecoverFn: func(context.Context) error { recovered = true; return nil },
	})
	c.RunOnce(context.Background())
	if !recovered {
		t.Error("RecoverFn should run after a failed check")
	}
}

func TestChecker_IsHealthyBeforeRun(t *testing.T) {
	c := NewChecker(0, nil, PingCheck("store", failingPinger{errors.New("x")}))
	if !c.IsHealthy() {
		t.Error("no results yet should report healthy")
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	c := NewChecker(0, nil, PingCheck("lock", lock.NewKeyed()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
}

// ─── Check Implementation Tests ─────────────────────────────────────────────

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	if err := checkDir(dir); err != nil {
		t.Errorf("existing dir: %v", err)
	}
	if err := checkDir(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("missing dir should pass: %v", err)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := checkDir(file); err == nil {
		t.Error("regular file should fail")
	}
}
