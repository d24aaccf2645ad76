package health

import (
	"context"
	"errors"
	"testing"

	"github.com/servibot/quoteflow/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakePinger struct{ err error }

func (p fakePinger) Ping() error { return p.err }

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker(t *testing.T) {
	c := NewChecker(newTestDB(t), fakePinger{})
	if c == nil {
		t.Fatal("NewChecker() returned nil")
	}
	if len(c.checks) != 2 {
		t.Errorf("checks = %d, want 2", len(c.checks))
	}
}

func TestNewChecker_SkipsNilComponents(t *testing.T) {
	c := NewChecker(nil, nil)
	if len(c.checks) != 0 {
		t.Errorf("checks = %d, want 0", len(c.checks))
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	c := NewChecker(newTestDB(t), fakePinger{})
	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Statuses() = %d, want 2", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(newTestDB(t), fakePinger{})

	// No statuses before the first run, so IsHealthy is vacuously true.
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_CRMFailure(t *testing.T) {
	c := NewChecker(newTestDB(t), fakePinger{err: errors.New("connection refused")})
	c.runAll(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() should be false when the CRM check fails")
	}
	for _, s := range c.Statuses() {
		switch s.Name {
		case "sqlite":
			if !s.Healthy {
				t.Errorf("sqlite check should be healthy, got: %s", s.Error)
			}
		case "crm":
			if s.Healthy {
				t.Error("crm check should fail")
			}
			if s.Error == "" {
				t.Error("error message should be populated")
			}
		}
	}
}

func TestChecker_CheckReturnsFreshResults(t *testing.T) {
	c := NewChecker(nil, fakePinger{})

	statuses := c.Check(context.Background())
	if len(statuses) != 1 || statuses[0].Name != "crm" {
		t.Fatalf("Check() = %+v", statuses)
	}
	if !statuses[0].Healthy {
		t.Error("crm check should be healthy")
	}
}

func TestChecker_StatusesCopy(t *testing.T) {
	c := NewChecker(newTestDB(t), fakePinger{})
	c.runAll(context.Background())

	s1 := c.Statuses()
	s2 := c.Statuses()

	// Verify it's a copy, not the same slice
	if len(s1) > 0 {
		s1[0].Healthy = false
		if !s2[0].Healthy {
			t.Error("Statuses() should return a copy, not a reference")
		}
	}
}
