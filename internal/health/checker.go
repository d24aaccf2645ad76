// Package health provides periodic component health checks for the
// audit store and the CRM connection.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/servibot/quoteflow/internal/infra/metrics"
)

// Check defines a single named health check.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs health checks periodically and on demand.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// Pinger is anything with a connectivity probe. Both the audit store
// and the CRM client satisfy it.
type Pinger interface {
	Ping() error
}

// NewChecker creates a checker over the given components. Nil pingers
// are skipped so partial deployments stay observable.
func NewChecker(audit, crm Pinger) *Checker {
	c := &Checker{interval: 60 * time.Second}
	if audit != nil {
		c.checks = append(c.checks, Check{
			Name:    "sqlite",
			CheckFn: func(ctx context.Context) error { return audit.Ping() },
		})
	}
	if crm != nil {
		c.checks = append(c.checks, Check{
			Name:    "crm",
			CheckFn: func(ctx context.Context) error { return crm.Ping() },
		})
	}
	return c
}

// Run starts the periodic check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

// Check runs all checks now and returns the results.
func (c *Checker) Check(ctx context.Context) []Status {
	c.runAll(ctx)
	return c.Statuses()
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}
