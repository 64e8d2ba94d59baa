package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"whatsapp-intake/backend/pkg/logger"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
	// StatusDegraded indicates a component is working but with reduced functionality
	StatusDegraded Status = "degraded"
)

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Critical    bool      `json:"critical"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Report is the outcome of one round of checks
type Report struct {
	Healthy    bool                  `json:"healthy"`
	Timestamp  time.Time             `json:"timestamp"`
	Components map[string]*Component `json:"components"`
}

// Check represents a health check function
type Check func(ctx context.Context) (Status, string, error)

type registered struct {
	check    Check
	critical bool
}

// Checker runs registered checks on demand
type Checker struct {
	checks  map[string]registered
	timeout time.Duration
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewChecker creates a new health checker. Each check is bounded by timeout.
func NewChecker(log *logger.Logger, timeout time.Duration) *Checker {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		checks:  make(map[string]registered),
		timeout: timeout,
		log:     log.WithComponent("health"),
	}
}

// RegisterCheck registers a new health check. A critical component that is
// down makes the whole service unhealthy.
func (c *Checker) RegisterCheck(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = registered{check: check, critical: critical}
}

// Names returns the registered check names in sorted order
func (c *Checker) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes all registered health checks
func (c *Checker) Run(ctx context.Context) Report {
	c.mutex.RLock()
	checks := make(map[string]registered, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mutex.RUnlock()

	report := Report{
		Healthy:    true,
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]*Component, len(checks)),
	}

	for name, r := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		status, description, err := r.check(checkCtx)
		cancel()

		component := &Component{
			Name:        name,
			Status:      status,
			Critical:    r.critical,
			Description: description,
			LastChecked: time.Now().UTC(),
		}

		if err != nil {
			component.Error = err.Error()
			c.log.Error("Health check failed",
				"check", name,
				"status", string(status),
				"error", err.Error(),
			)
		}

		if r.critical && status == StatusDown {
			report.Healthy = false
		}
		report.Components[name] = component
	}

	return report
}

// RegisterDatabaseCheck registers a critical database health check
func (c *Checker) RegisterDatabaseCheck(ping func(ctx context.Context) error) {
	c.RegisterCheck("database", true, func(ctx context.Context) (Status, string, error) {
		if err := ping(ctx); err != nil {
			return StatusDown, "Database connection failed", err
		}
		return StatusUp, "Database connection is established", nil
	})
}

// RegisterCacheCheck registers a non-critical cache check; a failing cache
// only degrades the service since lookups fall through to the database
func (c *Checker) RegisterCacheCheck(ping func(ctx context.Context) error) {
	c.RegisterCheck("cache", false, func(ctx context.Context) (Status, string, error) {
		if err := ping(ctx); err != nil {
			return StatusDegraded, "Cache unreachable", err
		}
		return StatusUp, "Cache is reachable", nil
	})
}
