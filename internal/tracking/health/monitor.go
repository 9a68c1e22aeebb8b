package health

import (
	"context"
	"sync"
	"time"
)

// staleRefresh is how old the last successful market refresh may get before
// the system counts as degraded.
const staleRefresh = 5 * time.Minute

// HeightFetcher fetches the latest block height from the node.
type HeightFetcher interface {
	LatestHeight(ctx context.Context) (uint64, error)
}

// Pinger checks one dependency's liveness.
type Pinger interface {
	Health(ctx context.Context) error
}

// SubscriptionCounter reports how many head subscriptions are live.
type SubscriptionCounter interface {
	Count() int
}

// Monitor aggregates health status from the node, the storage backends, and
// the tracking loop.
type Monitor struct {
	node    HeightFetcher
	pingers map[string]Pinger
	subs    SubscriptionCounter

	mu          sync.Mutex
	lastRefresh time.Time
	lastCheck   time.Time
	lastReport  *Report
}

// NewMonitor creates a health monitor. pingers maps a component name to its
// liveness check; entries may be nil when the backend is not configured.
func NewMonitor(node HeightFetcher, subs SubscriptionCounter, pingers map[string]Pinger) *Monitor {
	return &Monitor{
		node:    node,
		pingers: pingers,
		subs:    subs,
	}
}

// RecordRefresh notes a successful market status refresh.
func (m *Monitor) RecordRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRefresh = time.Now()
}

// Check performs a health check. Results are cached briefly to avoid hitting
// the node on every probe.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < 10*time.Second {
		return *m.lastReport
	}

	report := Report{
		Status:     StatusHealthy,
		Components: make(map[string]ComponentHealth),
	}

	height, err := m.node.LatestHeight(ctx)
	if err != nil {
		report.Components["node"] = ComponentHealth{Status: StatusCritical, Detail: err.Error()}
		report.Status = StatusCritical
	} else {
		report.Components["node"] = ComponentHealth{Status: StatusHealthy}
		report.ChainHeight = height
	}

	for name, pinger := range m.pingers {
		if pinger == nil {
			continue
		}
		if err := pinger.Health(ctx); err != nil {
			report.Components[name] = ComponentHealth{Status: StatusDegraded, Detail: err.Error()}
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		} else {
			report.Components[name] = ComponentHealth{Status: StatusHealthy}
		}
	}

	if m.subs != nil {
		report.Subscriptions = m.subs.Count()
	}

	if !m.lastRefresh.IsZero() {
		age := time.Since(m.lastRefresh)
		report.RefreshAge = age.Round(time.Second).String()
		if age > staleRefresh && report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}
