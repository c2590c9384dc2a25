package health

import (
	"context"
	"sync"
	"time"

	"github.com/openfit/relay/internal/observe/report"
	"github.com/openfit/relay/internal/offline"
	"github.com/openfit/relay/internal/resilience/breaker"
)

// QueueDepther reports how many operations are waiting for replay.
type QueueDepther interface {
	Count(ctx context.Context) (int, error)
}

// Monitor aggregates health from the connectivity monitor, the offline
// queue and the circuit breaker.
type Monitor struct {
	connectivity *offline.Monitor
	queue        QueueDepther
	breaker      *breaker.Breaker
	reporter     *report.Reporter

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a health Monitor.
func NewMonitor(connectivity *offline.Monitor, queue QueueDepther, brk *breaker.Breaker, reporter *report.Reporter) *Monitor {
	return &Monitor{
		connectivity: connectivity,
		queue:        queue,
		breaker:      brk,
		reporter:     reporter,
	}
}

// CheckHealth builds a health snapshot. Results are cached briefly so a
// scraping loop doesn't hammer the queue store.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Breakers != nil {
		return m.lastReport
	}

	r := Report{
		Status:   StatusHealthy,
		Online:   m.connectivity.Online(),
		Breakers: make(map[string]string),
	}

	anyOpen := false
	for _, svc := range m.breaker.Services() {
		state := m.breaker.State(svc)
		r.Breakers[svc] = state.String()
		if state == breaker.StateOpen {
			anyOpen = true
		}
	}

	depth, err := m.queue.Count(ctx)
	if err != nil {
		r.Status = StatusCritical
	} else {
		r.QueueDepth = depth
	}

	if current := m.reporter.Current(); current != nil {
		r.LastError = current.Error()
	}

	if r.Status != StatusCritical {
		if !r.Online || anyOpen || r.QueueDepth > 100 {
			r.Status = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = r
	return r
}
