// Package offline owns connectivity awareness and the durable queue of
// operations deferred until connectivity returns.
package offline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/openfit/relay/internal/observe/metrics"
)

// Prober checks whether one upstream is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber considers the network up if a HEAD request gets any response
// at all; an unhealthy upstream that still answers means connectivity.
type HTTPProber struct {
	url    string
	client *http.Client
}

func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	resp.Body.Close()
	return nil
}

// GRPCProber uses the standard gRPC health service as its reachability
// signal.
type GRPCProber struct {
	service string
	conn    *grpc.ClientConn
}

func NewGRPCProber(target, service string) (*GRPCProber, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &GRPCProber{service: service, conn: conn}, nil
}

func (p *GRPCProber) Probe(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(p.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health check: service %q not serving (%s)", p.service, resp.Status)
	}
	return nil
}

func (p *GRPCProber) Close() error {
	return p.conn.Close()
}

// Monitor probes upstreams on an interval and pushes status transitions to
// subscribers. Consumers receive the new online state; delivery is
// best-effort per subscriber.
type Monitor struct {
	probers  []Prober
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	online bool
	subs   []chan bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a Monitor. With no probers configured the monitor
// reports permanently online.
func NewMonitor(probers []Prober, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		probers:  probers,
		interval: interval,
		timeout:  5 * time.Second,
		log:      log,
		online:   true,
	}
}

// Start runs an immediate probe and then the background probe loop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	m.setOnline(m.probe(ctx))

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.setOnline(m.probe(ctx))
			}
		}
	}()
}

// Stop terminates the probe loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// Online returns the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers an observer of connectivity transitions. Only state
// changes are delivered.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 8)
	m.subs = append(m.subs, ch)
	return ch
}

func (m *Monitor) probe(ctx context.Context) bool {
	if len(m.probers) == 0 {
		return true
	}
	for _, p := range m.probers {
		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := p.Probe(probeCtx)
		cancel()
		if err == nil {
			return true
		}
		m.log.Debug("connectivity probe failed", "error", err)
	}
	return false
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if online {
		metrics.ConnectivityOnline.Set(1)
	} else {
		metrics.ConnectivityOnline.Set(0)
	}
	m.log.Info("connectivity changed", "online", online)

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
		}
	}
}
