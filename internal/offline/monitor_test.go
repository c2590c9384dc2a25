package offline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (p *fakeProber) Probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func waitFor(t *testing.T, ch <-chan bool, want bool) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("received transition to %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transition to %v", want)
	}
}

func TestMonitorPushesTransitions(t *testing.T) {
	prober := &fakeProber{}
	m := NewMonitor([]Prober{prober}, 10*time.Millisecond, nil)
	sub := m.Subscribe()

	m.Start(context.Background())
	defer m.Stop()

	if !m.Online() {
		t.Fatal("monitor should start online with a healthy prober")
	}

	prober.setErr(errors.New("no route to host"))
	waitFor(t, sub, false)
	if m.Online() {
		t.Error("Online() = true after failed probes")
	}

	prober.setErr(nil)
	waitFor(t, sub, true)
	if !m.Online() {
		t.Error("Online() = false after probes recovered")
	}
}

func TestMonitorAnyProberCountsAsOnline(t *testing.T) {
	down := &fakeProber{err: errors.New("down")}
	up := &fakeProber{}
	m := NewMonitor([]Prober{down, up}, 10*time.Millisecond, nil)

	m.Start(context.Background())
	defer m.Stop()

	if !m.Online() {
		t.Error("monitor offline even though one prober succeeds")
	}
}

func TestMonitorWithoutProbersIsAlwaysOnline(t *testing.T) {
	m := NewMonitor(nil, 10*time.Millisecond, nil)
	m.Start(context.Background())
	defer m.Stop()

	if !m.Online() {
		t.Error("proberless monitor should report online")
	}
}
