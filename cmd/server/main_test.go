package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hitushen/localbrowser/internal/firewall"
	"github.com/hitushen/localbrowser/internal/models"
)

// countingBackend records netsh-equivalent calls without touching the host firewall.
type countingBackend struct {
	mu      sync.Mutex
	rules   map[string]bool
	deletes map[string]int
}

func newCountingBackend() *countingBackend {
	return &countingBackend{rules: map[string]bool{}, deletes: map[string]int{}}
}

func (b *countingBackend) Exists(_ context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rules[name], nil
}

func (b *countingBackend) Add(_ context.Context, rule models.FirewallRule) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rules[rule.Name] = true
	return nil
}

func (b *countingBackend) Delete(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes[name]++
	if !b.rules[name] {
		return firewall.ErrRuleNotFound
	}
	delete(b.rules, name)
	return nil
}

type countingCloser struct{ n atomic.Int32 }

func (c *countingCloser) Close() error {
	c.n.Add(1)
	return nil
}

type shutdownFixture struct {
	backend   *countingBackend
	responder *countingCloser
	ctx       context.Context
	cleanups  atomic.Int32
	cleanup   func()
}

func newShutdownFixture(t *testing.T) *shutdownFixture {
	t.Helper()
	f := &shutdownFixture{backend: newCountingBackend(), responder: &countingCloser{}}
	gate := firewall.NewGate(f.backend, firewall.WithElevationCheck(func() (bool, error) { return true, nil }))
	if err := openPorts(context.Background(), gate, 41234, 5000); err != nil {
		t.Fatalf("open ports: %v", err)
	}
	if got := len(gate.Ensured()); got != 3 {
		t.Fatalf("ensured %d rules, want 3", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.ctx = ctx
	inner := newCleanup(cancel, []*http.Server{{Addr: "127.0.0.1:0"}}, f.responder, gate)
	f.cleanup = func() {
		f.cleanups.Add(1)
		inner()
	}
	return f
}

func (f *shutdownFixture) assertCleanedOnce(t *testing.T) {
	t.Helper()
	if got := f.cleanups.Load(); got != 1 {
		t.Fatalf("cleanup ran %d times, want 1", got)
	}
	if got := f.responder.n.Load(); got != 1 {
		t.Fatalf("responder closed %d times, want 1", got)
	}
	if f.ctx.Err() == nil {
		t.Fatal("request context not cancelled")
	}
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	if len(f.backend.rules) != 0 {
		t.Fatalf("rules left behind: %v", f.backend.rules)
	}
	for _, name := range []string{
		firewall.RuleName(models.DirectionInbound, models.ProtocolUDP, 41234),
		firewall.RuleName(models.DirectionInbound, models.ProtocolTCP, 5000),
		firewall.RuleName(models.DirectionOutbound, models.ProtocolTCP, 5000),
	} {
		if got := f.backend.deletes[name]; got != 1 {
			t.Errorf("rule %q deleted %d times, want 1", name, got)
		}
	}
}

func TestSignalRetractsRulesOnce(t *testing.T) {
	f := newShutdownFixture(t)
	stop := make(chan os.Signal, 1)
	defer close(stop)

	stop <- os.Interrupt
	waitForShutdown(stop, make(chan error), f.cleanup)

	f.assertCleanedOnce(t)
}

func TestServeErrorAndSignalRetractRulesOnce(t *testing.T) {
	f := newShutdownFixture(t)
	stop := make(chan os.Signal, 1)
	defer close(stop)
	serveErr := make(chan error, 1)

	serveErr <- errors.New("listen tcp :5000: address already in use")
	stop <- os.Interrupt
	waitForShutdown(stop, serveErr, f.cleanup)

	f.assertCleanedOnce(t)
}

func TestSecondSignalAfterShutdownIsNoop(t *testing.T) {
	f := newShutdownFixture(t)
	stop := make(chan os.Signal)
	defer close(stop)

	go func() { stop <- os.Interrupt }()
	waitForShutdown(stop, make(chan error), f.cleanup)
	// unbuffered: the send completes only once the signal goroutine has taken it.
	stop <- os.Interrupt
	stop <- os.Interrupt

	f.assertCleanedOnce(t)
}
