package scanner

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestFilterOpenKeepsOrder(t *testing.T) {
	got := filterOpen(
		[]string{"10.0.0.3", "10.0.0.1", "10.0.0.2"},
		map[string]bool{"10.0.0.2": true, "10.0.0.3": true},
	)
	want := []string{"10.0.0.3", "10.0.0.2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("filterOpen = %v, want %v", got, want)
	}
}

func TestReachableUsesScanResult(t *testing.T) {
	p := NewProber(5000, time.Second)
	var gotPort int
	p.scan = func(_ context.Context, hosts []string, port int, _ time.Duration) (map[string]bool, error) {
		gotPort = port
		return map[string]bool{hosts[1]: true}, nil
	}

	got := p.Reachable(context.Background(), []string{"192.168.1.10", "10.0.0.5"})
	if !reflect.DeepEqual(got, []string{"10.0.0.5"}) {
		t.Fatalf("Reachable = %v", got)
	}
	if gotPort != 5000 {
		t.Fatalf("scanned port %d, want 5000", gotPort)
	}
}

func TestReachableScanFailure(t *testing.T) {
	p := NewProber(5000, time.Second)
	p.scan = func(context.Context, []string, int, time.Duration) (map[string]bool, error) {
		return nil, errors.New("boom")
	}
	if got := p.Reachable(context.Background(), []string{"10.0.0.5"}); got != nil {
		t.Fatalf("Reachable = %v, want nil on failure", got)
	}
}

func TestReachableEmpty(t *testing.T) {
	p := NewProber(5000, 0)
	p.scan = func(context.Context, []string, int, time.Duration) (map[string]bool, error) {
		t.Fatal("scan must not run without candidates")
		return nil, nil
	}
	if got := p.Reachable(context.Background(), nil); got != nil {
		t.Fatalf("Reachable = %v", got)
	}
}
