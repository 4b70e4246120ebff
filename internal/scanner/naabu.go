package scanner

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/naabu/v2/pkg/result"
	"github.com/projectdiscovery/naabu/v2/pkg/runner"
)

// runNaabu 对 hosts 做一次 TCP connect 扫描，返回端口开放的主机集合（键为 IP 与主机名）。
func runNaabu(ctx context.Context, hosts []string, port int, timeout time.Duration) (map[string]bool, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts to scan")
	}

	var mu sync.Mutex
	open := make(map[string]bool, len(hosts))

	onResult := func(hr *result.HostResult) {
		if hr == nil {
			return
		}
		for _, p := range hr.Ports {
			if p == nil || p.Port != port {
				continue
			}
			mu.Lock()
			if hr.IP != "" {
				open[hr.IP] = true
			}
			if hr.Host != "" {
				open[hr.Host] = true
			}
			mu.Unlock()
		}
	}

	opts := runner.Options{
		Host:     goflags.StringSlice(hosts),
		ScanType: "c",
		OnResult: onResult,
		JSON:     false,
		NoColor:  true,
		Verbose:  false,
		Silent:   true,
		Stdin:    false,
		Stream:   true,
		Ports:    strconv.Itoa(port),
		Retries:  1,
		Rate:     1000,
		Timeout:  timeout,
	}

	r, err := runner.NewRunner(&opts)
	if err != nil {
		return nil, fmt.Errorf("naabu runner init: %w", err)
	}
	defer r.Close()

	if err := r.RunEnumeration(ctx); err != nil {
		return nil, fmt.Errorf("naabu enumeration: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return open, nil
}
