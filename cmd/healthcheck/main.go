// Command healthcheck asks a local aimanager server for its health report.
// It exits 0 when /api/v1/health answers 200, which includes a degraded
// report, and 1 otherwise. Components that are not ok are printed to stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	httphandler "github.com/ericfisherdev/aimanager/internal/adapter/driving/http"
)

const (
	defaultAddr  = "127.0.0.1:8080"
	probeTimeout = 2 * time.Second
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	os.Exit(check(ctx, dialAddr(os.Getenv("AIMANAGER_LISTEN_ADDR")), os.Stderr))
}

// check fetches the health report from addr and writes any component that
// is not ok to w.
func check(ctx context.Context, addr string, w io.Writer) int {
	url := "http://" + addr + "/api/v1/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(w, "healthcheck: %v\n", err)
		return 1
	}

	resp, err := (&http.Client{Timeout: probeTimeout}).Do(req)
	if err != nil {
		fmt.Fprintf(w, "healthcheck: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	var report httphandler.HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&report); err == nil {
		for _, c := range report.Components {
			if c.Status != "ok" {
				fmt.Fprintf(w, "%s: %s %s\n", c.Name, c.Status, c.Detail)
			}
		}
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(w, "healthcheck: %s answered %d\n", url, resp.StatusCode)
		return 1
	}
	return 0
}

// dialAddr maps a listen address to one this process can dial. Wildcard
// hosts become loopback; an empty or malformed address uses the server
// default.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return defaultAddr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
