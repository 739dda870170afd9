// Command healthcheck probes a running reviewdesk server and exits non-zero
// unless it reports itself healthy. It is meant for container health checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	defaultAddr = "127.0.0.1:8080"
	timeout     = 2 * time.Second
)

func main() {
	addr := normalizeAddr(os.Getenv("REVIEWDESK_LISTEN_ADDR"))
	if err := probe(addr); err != nil {
		fmt.Fprintln(os.Stderr, "unhealthy:", err)
		os.Exit(1)
	}
}

// probe requests the health endpoint and requires status "ok", which the
// server only reports while its database answers.
func probe(addr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return fmt.Errorf("status %d (%q)", resp.StatusCode, body.Status)
	}
	return nil
}

// normalizeAddr turns the server's bind address into one the probe can dial.
// Wildcard hosts become loopback.
func normalizeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
