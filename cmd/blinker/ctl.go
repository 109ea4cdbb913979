package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sweeney/gpio-blinker/internal/config"
)

// controlClient talks to a running daemon over its control socket.
type controlClient struct {
	socket string
	http   *http.Client
}

func newControlClient(socket string) *controlClient {
	return &controlClient{
		socket: socket,
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socket)
				},
			},
		},
	}
}

// GetInterval returns the daemon's current interval in seconds.
func (c *controlClient) GetInterval(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet, "")
}

// SetInterval asks the daemon to change its interval and returns the value
// it now reports.
func (c *controlClient) SetInterval(ctx context.Context, seconds string) (string, error) {
	return c.do(ctx, http.MethodPut, seconds)
}

func (c *controlClient) do(ctx context.Context, method, body string) (string, error) {
	if c.socket == "" {
		return "", fmt.Errorf("control socket disabled")
	}

	// Host is ignored by the dialer.
	req, err := http.NewRequestWithContext(ctx, method, "http://blinker/interval", strings.NewReader(body))
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("control %s: %w", c.socket, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %s", resp.Status, text)
	}
	return text, nil
}

func printConfig(w io.Writer, cfg config.Config) {
	fmt.Fprintf(w, "chip: %s\n", cfg.GPIO.Chip)
	fmt.Fprintf(w, "line: %s\n", cfg.GPIO.Line)
	fmt.Fprintf(w, "interval: %ds\n", cfg.GPIO.Interval)
	fmt.Fprintf(w, "max-interval: %ds\n", cfg.GPIO.MaxInterval)
	fmt.Fprintf(w, "broker: %s\n", orOff(cfg.MQTT.Broker))
	fmt.Fprintf(w, "heartbeat: %v\n", cfg.MQTT.Heartbeat)
	fmt.Fprintf(w, "http: %s\n", orOff(cfg.HTTP.Addr))
	fmt.Fprintf(w, "control: %s\n", orOff(cfg.Control.Socket))
}
