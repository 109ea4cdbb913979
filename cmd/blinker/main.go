// Command blinker toggles one GPIO output line at a live-adjustable interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/gpio-blinker/internal/blinker"
	"github.com/sweeney/gpio-blinker/internal/config"
	"github.com/sweeney/gpio-blinker/internal/gpio"
	"github.com/sweeney/gpio-blinker/internal/interval"
	"github.com/sweeney/gpio-blinker/internal/logic"
	"github.com/sweeney/gpio-blinker/internal/mqtt"
	"github.com/sweeney/gpio-blinker/internal/status"
	"github.com/sweeney/gpio-blinker/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	chip := flag.String("chip", config.DefaultChip, "GPIO chip name")
	line := flag.String("line", config.DefaultLine, "GPIO line name or offset")
	intervalSecs := flag.Uint("interval", config.DefaultInterval, "Initial toggle interval in seconds")
	maxInterval := flag.Uint("max-interval", config.DefaultMaxInterval, "Largest interval accepted at runtime (seconds)")
	broker := flag.String("broker", config.DefaultBroker, `MQTT broker address ("off" disables)`)
	heartbeat := flag.Duration("heartbeat", config.DefaultHeartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", config.DefaultHTTPAddr, `Read-only HTTP status address ("off" disables)`)
	control := flag.String("control", config.DefaultControlSocket, `Control socket path ("off" disables)`)
	printState := flag.Bool("print-state", false, "Print the effective configuration and exit")
	getInterval := flag.Bool("get-interval", false, "Print the running daemon's interval and exit")
	setInterval := flag.String("set-interval", "", "Set the running daemon's interval (seconds) and exit")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: load config: %v", err)
		}
	}

	// Explicit flags win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.GPIO.Chip = *chip
		case "line":
			cfg.GPIO.Line = *line
		case "interval":
			cfg.GPIO.Interval = uint32(*intervalSecs)
		case "max-interval":
			cfg.GPIO.MaxInterval = uint32(*maxInterval)
		case "broker":
			cfg.MQTT.Broker = offToEmpty(*broker)
		case "heartbeat":
			cfg.MQTT.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP.Addr = offToEmpty(*httpAddr)
		case "control":
			cfg.Control.Socket = offToEmpty(*control)
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	switch {
	case *getInterval:
		v, err := newControlClient(cfg.Control.Socket).GetInterval(context.Background())
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Println(v)
		return
	case *setInterval != "":
		v, err := newControlClient(cfg.Control.Socket).SetInterval(context.Background(), *setInterval)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Println(v)
		return
	case *printState:
		printConfig(os.Stdout, cfg)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	changes := make(chan interval.Change, 8)
	b, err := blinker.Initialize(gpio.NewRealController(cfg.GPIO.Chip), blinker.Options{
		LineID:          cfg.GPIO.Line,
		DefaultInterval: cfg.GPIO.Interval,
		MaxInterval:     cfg.GPIO.MaxInterval,
		Observer:        tracker,
		Notify:          changes,
	})
	if err != nil {
		return fmt.Errorf("init blinker: %w", err)
	}
	tracker.SetIntervalReader(b.Store())
	tracker.SetLevel(b.Level())
	tracker.SetArmed(true, time.Now().Add(b.Store().Interval()))

	var publisher mqtt.Publisher = nopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
		if err != nil {
			log.Printf("mqtt: %v, events disabled", err)
		} else {
			publisher, mqttStatus = p, p
			defer p.Close()
		}
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	g, ctx := errgroup.WithContext(context.Background())

	var servers []*web.Server
	if cfg.Control.Socket != "" {
		ln, err := listenControl(cfg.Control.Socket)
		if err != nil {
			b.Shutdown()
			return err
		}
		srv := web.New("", tracker, web.WithInterval(b.Config(), true))
		servers = append(servers, srv)
		g.Go(func() error { return serve(srv.Serve(ln)) })
		defer os.Remove(cfg.Control.Socket)
		log.Printf("control socket listening on %s", cfg.Control.Socket)
	}
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, web.WithInterval(b.Config(), false))
		servers = append(servers, srv)
		g.Go(func() error { return serve(srv.ListenAndServe()) })
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: line=%s/%s interval=%ds broker=%s heartbeat=%v",
		cfg.GPIO.Chip, cfg.GPIO.Line, cfg.GPIO.Interval, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	var hbTick <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.MQTT.Heartbeat)
		defer ticker.Stop()
		hbTick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		defer func() {
			for _, srv := range servers {
				srv.Shutdown(context.Background())
			}
		}()
		return runLoop(ctx, b, publisher, mqttStatus, tracker, time.Now, hbTick, changes, sigCh)
	})

	return g.Wait()
}

// serve turns a clean server close into a nil error.
func serve(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// listenControl opens the control socket, replacing a stale socket file left
// behind by an earlier run. Only the owner may write to it.
func listenControl(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale control socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen control socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod control socket: %w", err)
	}
	return ln, nil
}

// runLoop publishes interval changes and heartbeats until a signal arrives
// or ctx ends, then shuts the blinker down. The blinker is always shut down
// before runLoop returns.
func runLoop(ctx context.Context, b *blinker.Blinker, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, heartbeat <-chan time.Time, changes <-chan interval.Change, sig <-chan os.Signal) error {
	refresh := func() status.Snapshot {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		return tracker.Snapshot()
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return shutdown(b, publisher, tracker, refresh, now, signalName(s))

		case <-ctx.Done():
			log.Printf("server stopped, shutting down")
			if err := shutdown(b, publisher, tracker, refresh, now, "SERVER_ERROR"); err != nil {
				return err
			}
			return ctx.Err()

		case c := <-changes:
			log.Printf("interval: %ds -> %ds", c.Old, c.New)
			event := mqtt.IntervalEvent{
				Timestamp: now(),
				Line:      b.LineID(),
				Old:       c.Old,
				New:       c.New,
			}
			if err := publisher.PublishInterval(event); err != nil {
				log.Printf("publish error: %v", err)
			}

		case <-heartbeat:
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := refresh()
			counts := b.Counts()
			log.Printf("heartbeat: uptime=%v level=%s firings=%d overruns=%d write_errors=%d",
				snap.Uptime().Truncate(time.Second), b.Level(), counts.Firings, counts.Overruns, counts.WriteErrors)

			hbEvent := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func shutdown(b *blinker.Blinker, publisher mqtt.Publisher, tracker *status.Tracker, refresh func() status.Snapshot, now func() time.Time, reason string) error {
	shutErr := b.Shutdown()
	if shutErr != nil {
		log.Printf("blinker shutdown: %v", shutErr)
	}
	tracker.SetArmed(false, time.Time{})
	tracker.SetLevel(logic.Inactive)

	snap := refresh()
	event := mqtt.SystemEvent{
		Timestamp:  now(),
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
	return shutErr
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// nopPublisher stands in when MQTT is disabled.
type nopPublisher struct{}

func (nopPublisher) PublishInterval(mqtt.IntervalEvent) error { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error { return nil }

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Chip:            cfg.GPIO.Chip,
		Line:            cfg.GPIO.Line,
		DefaultInterval: cfg.GPIO.Interval,
		MaxInterval:     cfg.GPIO.MaxInterval,
		HeartbeatMs:     cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:          cfg.MQTT.Broker,
		HTTPPort:        cfg.HTTP.Addr,
		ControlSocket:   cfg.Control.Socket,
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func offToEmpty(s string) string {
	if s == "off" {
		return ""
	}
	return s
}

func orOff(s string) string {
	if s == "" {
		return "off"
	}
	return s
}
