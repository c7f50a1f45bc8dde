// Command home-sentinel samples home security sensors and mirrors their
// state and alerts to an MQTT-backed store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/home-sentinel/internal/clock"
	"github.com/sweeney/home-sentinel/internal/cloudsync"
	"github.com/sweeney/home-sentinel/internal/config"
	"github.com/sweeney/home-sentinel/internal/link"
	"github.com/sweeney/home-sentinel/internal/metrics"
	"github.com/sweeney/home-sentinel/internal/mqtt"
	"github.com/sweeney/home-sentinel/internal/sensor"
	"github.com/sweeney/home-sentinel/internal/status"
	"github.com/sweeney/home-sentinel/internal/web"
)

// commandQueueSize bounds commands waiting for the next tick.
const commandQueueSize = 16

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (empty for defaults)")
	printState := flag.Bool("print-state", false, "Print current sensor readings and exit")

	flag.Parse()

	if err := run(*cfgPath, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	lvl, _ := cfg.SlogLevel() // validated at load
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func run(cfgPath string, printState bool) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	hw, err := openHardware(cfg.GPIO.Chip, logger)
	if err != nil {
		return err
	}
	defer hw.Close()

	if printState {
		return printSensors(os.Stdout, cfg, hw)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cmds := make(chan sensor.Command, commandQueueSize)
	submit := commandSubmitter(cmds, logger)

	client := mqtt.NewClient(mqtt.Options{
		Broker:         cfg.Store.Broker,
		ClientID:       cfg.Store.ClientID,
		TopicPrefix:    cfg.Store.TopicPrefix,
		ConnectTimeout: cfg.Store.ConnectTimeout,
		PublishTimeout: cfg.Store.PublishTimeout,
		WillPayload:    status.FormatWill(cfg.Node.ID),
	}, func(c mqtt.Command) {
		submit(sensor.Command{SensorID: c.SensorID, Field: c.Field, Value: c.Value})
	}, logger)
	defer client.Close()

	guardian := link.New(client, cfg.Link.ReconnectInterval, logger, m)

	var wall wallClock = clock.New(cfg.NTP.Server)
	if cfg.NTP.Disabled {
		wall = systemClock{}
	}

	pusher := cloudsync.New(client, guardian, wall, logger, m)

	machines, err := buildMachines(cfg, hw, sensor.Deps{Push: pusher, Log: logger, Metrics: m})
	if err != nil {
		return err
	}
	registry, err := sensor.NewRegistry(logger, machines...)
	if err != nil {
		return err
	}
	defer registry.Close()

	tracker := status.NewTracker(wall.Now(), status.Config{
		NodeID:      cfg.Node.ID,
		TickMs:      cfg.Node.Tick.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		ReconnectMs: cfg.Link.ReconnectInterval.Milliseconds(),
		Broker:      cfg.Store.Broker,
		TopicPrefix: cfg.Store.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	tracker.SetNow(wall.Now)

	if cfg.HTTP.Enabled() {
		srv := web.New(cfg.HTTP.Addr, tracker, web.Options{
			Gatherer:  reg,
			Commands:  submit,
			AccessLog: os.Stderr,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	l := &loop{
		registry:  registry,
		guardian:  guardian,
		pusher:    pusher,
		tracker:   tracker,
		wall:      wall,
		heartbeat: cfg.Heartbeat,
		now:       time.Now,
		log:       logger,
	}

	logger.Info("started",
		"node", cfg.Node.ID,
		"tick", cfg.Node.Tick,
		"broker", cfg.Store.Broker,
		"sensors", len(machines),
		"heartbeat", cfg.Heartbeat)

	l.start()

	ticker := time.NewTicker(cfg.Node.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return l.run(ticker.C, sigCh, cmds)
}

// commandSubmitter returns a non-blocking sender onto cmds. A full queue
// drops the command.
func commandSubmitter(cmds chan<- sensor.Command, log *slog.Logger) func(sensor.Command) error {
	return func(c sensor.Command) error {
		select {
		case cmds <- c:
			return nil
		default:
			log.Warn("command dropped: queue full", "sensor", c.SensorID, "field", c.Field)
			return web.ErrBusy
		}
	}
}

// printSensors reads each polled sensor once.
func printSensors(w io.Writer, cfg *config.Config, hw hardware) error {
	s := cfg.Sensors
	var errs []error

	door, err := hw.DoorSwitch(s.Door.Pin)
	if err != nil {
		errs = append(errs, fmt.Errorf("door: %w", err))
	} else {
		open, err := door.Read()
		door.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("door: %w", err))
		} else {
			fmt.Fprintf(w, "%s: %s\n", s.Door.ID, openString(open))
		}
	}

	conv := sensor.Conversion{FullScale: s.Gas.ADC.FullScale, VRef: s.Gas.ADC.VRef, PPMPerVolt: s.Gas.ADC.PPMPerVolt}
	if raw, err := hw.GasADC(s.Gas.ADC).ReadRaw(); err != nil {
		errs = append(errs, fmt.Errorf("gas: %w", err))
	} else {
		fmt.Fprintf(w, "%s: %.1f ppm\n", s.Gas.ID, conv.PPM(raw))
	}

	for _, p := range s.Proximity {
		rf, err := hw.Ultrasonic(p.TrigPin, p.EchoPin, p.EchoTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ID, err))
			continue
		}
		cm, err := rf.Measure()
		if c, ok := rf.(io.Closer); ok {
			c.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ID, err))
			continue
		}
		fmt.Fprintf(w, "%s: %.1f cm\n", p.ID, cm)
	}

	return errors.Join(errs...)
}

func openString(open bool) string {
	if open {
		return "OPEN"
	}
	return "CLOSED"
}
