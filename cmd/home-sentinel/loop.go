package main

import (
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/home-sentinel/internal/cloudsync"
	"github.com/sweeney/home-sentinel/internal/link"
	"github.com/sweeney/home-sentinel/internal/sensor"
	"github.com/sweeney/home-sentinel/internal/status"
)

// wallClock is the NTP-corrected time used for alert timestamps.
type wallClock interface {
	Now() time.Time
	Sync() error
	Synced() bool
	Offset() time.Duration
}

// systemClock is used when NTP is disabled.
type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sync() error           { return nil }
func (systemClock) Synced() bool          { return false }
func (systemClock) Offset() time.Duration { return 0 }

// loop owns the registry and guardian. Everything it touches runs on the
// goroutine that calls start and run.
type loop struct {
	registry  *sensor.Registry
	guardian  *link.Guardian
	pusher    *cloudsync.Sync
	tracker   *status.Tracker
	wall      wallClock
	heartbeat time.Duration
	now       func() time.Time
	log       *slog.Logger

	started       bool
	lastHeartbeat time.Time
}

// start makes the initial connect and arms every sensor. A sensor that
// fails to arm keeps running in the registry.
func (l *loop) start() {
	now := l.now()
	l.lastHeartbeat = now
	l.guardian.OnConnect(l.onConnect)
	if !l.guardian.Start(now) {
		// Not fatal: sensors run offline until the guardian reconnects.
		l.log.Warn("starting without store link")
	}
	if err := l.registry.Begin(now); err != nil {
		l.log.Warn("sensor start failed", "err", err)
	}
	l.refresh()
}

func (l *loop) onConnect(time.Time) {
	if err := l.wall.Sync(); err != nil {
		l.log.Warn("ntp sync failed", "err", err)
	} else {
		l.log.Info("ntp synced", "offset", l.wall.Offset())
	}

	event := status.EventReconnected
	if !l.started {
		event = status.EventStartup
		l.started = true
	}
	l.pushStatus(event, "")
}

// run processes ticks until a signal arrives.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal, cmds <-chan sensor.Command) error {
	for {
		select {
		case s := <-sig:
			name := signalName(s)
			l.log.Info("shutting down", "signal", name)
			l.pushStatus(status.EventShutdown, name)
			return nil

		case <-tick:
			l.tick(cmds)
		}
	}
}

func (l *loop) tick(cmds <-chan sensor.Command) {
	now := l.now()
	l.guardian.Check(now)
	l.applyCommands(cmds, now)
	l.registry.Tick(now)
	l.refresh()

	if l.heartbeat > 0 && now.Sub(l.lastHeartbeat) >= l.heartbeat {
		l.lastHeartbeat = now
		l.log.Debug("heartbeat")
		l.pushStatus(status.EventHeartbeat, "")
	}
}

func (l *loop) applyCommands(cmds <-chan sensor.Command, now time.Time) {
	for {
		select {
		case c := <-cmds:
			if err := l.registry.Apply(c, now); err != nil {
				l.log.Warn("command rejected", "sensor", c.SensorID, "field", c.Field, "err", err)
			}
		default:
			return
		}
	}
}

// refresh copies machine and link state into the tracker.
func (l *loop) refresh() {
	l.tracker.Update(l.registry.Snapshots())
	last, _ := l.guardian.LastAttempt()
	l.tracker.SetLink(status.LinkInfo{Connected: l.guardian.IsConnected(), LastAttempt: last})
	l.tracker.SetClock(status.ClockInfo{Synced: l.wall.Synced(), Offset: l.wall.Offset()})
}

func (l *loop) pushStatus(event, reason string) {
	l.refresh()
	l.pusher.PushStatus(status.FormatStatusEvent(l.tracker.Snapshot(), event, reason))
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
