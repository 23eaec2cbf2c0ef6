// Package daemon runs the controller against real or fake I/O: it reads the
// sensors, steps the controller, drives the relays, persists counters and
// fans state out to the telemetry sinks once per cycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sweeney/solard/internal/config"
	"github.com/sweeney/solard/internal/counters"
	"github.com/sweeney/solard/internal/datalog"
	"github.com/sweeney/solard/internal/gpio"
	"github.com/sweeney/solard/internal/logic"
	"github.com/sweeney/solard/internal/mqtt"
	"github.com/sweeney/solard/internal/sensor"
	"github.com/sweeney/solard/internal/status"
)

const (
	// CycleInterval is the control cadence.
	CycleInterval = 10 * time.Second
	// StartupInterval is the fixed sleep used while warming up or after an
	// overrun.
	StartupInterval = 4 * time.Second
	// StartupCycles is the number of cycles that use StartupInterval.
	StartupCycles = 30
	// OverrunThreshold is the iteration time beyond which the clock is not
	// trusted for drift correction.
	OverrunThreshold = 15 * time.Second
)

// Shutdown reasons published with the SHUTDOWN system event.
const (
	ReasonSensorFault = "SENSOR_FAULT"
	ReasonCancelled   = "CANCELLED"
)

// NextSleep returns how long to sleep after an iteration that took elapsed,
// with cycles completed so far.
func NextSleep(cycles uint64, elapsed time.Duration) time.Duration {
	if cycles <= StartupCycles || elapsed < 0 || elapsed >= OverrunThreshold {
		return StartupInterval
	}
	if elapsed >= CycleInterval {
		return 0
	}
	return CycleInterval - elapsed
}

// Terminated is the context cancellation cause set when a termination
// signal arrives.
type Terminated struct {
	Signal os.Signal
}

func (t Terminated) Error() string {
	return "terminated by " + t.Signal.String()
}

// Options configure a Loop. Controller, Sensors and Lines are required.
type Options struct {
	Controller   *logic.Controller
	Sensors      sensor.Reader
	Lines        gpio.Lines
	Publisher    mqtt.Publisher
	Tracker      *status.Tracker
	Data         *datalog.Writer
	SettingsFile string
	CountersFile string

	// Now and Sleep default to the wall clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Loop is the control loop. Run owns all fields except reload.
type Loop struct {
	controller   *logic.Controller
	sensors      sensor.Reader
	lines        gpio.Lines
	publisher    mqtt.Publisher
	tracker      *status.Tracker
	data         *datalog.Writer
	settingsFile string
	countersFile string
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error

	reload       atomic.Bool
	writePending bool
	dataFailing  bool
}

// New creates a Loop.
func New(o Options) *Loop {
	l := &Loop{
		controller:   o.Controller,
		sensors:      o.Sensors,
		lines:        o.Lines,
		publisher:    o.Publisher,
		tracker:      o.Tracker,
		data:         o.Data,
		settingsFile: o.SettingsFile,
		countersFile: o.CountersFile,
		now:          o.Now,
		sleep:        o.Sleep,
	}
	if l.publisher == nil {
		l.publisher = mqtt.Nop{}
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = sleepContext
	}
	if l.tracker == nil {
		l.tracker = status.NewTracker(l.now(), status.Config{})
	}
	return l
}

// RequestReload asks the loop to re-read the settings file at the end of
// the current iteration. It is safe to call from a signal handler goroutine
// and repeated calls before the loop notices collapse into one reload.
func (l *Loop) RequestReload() {
	l.reload.Store(true)
}

// Run executes control cycles until ctx is cancelled or a sensor fault
// occurs, then disables the outputs and saves the counters. The returned
// error carries the exit code (see Code).
func (l *Loop) Run(ctx context.Context) error {
	l.publishSystem("STARTUP", "")

	for {
		start := l.now()
		res := l.cycle(start)
		if res.Fatal {
			return l.shutdown(ReasonSensorFault, fmt.Errorf("sensor %s: too many consecutive errors", res.FatalChannel))
		}
		if ctx.Err() != nil {
			return l.shutdown(shutdownReason(ctx), nil)
		}

		d := NextSleep(l.controller.Cycles(), l.now().Sub(start))
		if err := l.sleep(ctx, d); err != nil {
			return l.shutdown(shutdownReason(ctx), nil)
		}
	}
}

func (l *Loop) cycle(now time.Time) logic.Result {
	readings, errs := sensor.ReadAll(l.sensors)
	for ch, err := range errs {
		logrus.WithError(err).WithField("channel", ch.String()).Debug("sensor: read failed")
	}

	onBattery, err := l.lines.PoweredByBattery()
	if err != nil {
		logrus.WithError(err).Debug("gpio: power source read failed")
	}

	res := l.controller.Step(logic.Input{
		Now:        now,
		Readings:   readings,
		OnBattery:  onBattery,
		BatteryErr: err != nil,
	})
	for _, ev := range res.Events {
		l.emit(ev)
	}
	if res.Fatal {
		return res
	}

	if res.WriteOutputs || l.writePending {
		l.writeOutputs(res.Outputs)
	}
	if res.SaveCounters {
		l.saveCounters()
	}

	logrus.WithFields(logrus.Fields{
		"cycle": l.controller.Cycles(),
		"mode":  res.Mode.String(),
	}).Debug("daemon: cycle complete")

	l.publishState(now)

	if l.reload.CompareAndSwap(true, false) {
		l.reloadSettings()
	}
	return res
}

// emit writes ev to the log and the event topic. ALARM lines carry a fixed
// prefix so that they can be found with grep.
func (l *Loop) emit(ev logic.Event) {
	entry := logrus.WithTime(ev.Timestamp)
	switch ev.Severity {
	case logic.SeverityAlarm:
		entry.Error("ALARM: " + ev.Message)
	case logic.SeverityWarning:
		entry.Warn(ev.Message)
	default:
		entry.Info(ev.Message)
	}
	if err := l.publisher.Publish(ev); err != nil {
		logrus.WithError(err).Debug("mqtt: publish event failed")
	}
}

func (l *Loop) writeOutputs(o logic.Outputs) {
	if err := l.lines.Write(o); err != nil {
		logrus.WithError(err).WithField("outputs", fmt.Sprintf("%+v", o)).Warn("gpio: write failed, will retry")
		l.writePending = true
		return
	}
	l.writePending = false
}

func (l *Loop) saveCounters() {
	if l.countersFile == "" {
		return
	}
	if err := counters.Save(l.countersFile, l.controller.Counters()); err != nil {
		logrus.WithError(err).Warn("counters: save failed")
	}
}

func (l *Loop) publishState(now time.Time) {
	cs := l.controller.Snapshot()
	l.tracker.Update(cs)
	if c, ok := l.publisher.(mqtt.ConnectionStatus); ok {
		l.tracker.SetMQTTConnected(c.IsConnected())
	}
	snap := l.tracker.Snapshot()

	if l.data != nil {
		err := l.data.Record(now, cs, status.FormatJSON(snap))
		switch {
		case err != nil && !l.dataFailing:
			logrus.WithError(err).Warn("datalog: write failed")
			l.dataFailing = true
		case err == nil && l.dataFailing:
			logrus.Info("datalog: writes recovered")
			l.dataFailing = false
		}
	}

	if err := l.publisher.PublishState(status.FormatCompact(snap)); err != nil {
		logrus.WithError(err).Debug("mqtt: publish state failed")
	}
}

func (l *Loop) reloadSettings() {
	s, err := config.LoadSettings(l.settingsFile)
	if err != nil {
		logrus.WithError(err).Warn("settings: reload failed, using defaults")
	}
	l.controller.SetSettings(s)
	logrus.WithFields(logrus.Fields{
		"mode":        s.Mode.String(),
		"wanted_temp": s.WantedTemp,
	}).Info("settings: reloaded")
}

func (l *Loop) publishSystem(event, reason string) {
	snap := l.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := l.publisher.PublishSystem(ev); err != nil {
		logrus.WithError(err).WithField("event", event).Warn("mqtt: publish system event failed")
	}
}

// shutdown is the single exit path: outputs off, counters saved, SHUTDOWN
// published. fault is non-nil for a sensor-fault shutdown.
func (l *Loop) shutdown(reason string, fault error) error {
	logrus.WithField("reason", reason).Info("daemon: shutting down")

	disableErr := l.lines.Disable()
	if disableErr != nil {
		logrus.WithError(disableErr).Error("ALARM: cannot disable GPIO outputs")
	}
	l.saveCounters()
	l.publishSystem("SHUTDOWN", reason)

	switch {
	case fault != nil && disableErr != nil:
		return Exit(ExitDisableAfterFault, errors.Join(fault, disableErr))
	case fault != nil:
		return Exit(ExitSensorFault, fault)
	case disableErr != nil:
		return Exit(ExitDisable, fmt.Errorf("disable gpio: %w", disableErr))
	}
	return nil
}

func shutdownReason(ctx context.Context) string {
	var t Terminated
	if errors.As(context.Cause(ctx), &t) {
		switch t.Signal {
		case syscall.SIGTERM:
			return "SIGTERM"
		case syscall.SIGINT:
			return "SIGINT"
		}
		return t.Signal.String()
	}
	return ReasonCancelled
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
