// Command solard controls a solar/furnace water-heating installation: it
// reads the temperature sensors every 10 seconds, decides which pumps, valve
// and heater to run, and drives the relays.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koding/multiconfig"
	"github.com/sirupsen/logrus"
	"github.com/sweeney/solard/internal/broker"
	"github.com/sweeney/solard/internal/config"
	"github.com/sweeney/solard/internal/counters"
	"github.com/sweeney/solard/internal/daemon"
	"github.com/sweeney/solard/internal/datalog"
	"github.com/sweeney/solard/internal/gpio"
	"github.com/sweeney/solard/internal/logic"
	"github.com/sweeney/solard/internal/mqtt"
	"github.com/sweeney/solard/internal/sensor"
	"github.com/sweeney/solard/internal/status"
	"github.com/sweeney/solard/internal/version"
	"github.com/sweeney/solard/internal/web"
)

func main() {
	err := run()
	if err != nil {
		logrus.WithError(err).Error("solard: exiting")
	}
	os.Exit(daemon.Code(err))
}

func run() error {
	cfg := &config.CliConfig{}
	if err := multiconfig.New().Load(cfg); err != nil {
		return daemon.Exit(daemon.ExitConfig, err)
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return daemon.Exit(daemon.ExitConfig, fmt.Errorf("error setting logrus loglevel: %w", err))
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return daemon.Exit(daemon.ExitLogFile, fmt.Errorf("open log file: %w", err))
	}
	defer logFile.Close()
	logrus.SetOutput(io.MultiWriter(os.Stderr, logFile))

	data, err := datalog.Open(datalog.Files{Data: cfg.DataFile, Table: cfg.TableFile, JSON: cfg.JSONFile})
	if err != nil {
		return daemon.Exit(daemon.ExitLogFile, err)
	}

	ver := version.Get()
	logrus.WithField("version", ver.String()).Info("solard: starting")

	reader, err := sensor.NewW1Reader(cfg.SensorPaths())
	if err != nil {
		return daemon.Exit(daemon.ExitConfig, fmt.Errorf("init sensors: %w", err))
	}

	lines, err := gpio.NewRealLines(cfg.GPIOChip, gpio.Pins{
		Pump1:   cfg.PinPump1,
		Pump2:   cfg.PinPump2,
		Valve:   cfg.PinValve,
		Heater:  cfg.PinHeater,
		Battery: cfg.PinBattery,
	}, cfg.RelayActiveLow)
	if err != nil {
		logrus.WithError(err).Error("ALARM: cannot enable GPIO, aborting run")
		return daemon.Exit(daemon.ExitGPIOEnable, err)
	}

	if cfg.PrintState {
		printState(os.Stdout, reader, lines)
		if err := lines.Disable(); err != nil {
			return daemon.Exit(daemon.ExitDisable, fmt.Errorf("disable gpio: %w", err))
		}
		return nil
	}

	if err := lines.Write(logic.Outputs{}); err != nil {
		logrus.WithError(err).Error("ALARM: cannot configure GPIO, aborting run")
		lines.Disable()
		return daemon.Exit(daemon.ExitGPIOConfigure, err)
	}

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		logrus.WithError(err).Warn("settings: using defaults")
	}
	pc, err := counters.Load(cfg.CountersFile)
	if err != nil {
		logrus.WithError(err).Warn("counters: starting from zero")
	}
	controller := logic.NewController(settings, pc)

	var embedded *broker.Broker
	if cfg.EmbeddedBroker != "" {
		b, err := broker.Start(cfg.EmbeddedBroker)
		if err != nil {
			logrus.WithError(err).Warn("broker: embedded broker not started")
		} else {
			defer b.Close()
			embedded = b
		}
	}

	var publisher mqtt.Publisher = mqtt.Nop{}
	brokerURL := cfg.Broker
	switch {
	case cfg.Broker != "":
		creds, err := config.LoadCredentials(cfg.EnvFile)
		if err != nil {
			logrus.WithError(err).Warn("mqtt: credentials not loaded")
		}
		publisher = mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.Broker,
			ClientID: cfg.ClientID,
			Username: creds.Username,
			Password: creds.Password,
		})
	case embedded != nil:
		publisher = mqtt.NewInlinePublisher(embedded)
		brokerURL = localBrokerURL(embedded.Addr())
		logrus.WithField("broker", brokerURL).Info("mqtt: publishing through the embedded broker")
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Version:        ver.String(),
		Broker:         brokerURL,
		EmbeddedBroker: cfg.EmbeddedBroker,
		HTTPPort:       cfg.HTTPAddr,
		SettingsFile:   cfg.SettingsFile,
	})
	if ni := readNetworkInfo(); ni != nil {
		tracker.SetNetwork(ni)
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Warn("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		logrus.WithField("addr", cfg.HTTPAddr).Info("http status server listening")
	}

	loop := daemon.New(daemon.Options{
		Controller:   controller,
		Sensors:      reader,
		Lines:        lines,
		Publisher:    publisher,
		Tracker:      tracker,
		Data:         data,
		SettingsFile: cfg.SettingsFile,
		CountersFile: cfg.CountersFile,
	})

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go handleSignals(sigCh, loop.RequestReload, cancel)

	logrus.WithFields(logrus.Fields{
		"mode":        settings.Mode.String(),
		"wanted_temp": settings.WantedTemp,
		"broker":      brokerURL,
		"settings":    cfg.SettingsFile,
	}).Info("solard: started")

	return loop.Run(ctx)
}

// handleSignals turns SIGUSR1/SIGHUP into reload requests and cancels ctx on
// SIGINT/SIGTERM. It returns after cancelling or when sig is closed.
func handleSignals(sig <-chan os.Signal, reload func(), cancel context.CancelCauseFunc) {
	for s := range sig {
		switch s {
		case syscall.SIGUSR1, syscall.SIGHUP:
			logrus.WithField("signal", s.String()).Info("settings: reload requested")
			reload()
		default:
			logrus.WithField("signal", s.String()).Info("received signal, shutting down")
			cancel(daemon.Terminated{Signal: s})
			return
		}
	}
}

// localBrokerURL derives the client URL for an embedded broker listening on
// addr; an empty host means loopback.
func localBrokerURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "tcp://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "tcp://" + net.JoinHostPort(host, port)
}

func printState(w io.Writer, r sensor.Reader, lines gpio.Lines) {
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		v, err := r.Read(ch)
		if err != nil {
			fmt.Fprintf(w, "%-12s error: %v\n", ch, err)
			continue
		}
		fmt.Fprintf(w, "%-12s %.3f\n", ch, v)
	}
	battery, err := lines.PoweredByBattery()
	switch {
	case err != nil:
		fmt.Fprintf(w, "%-12s error: %v\n", "power", err)
	case battery:
		fmt.Fprintf(w, "%-12s battery\n", "power")
	default:
		fmt.Fprintf(w, "%-12s mains\n", "power")
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
