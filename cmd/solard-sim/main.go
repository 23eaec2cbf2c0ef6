// Command solard-sim is an interactive console that runs the solard
// controller against hand-entered temperatures, for checking settings and
// decisions without hardware.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chzyer/readline"
	"github.com/koding/multiconfig"
	"github.com/sirupsen/logrus"
	"github.com/sweeney/solard/internal/config"
	"github.com/sweeney/solard/internal/logic"
)

// SimConfig holds the simulator options.
type SimConfig struct {
	SettingsFile string
	Start        string // YYYY-MM-DDTHH:MM; empty means now
	LogLevel     string `default:"info"`
}

// readlineWriter keeps log lines from corrupting the prompt.
type readlineWriter struct {
	rl *readline.Instance
}

func (w *readlineWriter) Write(p []byte) (int, error) {
	w.rl.Clean()
	n, err := os.Stderr.Write(p)
	w.rl.Refresh()
	return n, err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := &SimConfig{}
	if err := multiconfig.New().Load(cfg); err != nil {
		return err
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("error setting logrus loglevel: %w", err)
	}
	logrus.SetLevel(lvl)

	settings := logic.DefaultSettings()
	if cfg.SettingsFile != "" {
		settings, err = config.LoadSettings(cfg.SettingsFile)
		if err != nil {
			return err
		}
	}

	start := time.Now().Truncate(time.Second)
	if cfg.Start != "" {
		start, err = time.ParseInLocation("2006-01-02T15:04", cfg.Start, time.Local)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "solard> ",
		HistoryFile: historyFile(),
	})
	if err != nil {
		return fmt.Errorf("readline init failed: %w", err)
	}
	defer rl.Close()

	logrus.SetOutput(&readlineWriter{rl: rl})
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	sim := NewSim(rl.Stdout(), settings, start)
	fmt.Fprintln(rl.Stdout(), "solard simulator (type 'help' for commands)")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := sim.Exec(line)
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// historyFile returns the path for the command history, or "" for none.
func historyFile() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "solard")
	_ = os.MkdirAll(dir, 0o750)
	return filepath.Join(dir, "sim_history")
}
