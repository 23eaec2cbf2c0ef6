// Package counters persists the electricity counters between restarts.
package counters

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sweeney/solard/internal/logic"
	"gopkg.in/yaml.v2"
)

// Load reads counters from path. A missing file yields zero counters and no
// error. Negative values, or nightly use above the total, are treated as
// corrupt and zeroed.
func Load(path string) (logic.PowerCounters, error) {
	var c logic.PowerCounters
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read counters: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return logic.PowerCounters{}, fmt.Errorf("parse counters %s: %w", path, err)
	}
	if c.TotalWh < 0 || c.NightlyWh < 0 {
		return logic.PowerCounters{}, fmt.Errorf("parse counters %s: negative value", path)
	}
	if c.NightlyWh > c.TotalWh {
		return logic.PowerCounters{}, fmt.Errorf("parse counters %s: nightly_wh exceeds total_wh", path)
	}
	return c, nil
}

// Save writes counters to path atomically.
func Save(path string, c logic.PowerCounters) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".counters-*")
	if err != nil {
		return fmt.Errorf("save counters: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save counters: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save counters: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save counters: %w", err)
	}
	return nil
}
