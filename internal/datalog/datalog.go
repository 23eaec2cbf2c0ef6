// Package datalog writes the per-cycle telemetry files: an appended CSV data
// log, a key/value table of current values for collectd, and a JSON snapshot.
package datalog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sweeney/solard/internal/logic"
)

// TimeFormat is the timestamp layout of the first CSV column.
const TimeFormat = "2006-01-02 15:04:05"

// Header names the CSV columns.
var Header = []string{
	"time", "furnace", "collector", "boiler_low", "boiler_high", "wanted", "mode",
	"pump1", "pump2", "valve", "heater", "on_battery", "total_wh", "nightly_wh",
}

// Files holds the telemetry file paths. An empty path disables that file.
type Files struct {
	Data  string
	Table string
	JSON  string
}

// Writer writes telemetry files. It is used only from the run loop.
type Writer struct {
	files Files
}

// Open checks that the data and table files can be written and returns a
// Writer. A header row is written to a new data file.
func Open(files Files) (*Writer, error) {
	if files.Data != "" {
		st, err := os.Stat(files.Data)
		fresh := err != nil || st.Size() == 0
		f, err := os.OpenFile(files.Data, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
		if fresh {
			w := csv.NewWriter(f)
			w.Write(Header)
			w.Flush()
			err = w.Error()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
	}
	if files.Table != "" {
		f, err := os.OpenFile(files.Table, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open table file: %w", err)
		}
		f.Close()
	}
	return &Writer{files: files}, nil
}

// Record appends the CSV row and rewrites the table and JSON files.
// statusJSON is written verbatim to the JSON file.
func (w *Writer) Record(now time.Time, s logic.Snapshot, statusJSON []byte) error {
	if w.files.Data != "" {
		if err := appendRow(w.files.Data, Row(now, s)); err != nil {
			return fmt.Errorf("data file: %w", err)
		}
	}
	if w.files.Table != "" {
		if err := writeAtomic(w.files.Table, Table(s)); err != nil {
			return fmt.Errorf("table file: %w", err)
		}
	}
	if w.files.JSON != "" && statusJSON != nil {
		if err := writeAtomic(w.files.JSON, statusJSON); err != nil {
			return fmt.Errorf("json file: %w", err)
		}
	}
	return nil
}

// Row renders one CSV data row.
func Row(now time.Time, s logic.Snapshot) []string {
	return []string{
		now.Format(TimeFormat),
		temp(s.Sensors[logic.Furnace].Current),
		temp(s.Sensors[logic.Collector].Current),
		temp(s.Sensors[logic.BoilerLow].Current),
		temp(s.Sensors[logic.BoilerHigh].Current),
		strconv.Itoa(s.Settings.WantedTemp),
		strconv.Itoa(s.Mode.Bits()),
		flag(s.Actuators[logic.Pump1].On),
		flag(s.Actuators[logic.Pump2].On),
		flag(s.Actuators[logic.Valve].On),
		flag(s.Actuators[logic.Heater].On),
		flag(s.OnBattery),
		temp(s.Counters.TotalWh),
		temp(s.Counters.NightlyWh),
	}
}

// Table renders the key/value file of current values.
func Table(s logic.Snapshot) []byte {
	rows := [][]string{
		{"Temp1", temp(s.Sensors[logic.Furnace].Current)},
		{"Temp2", temp(s.Sensors[logic.Collector].Current)},
		{"Temp3", temp(s.Sensors[logic.BoilerHigh].Current)},
		{"Temp4", temp(s.Sensors[logic.BoilerLow].Current)},
		{"Pump1", flag(s.Actuators[logic.Pump1].On)},
		{"Pump2", flag(s.Actuators[logic.Pump2].On)},
		{"Valve", flag(s.Actuators[logic.Valve].On)},
		{"Heater", flag(s.Actuators[logic.Heater].On)},
		{"PoweredByBattery", flag(s.OnBattery)},
		{"TempWanted", strconv.Itoa(s.Settings.WantedTemp)},
		{"ElectricityUsed", strconv.FormatInt(int64(s.Counters.TotalWh), 10)},
		{"ElectricityUsedNT", strconv.FormatInt(int64(s.Counters.NightlyWh), 10)},
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.WriteAll(rows)
	return buf.Bytes()
}

func temp(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write(row)
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeAtomic replaces path so that readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
