// Package config loads the daemon's command-line options and the reloadable
// controller settings file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sweeney/solard/internal/logic"
	"gopkg.in/yaml.v2"
)

// Limits applied to values read from the settings file.
const (
	MinWantedTemp = 10
	MaxWantedTemp = 50
	MinAbsMaxTemp = 30
	MaxAbsMaxTemp = 65
	MaxResetDay   = 28

	// AbsMaxMargin is the smallest gap between wanted_temp and abs_max_temp.
	AbsMaxMargin = 3
)

const lastMode = logic.ModeAutoElectricUnscheduled

// LoadSettings reads the YAML settings file at path. Keys missing from the
// file keep their defaults and out-of-range values are clamped. On any read
// or parse error the defaults are returned together with the error, so the
// result is always usable.
func LoadSettings(path string) (logic.Settings, error) {
	s := logic.DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return logic.DefaultSettings(), fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return logic.DefaultSettings(), fmt.Errorf("parse settings %s: %w", path, err)
	}

	return Clamp(s), nil
}

// Clamp forces every setting into its valid range, logging each correction.
func Clamp(s logic.Settings) logic.Settings {
	if s.Mode < logic.ModeAllOff || s.Mode > lastMode {
		warnClamp("mode", int(s.Mode), int(logic.ModeAuto))
		s.Mode = logic.ModeAuto
	}
	s.WantedTemp = clampInt("wanted_temp", s.WantedTemp, MinWantedTemp, MaxWantedTemp)
	s.AbsMaxTemp = clampInt("abs_max_temp", s.AbsMaxTemp, MinAbsMaxTemp, MaxAbsMaxTemp)
	if s.AbsMaxTemp < s.WantedTemp+AbsMaxMargin {
		warnClamp("abs_max_temp", s.AbsMaxTemp, s.WantedTemp+AbsMaxMargin)
		s.AbsMaxTemp = s.WantedTemp + AbsMaxMargin
	}
	s.ElectricStartHour = clampInt("electric_start_hour", s.ElectricStartHour, 0, 23)
	s.ElectricStopHour = clampInt("electric_stop_hour", s.ElectricStopHour, 0, 23)
	s.DayToResetPowerCounters = clampInt("day_to_reset_power_counters", s.DayToResetPowerCounters, 1, MaxResetDay)
	return s
}

func clampInt(key string, v, min, max int) int {
	switch {
	case v < min:
		warnClamp(key, v, min)
		return min
	case v > max:
		warnClamp(key, v, max)
		return max
	}
	return v
}

func warnClamp(key string, from, to int) {
	logrus.WithFields(logrus.Fields{"key": key, "value": from, "used": to}).Warnf("config: setting out of range")
}

// ApplySetting sets a single settings key from its YAML text form, as it
// would appear in the settings file, and clamps the result.
func ApplySetting(s logic.Settings, key, value string) (logic.Settings, error) {
	if strings.ContainsAny(key+value, ":\n") {
		return s, fmt.Errorf("set %s: invalid value", key)
	}
	next := s
	if err := yaml.UnmarshalStrict([]byte(key+": "+value+"\n"), &next); err != nil {
		return s, fmt.Errorf("set %s: %w", key, err)
	}
	return Clamp(next), nil
}
