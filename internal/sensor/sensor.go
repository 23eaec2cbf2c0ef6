// Package sensor reads DS18B20 1-wire temperature sensors.
// The real implementation parses the kernel w1 sysfs files.
// The fake implementation allows testing without hardware.
package sensor

import (
	"errors"

	"github.com/sweeney/solard/internal/logic"
)

// Reader reads one temperature channel.
type Reader interface {
	// Read returns the temperature in °C.
	Read(ch logic.Channel) (float64, error)
}

var (
	ErrCRC       = errors.New("sensor: crc check failed")
	ErrMalformed = errors.New("sensor: malformed reading")
	ErrChannel   = errors.New("sensor: unknown channel")
)

// ReadAll reads every channel, marking failed ones as not OK.
// It also returns the errors keyed by channel for logging.
func ReadAll(r Reader) ([logic.NumChannels]logic.Reading, map[logic.Channel]error) {
	var out [logic.NumChannels]logic.Reading
	var errs map[logic.Channel]error
	for ch := logic.Channel(0); ch < logic.NumChannels; ch++ {
		v, err := r.Read(ch)
		if err != nil {
			if errs == nil {
				errs = map[logic.Channel]error{}
			}
			errs[ch] = err
			continue
		}
		out[ch] = logic.Reading{Temp: v, OK: true}
	}
	return out, errs
}
