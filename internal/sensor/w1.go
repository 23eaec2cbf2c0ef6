package sensor

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/sweeney/solard/internal/logic"
)

// W1Reader reads sensors through /sys/bus/w1/devices/<id>/w1_slave.
type W1Reader struct {
	paths [logic.NumChannels]string
}

// NewW1Reader creates a reader for the given w1_slave files in channel order.
func NewW1Reader(paths []string) (*W1Reader, error) {
	if len(paths) != int(logic.NumChannels) {
		return nil, fmt.Errorf("sensor: need %d paths, got %d", logic.NumChannels, len(paths))
	}
	r := &W1Reader{}
	copy(r.paths[:], paths)
	return r, nil
}

// Read returns the temperature of ch.
func (r *W1Reader) Read(ch logic.Channel) (float64, error) {
	if ch < 0 || ch >= logic.NumChannels {
		return 0, ErrChannel
	}
	data, err := os.ReadFile(r.paths[ch])
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", ch, err)
	}
	v, err := ParseW1(data)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", ch, err)
	}
	return v, nil
}

// ParseW1 parses the contents of a w1_slave file:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func ParseW1(data []byte) (float64, error) {
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) < 2 {
		return 0, ErrMalformed
	}
	if !bytes.HasSuffix(bytes.TrimSpace(lines[0]), []byte("YES")) {
		return 0, ErrCRC
	}
	i := bytes.LastIndex(lines[1], []byte("t="))
	if i < 0 {
		return 0, ErrMalformed
	}
	milli, err := strconv.Atoi(string(bytes.TrimSpace(lines[1][i+2:])))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return float64(milli) / 1000, nil
}
