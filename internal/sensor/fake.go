package sensor

import (
	"errors"

	"github.com/sweeney/solard/internal/logic"
)

// FakeReader is a test double that returns scripted temperatures.
type FakeReader struct {
	// Samples contains scripted readings, one entry per cycle. A channel
	// whose Reading is not OK returns ReadError (or a generic error).
	// After the last sample the last one repeats.
	Samples [][logic.NumChannels]logic.Reading

	// ReadError, if set, is returned for failed channels.
	ReadError error

	// Reads counts calls to Read.
	Reads int

	index int
	seen  int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...[logic.NumChannels]logic.Reading) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the scripted value of ch for the current sample. The sample
// advances once every channel has been read.
func (f *FakeReader) Read(ch logic.Channel) (float64, error) {
	f.Reads++
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	r := f.Samples[f.index][ch]
	f.seen++
	if f.seen == int(logic.NumChannels) {
		f.seen = 0
		if f.index < len(f.Samples)-1 {
			f.index++
		}
	}

	if !r.OK {
		if f.ReadError != nil {
			return 0, f.ReadError
		}
		return 0, errors.New("sensor: scripted failure")
	}
	return r.Temp, nil
}
