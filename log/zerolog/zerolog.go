package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/shuffleio"
)

var _ shuffleio.Logger = Logger{}

// Logger adapts zerolog. New tags every event with component=shuffleio.
type Logger struct{ L zerolog.Logger }

func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "shuffleio").Logger()}
}

func (z Logger) Debug(msg string, f shuffleio.Fields) { emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f shuffleio.Fields)  { emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f shuffleio.Fields)  { emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f shuffleio.Fields) { emit(z.L.Error(), msg, f) }

// emit tolerates a nil event (level disabled).
func emit(e *zerolog.Event, msg string, f shuffleio.Fields) {
	if e == nil {
		return
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
