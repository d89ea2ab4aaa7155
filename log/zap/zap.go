package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/shuffleio"
)

var _ shuffleio.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "shuffleio".
func New(l *zap.Logger) Logger { return Logger{L: l.Named("shuffleio")} }

func (z Logger) Debug(msg string, f shuffleio.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f shuffleio.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f shuffleio.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f shuffleio.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f shuffleio.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
