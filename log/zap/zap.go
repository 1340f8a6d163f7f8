// Package zap adapts a *zap.Logger to the sidecache.Logger interface.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/sidecache"
)

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f sidecache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f sidecache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f sidecache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f sidecache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f sidecache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
