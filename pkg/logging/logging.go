// Package logging builds the logr.Logger handed to every okview component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Level is debug, info or error. Debug enables V(1).
	Level       string
	Development bool
	// Out defaults to stderr.
	Out io.Writer
}

func level(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// New returns a zap backed logger. Production mode writes JSON, development
// mode writes console lines with stack traces on errors.
func New(o Options) (logr.Logger, error) {
	lvl, err := level(o.Level)
	if err != nil {
		return logr.Discard(), err
	}

	var encoder zapcore.Encoder
	if o.Development {
		cfg := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), zap.NewAtomicLevelAt(lvl))

	opts := []zap.Option{zap.AddCaller()}
	if o.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zapr.NewLogger(zap.New(core, opts...)), nil
}
