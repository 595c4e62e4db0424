package logger

import (
	"context"
	"errors"
	"os"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction. Fields can be seeded from the
// environment with envconfig (prefix STIMGEN) and overridden by CLI flags.
type Config struct {
	JSON      bool `envconfig:"LOG_JSON" default:"false"`
	NoColor   bool `envconfig:"LOG_NO_COLOR" default:"false"`
	Verbose   int  `envconfig:"LOG_VERBOSE" default:"0"`
	Quiet     bool `envconfig:"LOG_QUIET" default:"false"`
	AddCaller bool `envconfig:"LOG_CALLER" default:"false"`
}

func NewLogger(cfg Config) (*zap.Logger, func(context.Context) error, error) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339)) },
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var enc zapcore.Encoder
	if cfg.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		if cfg.NoColor || runtime.GOOS == "windows" {
			encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		} else {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	// CLI tool, so logs go to stderr.
	ws := zapcore.AddSync(os.Stderr)

	level := zapcore.InfoLevel
	if cfg.Quiet {
		level = zapcore.WarnLevel
	}
	if cfg.Verbose > 0 && !cfg.Quiet {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(enc, ws, level)

	opts := []zap.Option{
		zap.ErrorOutput(ws),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.AddCaller || level == zapcore.DebugLevel {
		opts = append(opts, zap.AddCaller())
	}

	lg := zap.New(core, opts...)

	cleanup := func(_ context.Context) error {
		if err := lg.Sync(); err != nil {
			// Sync on stderr fails with EINVAL and friends on most platforms.
			if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTSUP) || errors.Is(err, syscall.EBADF) {
				return nil
			}
			return err
		}
		return nil
	}
	return lg, cleanup, nil
}
