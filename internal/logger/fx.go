package logger

import (
	"context"
	"errors"
	"syscall"

	"github.com/smallbiznis/chaseless/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("logger",
	fx.Provide(NewFromConfig),
	fx.Invoke(flushOnStop),
)

// NewFromConfig builds the process logger and installs it as the zap global.
func NewFromConfig(cfg config.Config) (*zap.Logger, error) {
	log, err := New(Options{
		Service:     cfg.AppName,
		Version:     cfg.AppVersion,
		Level:       cfg.Logger.Level,
		Development: cfg.Environment == "development",
	})
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

func flushOnStop(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// stdout cannot be fsynced on a terminal or pipe.
			err := log.Sync()
			if err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
				return err
			}
			return nil
		},
	})
}
