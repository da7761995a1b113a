package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/internal/logger"
	"github.com/smallbiznis/chaseless/internal/migration"
	"github.com/smallbiznis/chaseless/internal/observability"
	"github.com/smallbiznis/chaseless/internal/server"
	"github.com/smallbiznis/chaseless/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Apply migrations and run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			infrastructure(),
			migration.Module,
			server.Module,
		)
		app.Run()
		return app.Err()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			infrastructure(),
			migration.Module,
		)

		startCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		if err := app.Start(startCtx); err != nil {
			return err
		}

		stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelStop()
		return app.Stop(stopCtx)
	},
}

func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
	)
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID)
}
