package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/regaloya/regaloya-api/internal/api"
	"github.com/regaloya/regaloya-api/internal/config"
	"github.com/regaloya/regaloya-api/internal/db"
	"github.com/regaloya/regaloya-api/internal/logger"
	"github.com/regaloya/regaloya-api/internal/repository/dao"
)

const configPath = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment, conf.Logger.Level); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	watchConfig()

	// Amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	postgresDB, err := db.OpenPostgres(conf.Postgres)
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	if err = dao.InitTables(postgresDB); err != nil {
		return fmt.Errorf("failed to migrate database -> %w", err)
	}

	s, err := api.NewServer(conf, postgresDB)
	if err != nil {
		return fmt.Errorf("failed to initialize server -> %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr), zap.String("environment", conf.API.Environment))
	if err = s.Run(ctx, addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

// watchConfig applies log level edits of the config file without a restart.
// Other settings are only read at startup.
func watchConfig() {
	err := config.Watch(configPath, func(conf *config.AppConfig, e fsnotify.Event) {
		if err := logger.SetLevel(conf.Logger.Level); err != nil {
			zap.L().Warn("ignoring log level change", zap.Error(err))
			return
		}
		zap.L().Info("config reloaded", zap.String("file", e.Name), zap.Stringer("log_level", logger.Level()))
	}, func(err error) {
		zap.L().Warn("ignoring invalid config change", zap.Error(err))
	})
	if err != nil {
		zap.L().Debug("config file is not watched", zap.Error(err))
	}
}
