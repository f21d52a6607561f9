package main

import (
	"errors"
	"flag"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back every applied migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(cfg.Logging.Level, cfg.LogFormat())
	defer log.Sync()

	m, err := migrate.New(cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("migration failed", zap.Bool("down", *down), zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal("failed to read schema version", zap.Error(err))
	}
	log.Info("migrations applied",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Bool("down", *down),
	)
}
