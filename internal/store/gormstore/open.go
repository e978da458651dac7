package gormstore

import (
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres or sqlite according to cfg. Relative sqlite paths
// are resolved against workdir; ":memory:" is passed through.
func Open(cfg config.DBConfig, workdir string) (*Store, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		path := cfg.Path
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(workdir, "data", path)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, domain.NewStoreError("open sqlite", err)
			}
		}
		dialector = sqlite.Open(path)
	default:
		return nil, pkgerrors.Errorf("unsupported gorm database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, domain.NewStoreError("open "+dialector.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, domain.NewStoreError("open "+dialector.Name(), err)
	}
	if cfg.Type == "sqlite" {
		// a single connection keeps ":memory:" databases shared and serializes writers
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxConn)
		}
		if cfg.IdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.IdleConn)
		}
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	zap.S().Infof("gorm store opened, type: %s", dialector.Name())
	return New(db), nil
}
