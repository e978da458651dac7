package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/store"
	"github.com/talkincode/stockroom/internal/store/boltstore"
	"github.com/talkincode/stockroom/internal/store/gormstore"
	"github.com/talkincode/stockroom/pkg/common"
	"github.com/talkincode/stockroom/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Application struct {
	appConfig *config.AppConfig
	store     store.Store
	inventory *inventory.Service
	bus       EventBus.Bus
	sched     *cron.Cron
	watcher   *LowStockWatcher
}

// Ensure Application implements all interfaces
var (
	_ StoreProvider     = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ InventoryProvider = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ EventBusProvider  = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, bus: EventBus.New()}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Store() store.Store {
	return a.store
}

func (a *Application) Inventory() *inventory.Service {
	return a.inventory
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// OverrideStore replaces the application's store (used in tests).
func (a *Application) OverrideStore(s store.Store) {
	a.store = s
	a.inventory = inventory.NewService(s, a.bus)
}

// Init prepares logging, metrics and the store, then seeds defaults and
// starts background jobs.
func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	InitLogger(cfg.Logger)
	common.SetNodeID(cfg.System.NodeID)

	// Initialize metrics with workdir convention
	retention := time.Duration(cfg.Inventory.MetricsRetention) * 24 * time.Hour
	if err := metrics.InitMetrics(cfg.System.Workdir, retention); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	s, err := OpenStore(cfg)
	if err != nil {
		return err
	}
	a.OverrideStore(s)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	ctx := context.Background()
	a.checkSuper(ctx)

	a.watcher = NewLowStockWatcher(cfg.Inventory.LowStockThreshold)
	if err := a.watcher.Subscribe(a.bus); err != nil {
		zap.S().Errorf("low stock watcher subscribe error %s", err.Error())
	}

	a.initJob()
	return nil
}

// InitLogger builds the global zap logger, teeing into a rotated file when enabled.
func InitLogger(cfg config.LogConfig) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.FileEnable && cfg.Filename != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o755); err != nil {
			panic(err)
		}
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// OpenStore opens the backend selected by database.type. Bolt and sqlite
// paths are relative to the data directory.
func OpenStore(cfg *config.AppConfig) (store.Store, error) {
	switch cfg.Database.Type {
	case "bolt":
		path := cfg.Database.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.GetDataDir(), path)
		}
		return boltstore.Open(path)
	case "postgres", "sqlite", "":
		return gormstore.Open(cfg.Database, cfg.System.Workdir)
	default:
		return nil, pkgerrors.Errorf("unsupported database type %q", cfg.Database.Type)
	}
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	s := a.store
	if gs, ok := s.(*gormstore.Store); ok && track {
		s = gormstore.New(gs.DB().Debug())
	}
	return s.Migrate(context.Background())
}

// dropper is implemented by stores that can remove all their collections
type dropper interface {
	DropAll(ctx context.Context) error
}

func (a *Application) DropAll() error {
	d, ok := a.store.(dropper)
	if !ok {
		return pkgerrors.New("store does not support drop")
	}
	return d.DropAll(context.Background())
}

// InitDb drops and recreates every collection
func (a *Application) InitDb() error {
	if err := a.DropAll(); err != nil {
		return err
	}
	return a.MigrateDB(false)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.watcher != nil {
		a.watcher.Unsubscribe(a.bus)
	}
	a.bus.WaitAsync()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zap.S().Warn("store close error:", err)
		}
	}

	_ = metrics.Close()
	_ = zap.L().Sync()
}
