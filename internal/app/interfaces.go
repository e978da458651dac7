package app

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/stockroom/config"
	"github.com/talkincode/stockroom/internal/inventory"
	"github.com/talkincode/stockroom/internal/store"
)

// StoreProvider provides document store access
type StoreProvider interface {
	Store() store.Store
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// InventoryProvider provides the stock movement service
type InventoryProvider interface {
	Inventory() *inventory.Service
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// EventBusProvider provides the in-process event bus
type EventBusProvider interface {
	Bus() EventBus.Bus
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	StoreProvider
	ConfigProvider
	InventoryProvider
	SchedulerProvider
	EventBusProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb() error
	DropAll() error
}
