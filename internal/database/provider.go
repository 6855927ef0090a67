package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// OpenFunc connects to a database, applies its schema and returns the backend.
type OpenFunc func(ctx context.Context, cfg *config.DatabaseConfig) (Backend, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// RegisterDriver registers a backend constructor under a driver name.
// This is called by the backend packages to avoid import cycles.
func RegisterDriver(name string, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if open == nil {
		panic("database: RegisterDriver open func is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("database: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = open
}

// Drivers returns the sorted names of registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns the backend selected by cfg.Driver
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Backend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required: set DATABASE_URL")
	}

	driversMu.RLock()
	open, ok := drivers[cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database driver %q (available: %v)", cfg.Driver, Drivers())
	}

	backend, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", cfg.Driver, err)
	}
	return backend, nil
}
