package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// duplicateEntry is the MySQL error number for unique key conflicts.
const duplicateEntry = 1062

func init() {
	database.RegisterDriver("mysql", Open)
}

// Pool manages a MariaDB/MySQL connection pool and the gorm session on top of it.
type Pool struct {
	db   *sql.DB
	gorm *gorm.DB
}

// normalizeDSN parses a MySQL DSN and forces the options the stores rely on.
func normalizeDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// NewPool creates a new MariaDB connection pool.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	mcfg, err := normalizeDSN(cfg.URL)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Pool{db: db, gorm: gdb}, nil
}

// Migrate creates or updates the tables.
func (p *Pool) Migrate(ctx context.Context) error {
	if err := p.gorm.WithContext(ctx).AutoMigrate(&identityRow{}, &attendanceRow{}, &sightingRow{}); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}

// Open connects, migrates and returns the MariaDB backend.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (database.Backend, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStore(pool), nil
}

// session returns a gorm session bound to ctx.
func (p *Pool) session(ctx context.Context) *gorm.DB {
	return p.gorm.WithContext(ctx)
}

// Ping verifies the connection is alive.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging MariaDB: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == duplicateEntry
}

// Store implements database.Backend on top of a Pool.
type Store struct {
	*IdentityRepository
	*LedgerRepository
	*SightingRepository

	pool *Pool
}

// NewStore creates the MariaDB backend.
func NewStore(pool *Pool) *Store {
	return &Store{
		IdentityRepository: &IdentityRepository{pool: pool},
		LedgerRepository:   &LedgerRepository{pool: pool},
		SightingRepository: &SightingRepository{pool: pool},
		pool:               pool,
	}
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
