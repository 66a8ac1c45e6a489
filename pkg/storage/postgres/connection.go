// Package postgres wires the PostgreSQL and Redis connections the stores
// are built on: pool configuration, startup pings, and schema migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/trimslot/trimslot/pkg/config"
	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/policy"
	"github.com/trimslot/trimslot/pkg/revocation"
	"github.com/trimslot/trimslot/pkg/tenant"
)

// Connect opens the database, configures the pool, and verifies the
// connection with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate applies every package's schema migrations. Organizations come
// first; stores, principals, and feature grants reference them.
func Migrate(ctx context.Context, db *sql.DB) error {
	steps := []struct {
		name string
		run  func(context.Context, *sql.DB) error
	}{
		{"tenant", tenant.RunMigrations},
		{"identity", identity.RunMigrations},
		{"revocation", revocation.RunMigrations},
		{"policy", policy.RunMigrations},
	}
	for _, step := range steps {
		if err := step.run(ctx, db); err != nil {
			return fmt.Errorf("failed to migrate %s schema: %w", step.name, err)
		}
	}
	return nil
}

// ConnectRedis creates and pings a Redis client. The address is host:port;
// an empty address is a configuration error, callers decide beforehand
// whether Redis is in play.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
