package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Clients struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

func NewClients(dbURL, redisAddr, redisPassword string, redisDB int) (*Clients, error) {
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Clients{
		DB:    db,
		Redis: redisClient,
	}, nil
}

func (c *Clients) CreateReportsTable() error {
	schema := `CREATE TABLE IF NOT EXISTS reports (
		id SERIAL PRIMARY KEY,
		report_id TEXT NOT NULL,
		template TEXT NOT NULL DEFAULT 'Preventiva',
		status TEXT DEFAULT 'pending',
		blob_url TEXT DEFAULT '',
		error TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := c.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	slog.Info("reports table is ready")
	return nil
}
