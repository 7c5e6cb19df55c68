package main

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"rentcars/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	migrationUp   = "up"
	migrationDown = "down"
)

func main() {
	var configPath, migrationsPath, migrationType string
	flag.StringVar(&configPath, "config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config file")
	flag.StringVar(&migrationsPath, "migrations-path", "migrations/postgres", "path to migrations")
	flag.StringVar(&migrationType, "migration-type", migrationUp, "migration type: up or down")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		fmt.Fprintf(os.Stderr, "migrator supports the postgres driver only, got %q\n", cfg.Database.Driver)
		os.Exit(1)
	}

	dbURL, err := migrationURL(cfg.Database.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid postgres connection string: %v\n", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init migrations: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	switch migrationType {
	case migrationUp:
		err = m.Up()
	case migrationDown:
		err = m.Down()
	default:
		fmt.Fprintf(os.Stderr, "unknown migration type %q\n", migrationType)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return
		}
		fmt.Fprintf(os.Stderr, "migration %s failed: %v\n", migrationType, err)
		os.Exit(1)
	}
	fmt.Printf("migrations %s applied successfully\n", migrationType)
}

// migrationURL drops pgx-only pool parameters and sets the migrations table.
func migrationURL(pg config.PostgresConfig) (string, error) {
	u, err := url.Parse(pg.ConnString())
	if err != nil {
		return "", err
	}
	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "pool_") {
			q.Del(key)
		}
	}
	q.Set("x-migrations-table", pg.MigrationTable)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
