// migrator applies audit-trail schema migrations without starting the server.
// The server runs pending migrations on boot; this exists for deployments that
// migrate out of band.
package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/technosupport/fleetwatch/internal/config"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	migrationsPath := flag.String("migrations", "migrations", "path to migration files")
	down := flag.Bool("down", false, "roll back all migrations")
	steps := flag.Int("steps", 0, "apply +/- N migrations")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		log.Fatal("no postgres DSN configured")
	}

	m, err := migrate.New("file://"+*migrationsPath, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("migrate init error: %v", err)
	}
	defer m.Close()

	switch {
	case *down:
		err = m.Down()
	case *steps != 0:
		err = m.Steps(*steps)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration error: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Printf("done (no version recorded)")
		return
	}
	log.Printf("done: version=%d dirty=%v", version, dirty)
}
