package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-rollback] [up|down|version]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}
	if *rollback {
		command = "down"
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
		dsn = cfg.DatabaseURL()
	}

	m, err := database.NewMigrator(dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		// One step, like the rollback of a single migration.
		err = m.Steps(-1)
	case "version":
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration %s failed: %v", command, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("No migrations applied.")
	case err != nil:
		log.Fatalf("failed to read schema version: %v", err)
	default:
		fmt.Printf("Schema version %d (dirty: %t)\n", version, dirty)
	}
}
