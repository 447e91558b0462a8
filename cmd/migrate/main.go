package main

import (
	"context" // Seeding context
	"flag"    // Command line flags

	"petshop/internal/config"     // Custom import path (Config)
	"petshop/internal/db"         // Custom import path (Database)
	"petshop/internal/repository" // Store used for seeding

	"github.com/sirupsen/logrus"
)

// Main entry point for migration
func main() {
	seed := flag.Bool("seed", false, "insert the demo catalog when the catalog is empty")
	flag.Parse()

	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	if cfg.DBDriver == "memory" {
		logrus.Fatal("nothing to migrate for DB_DRIVER=memory")
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatal(err)
	}
	if *seed {
		if err := db.Seed(context.Background(), repository.NewGormStore(gdb)); err != nil {
			logrus.Fatalf("seed failed: %v", err)
		}
	}
}
