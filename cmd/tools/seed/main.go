// Seeds the development database with realistic page views and orders.
package main

import (
	"context"
	"flag"
	"log"

	"coursepulse/internal/config"
	"coursepulse/internal/database"
	"coursepulse/internal/logging"
	"coursepulse/internal/seeder"
)

func main() {
	visitors := flag.Int("visitors", 2000, "number of visitors to simulate")
	days := flag.Int("days", 30, "how many trailing days to spread visits over")
	flag.Parse()

	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	s := seeder.NewSeeder(dbManager.GetConnection(), logger, *visitors, *days)
	if err := s.Seed(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
