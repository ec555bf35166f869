package main

import (
	"log"

	"pos-terminal/config"
	"pos-terminal/internal/migrate"
	"pos-terminal/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migrate.Apply(db.GetDB().DB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Migrations applied")
}
