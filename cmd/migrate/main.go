package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS run (
	id BIGSERIAL PRIMARY KEY,
	entity TEXT NOT NULL,
	snapshot TIMESTAMPTZ NOT NULL,
	fail_stage TEXT
);

CREATE INDEX IF NOT EXISTS idx_run_entity_snapshot ON run (entity, snapshot);
CREATE INDEX IF NOT EXISTS idx_run_snapshot ON run (snapshot);
`

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		databaseURL = os.Args[1]
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate <database_url> (or set DATABASE_URL)")
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	log.Println("run table schema applied")
}
