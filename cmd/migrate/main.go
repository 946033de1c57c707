package main

import (
	"log"
	"os"

	"sloth-wake-be/internal/model"
	"sloth-wake-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Extensions
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Printf("Warn: Failed to create uuid-ossp extension: %v. Continuing...", err)
	}

	// 4. Tables
	if err := db.AutoMigrate(&model.WakeHistory{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Views
	postMigrationSQL := []string{
		`CREATE OR REPLACE VIEW wake_session_outcomes AS
		 SELECT s.session_id, s.occurred_at AS started_at, e.occurred_at AS ended_at,
		        e.released, e.failed_attempts, e.nudge_count, e.proof_captured
		 FROM wake_history s
		 LEFT JOIN wake_history e ON e.session_id = s.session_id AND e.event = 'end'
		 WHERE s.event = 'start';`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
