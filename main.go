package main

import (
	"log"

	"github.com/joho/godotenv"
	"yield/cmd"
	"yield/internal/config"
	"yield/internal/logger"
)

func main() {
	// Load environment variables; a missing .env file is fine
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		// Commands re-load config and surface the real error; here it
		// only means falling back to default logging.
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	cmd.Execute()
}
