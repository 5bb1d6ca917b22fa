package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server"
)

func main() {
	devEnvironment := os.Getenv("DEV_ENVIRONMENT")
	var environmentFileName string
	if devEnvironment == "production" {
		environmentFileName = ".production.env"
	} else {
		environmentFileName = ".development.env"
	}

	// Load ENV from .env file. Values already set in the environment take precedence.
	if err := godotenv.Load(environmentFileName); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("Failed to load environment file \"%s\": %v", environmentFileName, err)
		}

		log.Printf("Environment file \"%s\" not found. Using the process environment only.", environmentFileName)
	}

	conf := domain.GetDefaultConfig()
	conf.CheckUsage()

	srv := server.NewServer(conf)

	// Blocking call.
	if err := srv.Serve(); err != nil {
		panic(err)
	}
}
