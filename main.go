package main

import (
	"log"
	"os"

	"boxout/audit"
	"boxout/collect"
	"boxout/config"
	"boxout/db"
	"boxout/server"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Fatalln(err)
	}
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		log.Fatalf("failed to create '%s' folder: %v", config.DataDir, err)
	}

	errLog := audit.NewErrorLog(config.ErrorLogFile)
	skipped := audit.NewSkippedLog(config.SkippedFile)

	if err := db.SetupDatabase(); err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	if err := db.ValidateMigrations(); err != nil {
		log.Fatalf("migration validation failed: %v", err)
	}

	if *config.ServeFlag {
		log.Fatalln(server.Run(config.ListenAddr))
	}

	log.Println("starting NBA career stats collection...")
	c := collect.New(config.CollectionPolicy, collect.NewAPIFetcher(), collect.NewDBStore(), errLog, skipped)
	if err := c.Run(); err != nil {
		if logErr := errLog.System(err.Error()); logErr != nil {
			log.Println(logErr)
		}
		log.Fatalf("fatal error, see %s for details: %v", config.ErrorLogFile, err)
	}
	log.Println("finished collecting NBA career stats")
}
