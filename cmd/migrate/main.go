// Command migrate applies the booking schema migrations to PostgreSQL.
//
//	migrate -cmd up        schema and demo data
//	migrate -cmd schema    schema only
//	migrate -cmd down      drop everything
//	migrate -cmd to -version 1
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	cmd := flag.String("cmd", "schema", "one of: schema, up, down, to, list")
	version := flag.Uint("version", 0, "target version for -cmd to")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log, _ := logger.New(logger.Options{Service: "migrate", Level: cfg.Log.Level})
	defer log.Close()

	if *cmd == "list" {
		files, err := fs.Glob(migrations.Files(), "sql/*.up.sql")
		if err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return
	}

	cfg.Database.Driver = database.DriverPostgres
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	runner := migrations.NewRunner(db, migrations.MigrateOptions{SeedData: *cmd == "up"}, log)
	defer runner.Close()

	switch *cmd {
	case "schema", "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		err = runner.MigrateTo(*version)
	default:
		err = fmt.Errorf("unknown command %q", *cmd)
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", fmt.Sprintf("%s done", *cmd))
}
