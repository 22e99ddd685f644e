package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/rushvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/rushvote/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("a migration name is required.")
	}
	migrationName := os.Args[1]

	cfg, err := config.Load("migrations", os.Args[2:])
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DBConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if migrationName == "all" {
		if err := postgres.ApplyUp(ctx, db); err != nil {
			log.Fatal(err)
		}
		fmt.Println("All up migrations executed successfully.")
		return
	}

	fileContent, err := postgres.MigrationContent(migrationName)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, string(fileContent)); err != nil {
		log.Fatalf("Failed to execute SQL file: %v", err)
	}

	fmt.Println("Migration file executed successfully.")
}
