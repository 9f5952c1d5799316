// Seeds a demo business with two locations, a few products and their ledger
// rows, so the transfer flow can be exercised against a fresh database.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const defaultMySQLDSN = "root:root@tcp(localhost:3306)/medpos?parseTime=true"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = defaultMySQLDSN
	}

	ctx := context.Background()

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	mainLocation := uuid.NewString()
	branchLocation := uuid.NewString()
	log.Printf("main location:   %s", mainLocation)
	log.Printf("branch location: %s", branchLocation)

	quantities := []int{100, 250, 40}
	now := time.Now()

	for _, qty := range quantities {
		productID := uuid.NewString()
		_, err := db.ExecContext(ctx, `
			INSERT INTO inventory (id, product_id, location_id, quantity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), productID, mainLocation, qty, now, now,
		)
		if err != nil {
			log.Fatalf("failed to seed inventory: %v", err)
		}
		log.Printf("seeded product %s with %d units at main location", productID, qty)
	}

	log.Println("done")
}
