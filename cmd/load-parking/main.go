package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/InfoNeigeMTL/neige-backend/internal/db"
	"github.com/InfoNeigeMTL/neige-backend/internal/parking"
)

func main() {
	var (
		url       = flag.String("url", parking.DefaultURL, "parking GeoJSON URL")
		batchSize = flag.Int("batch", 100, "records per upsert batch")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("[load-parking] DATABASE_URL is required")
	}
	conn, err := db.Connect(dsn)
	if err != nil {
		log.Fatalf("[load-parking] database connection failed: %v", err)
	}
	defer db.Close(conn)
	if err := parking.Init(conn); err != nil {
		log.Fatalf("[load-parking] migration failed: %v", err)
	}

	ctx := context.Background()

	fc, err := parking.Fetch(ctx, *url)
	if err != nil {
		log.Fatalf("[load-parking] fetch: %v", err)
	}
	log.Printf("[load-parking] fetched %d features", len(fc.Features))

	res, err := parking.Load(ctx, conn, fc, *batchSize)
	if err != nil {
		log.Fatalf("[load-parking] load: %v", err)
	}

	log.Printf("[load-parking] done: processed=%d upserted=%d skipped=%d errors=%d",
		res.Processed, res.Upserted, res.Skipped, res.Errors)
}
