package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/InfoNeigeMTL/neige-backend/internal/db"
	"github.com/InfoNeigeMTL/neige-backend/internal/middleware"
	"github.com/InfoNeigeMTL/neige-backend/internal/snow"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "neige-backend is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("[main] DATABASE_URL is required")
	}
	conn, err := db.Connect(dsn)
	if err != nil {
		log.Fatalf("[main] database connection failed: %v", err)
	}
	if err := snow.Init(conn); err != nil {
		log.Fatalf("[main] migration failed: %v", err)
	}

	api := &snow.API{DB: conn, CacheTTL: 30 * time.Second}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("[main] invalid REDIS_URL: %v", err)
		}
		api.Cache = redis.NewClient(opts)
		log.Println("[main] response cache enabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(middleware.OriginsFromEnv()...))
	r.Get("/", RootHandler)

	r.Mount("/snow", api.SetupRoutes())

	log.Printf("[main] listening on port :%s", port)
	if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
		log.Fatalf("[main] server stopped: %v", err)
	}
}
