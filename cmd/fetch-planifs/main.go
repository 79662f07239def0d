package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/InfoNeigeMTL/neige-backend/internal/db"
	"github.com/InfoNeigeMTL/neige-backend/internal/geobase"
	"github.com/InfoNeigeMTL/neige-backend/internal/planifneige"
	"github.com/InfoNeigeMTL/neige-backend/internal/snow"
)

// fileConfig is the optional YAML file behind -config. Flags win over it.
type fileConfig struct {
	Batch    snow.BatchConfig `yaml:"batch"`
	Geobase  string           `yaml:"geobase"`
	FromDate string           `yaml:"from_date"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		geobaseSrc = flag.String("geobase", "", "geobase GeoJSON URL or file (default: Montreal Open Data)")
		fromDate   = flag.String("from", "", "fetch planifications updated since this time (2006-01-02T15:04:05, default: 24h ago)")
		chunkSize  = flag.Int("chunk", 0, "records per chunk")
		workers    = flag.Int("workers", 0, "parallel chunk workers")
		serialize  = flag.Bool("serialize", false, "take a per-street advisory lock while reconciling")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")

	cfg := snow.BatchConfig{}
	src := geobase.DefaultURL
	since := time.Now().Add(-24 * time.Hour)

	if *configPath != "" {
		fc, err := loadFileConfig(*configPath)
		if err != nil {
			log.Fatalf("[fetch-planifs] read config: %v", err)
		}
		cfg = fc.Batch
		if fc.Geobase != "" {
			src = fc.Geobase
		}
		if fc.FromDate != "" {
			t, err := time.Parse(planifneige.SoapTimeLayout, fc.FromDate)
			if err != nil {
				log.Fatalf("[fetch-planifs] bad from_date in config: %v", err)
			}
			since = t
		}
	}
	if *chunkSize > 0 {
		cfg.ChunkSize = *chunkSize
	}
	if *workers > 0 {
		cfg.MaxWorkers = *workers
	}
	if *serialize {
		cfg.SerializePerStreet = true
	}
	cfg.ApplyDefaults()
	if *geobaseSrc != "" {
		src = *geobaseSrc
	}
	if *fromDate != "" {
		t, err := time.Parse(planifneige.SoapTimeLayout, *fromDate)
		if err != nil {
			log.Fatalf("[fetch-planifs] bad -from value: %v", err)
		}
		since = t
	}

	soapCfg := planifneige.LoadFromEnv()
	if err := soapCfg.Validate(); err != nil {
		log.Fatalf("[fetch-planifs] config: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("[fetch-planifs] DATABASE_URL is required")
	}
	conn, err := db.Connect(dsn)
	if err != nil {
		log.Fatalf("[fetch-planifs] database connection failed: %v", err)
	}
	defer db.Close(conn)
	if err := snow.Init(conn); err != nil {
		log.Fatalf("[fetch-planifs] migration failed: %v", err)
	}

	ctx := context.Background()

	dir, err := geobase.Load(ctx, src)
	if err != nil {
		log.Fatalf("[fetch-planifs] geobase: %v", err)
	}
	log.Printf("[fetch-planifs] geobase loaded with %d street sides", dir.Len())

	client := planifneige.NewClient(soapCfg)
	records, err := client.GetPlanificationsForDate(ctx, since)
	if err != nil {
		log.Fatalf("[fetch-planifs] upstream: %v", err)
	}
	log.Printf("[fetch-planifs] fetched %d planifications since %s", len(records), since.Format(planifneige.SoapTimeLayout))

	run := snow.IngestRun{
		ID:        uuid.New(),
		FromDate:  since,
		StartedAt: time.Now(),
	}

	coord := snow.NewCoordinator(cfg, snow.DBProcessFunc(conn, dir, cfg.SerializePerStreet))
	summary := coord.Run(ctx, records)

	run.FinishedAt = time.Now()
	run.RecordCount = len(records)
	run.ChunkCount = (len(records) + cfg.ChunkSize - 1) / cfg.ChunkSize
	run.Total = summary.Total
	run.StreetsUpserted = summary.StreetsUpserted
	run.StreetsSkipped = summary.StreetsSkipped
	run.CurrentUpserted = summary.CurrentUpserted
	run.MissingID = summary.MissingID
	run.Failed = summary.Failed
	if err := snow.RecordRun(ctx, conn, &run); err != nil {
		log.Printf("[fetch-planifs] failed to record run: %v", err)
	}

	log.Printf("[fetch-planifs] done: total=%d streets_upserted=%d streets_skipped=%d current_upserted=%d missing_id=%d failed=%d",
		summary.Total, summary.StreetsUpserted, summary.StreetsSkipped, summary.CurrentUpserted, summary.MissingID, summary.Failed)
}
