package snow

import (
	"context"
	"log"

	"github.com/InfoNeigeMTL/neige-backend/internal/geobase"
	"github.com/InfoNeigeMTL/neige-backend/internal/planifneige"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	// DefaultChunkSize is how many records one worker processes per chunk.
	DefaultChunkSize = 100

	// DefaultMaxWorkers is the default worker pool width.
	DefaultMaxWorkers = 5

	// MaxWorkersCeiling caps the pool so a big MAX_WORKERS value cannot
	// exhaust the database connection pool.
	MaxWorkersCeiling = 20
)

// BatchConfig tunes the batch coordinator.
type BatchConfig struct {
	ChunkSize          int  `yaml:"chunk_size"`
	MaxWorkers         int  `yaml:"max_workers"`
	SerializePerStreet bool `yaml:"serialize_per_street"`
}

// ApplyDefaults fills zero values and clamps the worker count.
func (c *BatchConfig) ApplyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.MaxWorkers > MaxWorkersCeiling {
		c.MaxWorkers = MaxWorkersCeiling
	}
}

// ProcessFunc reconciles one chunk and returns its summary.
type ProcessFunc func(ctx context.Context, chunk []planifneige.Planification) (Summary, error)

// Coordinator partitions a record batch into chunks and drives them through
// a bounded worker pool. Chunk failures are contained: a failed or panicking
// chunk contributes a zero-count summary and its siblings keep going.
type Coordinator struct {
	cfg     BatchConfig
	process ProcessFunc
}

// NewCoordinator builds a coordinator. cfg is defaulted and clamped.
func NewCoordinator(cfg BatchConfig, process ProcessFunc) *Coordinator {
	cfg.ApplyDefaults()
	return &Coordinator{cfg: cfg, process: process}
}

// Run reconciles all records and returns the aggregated run summary. No
// ordering is promised across chunks; per-identifier ordering inside the run
// does not matter because only the latest state code wins.
func (c *Coordinator) Run(ctx context.Context, records []planifneige.Planification) Summary {
	chunks := Chunk(records, c.cfg.ChunkSize)
	log.Printf("[snow] processing %d records in %d chunk(s), %d worker(s)",
		len(records), len(chunks), c.cfg.MaxWorkers)

	summaries := make([]Summary, len(chunks))

	g := new(errgroup.Group)
	g.SetLimit(c.cfg.MaxWorkers)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[snow] chunk %d/%d panicked: %v", i+1, len(chunks), r)
				}
			}()

			s, err := c.process(ctx, chunk)
			if err != nil {
				// Zero-count summary for this chunk; see Summary docs.
				log.Printf("[snow] chunk %d/%d failed: %v", i+1, len(chunks), err)
				return nil
			}
			summaries[i] = s
			log.Printf("[snow] chunk %d/%d done: total=%d streets=%d current=%d failed=%d",
				i+1, len(chunks), s.Total, s.StreetsUpserted, s.CurrentUpserted, s.Failed)
			return nil
		})
	}
	g.Wait()

	var run Summary
	for _, s := range summaries {
		run.Add(s)
	}
	return run
}

// Chunk splits records into fixed-size chunks; the last one may be short.
func Chunk(records []planifneige.Planification, size int) [][]planifneige.Planification {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]planifneige.Planification
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

// DBProcessFunc builds the production ProcessFunc: each chunk pins one
// connection from the pool for its whole lifetime and releases it on every
// exit path, then reconciles its records sequentially.
func DBProcessFunc(db *gorm.DB, directory *geobase.Directory, serializePerStreet bool) ProcessFunc {
	return func(ctx context.Context, chunk []planifneige.Planification) (Summary, error) {
		var s Summary
		err := db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
			engine := NewEngine(NewStore(conn), directory, serializePerStreet)
			s = engine.IngestBatch(ctx, chunk)
			return nil
		})
		if err != nil {
			return Summary{}, err
		}
		return s, nil
	}
}
