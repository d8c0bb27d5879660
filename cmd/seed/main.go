package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"snakemon/backend/internal/config"
	"snakemon/backend/internal/logging"
	"snakemon/backend/internal/repository"
	"snakemon/backend/internal/services"
	"snakemon/backend/pkg/models"
)

// Seeds a handful of demo workflow runs so the dashboard has data during
// development. Log lines go through the real ingestion pipeline, so the
// resulting statuses are what the reporters would have produced.
func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresWorkflowStore(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	ingest := services.NewIngestService(store, logger)

	seeds := []struct {
		name  string
		lines []string
	}{
		{"rna-seq alignment", []string{
			"Building DAG of jobs...",
			"4 of 10 steps (40%) done",
		}},
		{"variant calling", []string{
			"Building DAG of jobs...",
			"5 of 5 steps (100.0%) done",
		}},
		{"genome assembly", []string{
			"Building DAG of jobs...",
			"Error in rule assemble:",
		}},
	}

	for _, seed := range seeds {
		wf, err := store.Create(ctx)
		if err != nil {
			log.Fatalf("Failed to create workflow: %v", err)
		}

		name := seed.name
		if _, err := store.UpdateMetadata(ctx, wf.ID, models.WorkflowPatch{
			Name: models.StringField{Set: true, Value: &name},
		}); err != nil {
			log.Fatalf("Failed to name workflow: %v", err)
		}

		for _, line := range seed.lines {
			ack := ingest.Ingest(ctx, wf.ID, time.Now().UTC().Format(time.ANSIC), line)
			logger.Debug("seeded %q for %s: %s", line, wf.ID, ack.Status)
		}
		logger.Info("Seeded workflow %q, id=%s", seed.name, wf.ID)
	}
	logger.Info("Seeding complete!")
}
