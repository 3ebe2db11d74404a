package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"shopsync/internal/config"
	"shopsync/internal/ingest"
	"shopsync/internal/logger"
	"shopsync/internal/models"
	"shopsync/internal/store"
)

// RawProductEvent is one extracted record handed off for ingestion.
type RawProductEvent struct {
	UserID       string              `json:"user_id"`
	Platform     string              `json:"platform"`
	SourceURL    string              `json:"source_url"`
	ExternalID   string              `json:"external_id"`
	Record       ingest.RawRecord    `json:"record"`
	FieldMapping ingest.FieldMapping `json:"field_mapping,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// Worker consumes raw product records and feeds them through the ingestion
// engine, linking each imported product back to its origin.
type Worker struct {
	config  *config.Config
	logger  *logger.Logger
	reader  *kafka.Reader
	engine  *ingest.Engine
	sources *store.SourceStore
}

func New(cfg *config.Config, log *logger.Logger, engine *ingest.Engine, sources *store.SourceStore) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        cfg.ConsumerGroup,
		Topic:          cfg.RawTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:  cfg,
		logger:  log,
		reader:  reader,
		engine:  engine,
		sources: sources,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started, listening for raw products...")

	for {
		if ctx.Err() != nil {
			return
		}

		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		message, err := w.reader.ReadMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		var event RawProductEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			w.logger.Error("Failed to parse raw product event: %v", err)
			continue
		}

		if err := w.process(ctx, &event); err != nil {
			w.logger.Error("Failed to ingest raw product: %v", err)
			continue
		}

		w.logger.Debug("Raw product ingested: %s", event.ExternalID)
	}
}

func (w *Worker) process(ctx context.Context, event *RawProductEvent) error {
	product, warnings, err := w.engine.ImportOne(ctx, event.UserID, event.Record, event.FieldMapping)
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		w.logger.Warn("ingest warning on %s: %s: %s", event.ExternalID, warning.Field, warning.Message)
	}

	if event.ExternalID == "" || event.SourceURL == "" {
		return nil
	}
	return w.sources.Ensure(ctx, &models.ProductSource{
		ProductID:         product.ID,
		UserID:            event.UserID,
		SourcePlatform:    event.Platform,
		ExternalProductID: event.ExternalID,
		SourceURL:         event.SourceURL,
		SyncEnabled:       true,
	})
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
}
