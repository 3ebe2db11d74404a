package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"shopsync/internal/config"
	"shopsync/internal/extractor"
	"shopsync/internal/ingest"
)

// Publisher hands extraction output to the raw-products topic. The API
// publishes here instead of ingesting inline so extraction and ingestion
// scale independently.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers),
			Topic:        cfg.RawTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Publisher) PublishExtraction(ctx context.Context, userID string, record *extractor.Record) error {
	event := RawProductEvent{
		UserID:     userID,
		Platform:   record.Platform,
		SourceURL:  record.URL,
		ExternalID: record.ExternalID,
		Record:     ingest.RawRecord(record.AsRaw()),
		Timestamp:  time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.ExternalID),
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
