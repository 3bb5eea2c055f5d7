package publisher

import (
	"encoding/json"
	"fmt"

	"sjsage522/newsworker/internal/news"
)

// RecordField is the stream entry field holding one JSON encoded record
const RecordField = "record"

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish appends a message to the stream under the given field
	Publish(key string, message []byte) error

	// TrimStreams trims the stream to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// PublishRecords publishes every record in order and returns how many were sent
func PublishRecords(p Publisher, records []news.NewsRecord) (int, error) {
	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return i, fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		if err := p.Publish(RecordField, payload); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
