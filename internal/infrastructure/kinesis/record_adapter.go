// Package kinesis feeds event store records that arrive through the DynamoDB
// to Kinesis stream integration into the projector and the notifier.
package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/infrastructure/store"
)

var errMissingFields = errors.New("missing required fields")

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams format)
// to a store.Event. Records other than INSERT yield nil.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("unmarshal DynamoDB record: %w", err)
	}

	// events are append-only; MODIFY and REMOVE only come from maintenance
	if dynamoDBRecord.EventName != "INSERT" {
		return nil, nil
	}
	return convertDynamoDBImage(dynamoDBRecord.Change.NewImage)
}

// convertDynamoDBImage reads an item written by store.DynamoEventStore.
func convertDynamoDBImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, errors.New("DynamoDB image is nil")
	}

	event := &store.Event{}
	if v, ok := image["id"]; ok {
		event.ID = v.String()
	}
	if v, ok := image["aggregate_id"]; ok {
		event.AggregateID = v.String()
	}
	if v, ok := image["aggregate_type"]; ok {
		event.AggregateType = v.String()
	}
	if v, ok := image["event_type"]; ok {
		event.EventType = v.String()
	}
	if v, ok := image["data"]; ok {
		event.Data = json.RawMessage(v.String())
	}
	if v, ok := image["created_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		event.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("parse version: %w", err)
		}
		event.Version = int(version)
	}

	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("%w: id=%q aggregate_id=%q event_type=%q",
			errMissingFields, event.ID, event.AggregateID, event.EventType)
	}
	return event, nil
}

// EventHandler applies one event.
type EventHandler func(ctx context.Context, event store.Event) error

// Process runs handler over the batch in order. It stops at the first record
// that cannot be converted or handled and reports it as the batch item
// failure, so Lambda retries from that record and per-aggregate order holds.
func Process(ctx context.Context, batch events.KinesisEvent, handler EventHandler, logger *zap.Logger) events.KinesisEventResponse {
	if logger == nil {
		logger = zap.NewNop()
	}

	for i, record := range batch.Records {
		failed := func(msg string, err error) events.KinesisEventResponse {
			logger.Error(msg,
				zap.String("record", record.EventID),
				zap.String("sequence", record.Kinesis.SequenceNumber),
				zap.Int("skipped", len(batch.Records)-i-1),
				zap.Error(err),
			)
			return events.KinesisEventResponse{BatchItemFailures: []events.KinesisBatchItemFailure{
				{ItemIdentifier: record.Kinesis.SequenceNumber},
			}}
		}

		event, err := ConvertFromKinesisRecord(record)
		if err != nil {
			return failed("convert record", err)
		}
		if event == nil {
			continue
		}
		if err := handler(ctx, *event); err != nil {
			return failed("handle event", err)
		}
		logger.Debug("event processed",
			zap.String("event_type", event.EventType),
			zap.String("aggregate_id", event.AggregateID),
			zap.Int("version", event.Version),
		)
	}

	logger.Info("batch processed", zap.Int("records", len(batch.Records)))
	return events.KinesisEventResponse{BatchItemFailures: []events.KinesisBatchItemFailure{}}
}
