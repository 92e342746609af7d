package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// RejectReport is the message body published for one excluded record.
type RejectReport struct {
	Row        int       `json:"row"`
	Raw        string    `json:"incident_datetime"`
	Reason     string    `json:"reason"`
	Source     string    `json:"source"`
	ReportedAt time.Time `json:"reported_at"`
}

// RejectWriter publishes excluded records to the reject topic.
type RejectWriter struct {
	writer messageWriter
	source string
	logger *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewRejectWriter creates a Kafka producer for the configured reject topic.
// source names the dataset the exclusions came from and is carried in every
// report.
func NewRejectWriter(cfg *config.Config, source string, logger *slog.Logger) *RejectWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRejectTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &RejectWriter{writer: w, source: source, logger: logger}
}

// Publish serializes and publishes all exclusions in a single WriteMessages
// call. It returns the number of reports written.
func (w *RejectWriter) Publish(ctx context.Context, excluded []domain.Exclusion) (int, error) {
	if len(excluded) == 0 {
		return 0, nil
	}
	now := domain.Now()
	msgs := make([]kafkago.Message, len(excluded))
	for i := range excluded {
		msg, err := serializeToMessage(excluded[i], w.source, now)
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish rejects: %w", err)
	}
	w.logger.InfoContext(ctx, "excluded records published", "count", len(msgs))
	return len(msgs), nil
}

func (w *RejectWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Exclusion into a Kafka message keyed by the
// source row.
func serializeToMessage(ex domain.Exclusion, source string, reportedAt time.Time) (kafkago.Message, error) {
	report := RejectReport{
		Row:        ex.Row,
		Raw:        ex.Raw,
		Reason:     ex.Error(),
		Source:     source,
		ReportedAt: reportedAt.UTC(),
	}
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reject report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(ex.Row)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "reason", Value: []byte("unparseable_timestamp")},
			{Key: "reported_at", Value: []byte(report.ReportedAt.Format(time.RFC3339))},
		},
	}, nil
}
