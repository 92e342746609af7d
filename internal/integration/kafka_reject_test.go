//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testRejectTopic = "test-accident-rejects"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("accident-dashboard-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck // test

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close() //nolint:errcheck // test

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestRejectWriterPublishes indexes a store with bad timestamps and checks
// that every exclusion arrives on the reject topic.
func TestRejectWriterPublishes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRejectTopic)

	store := domain.NewStore([]domain.Record{
		{Row: 2, IncidentDatetime: "2020-01-10 12:00:00"},
		{Row: 3, IncidentDatetime: ""},
		{Row: 4, IncidentDatetime: "31/31/2020"},
	})
	idx := domain.NewIndex(store, domain.NewTimestampParser(nil, time.UTC))
	require.Len(t, idx.Excluded(), 2)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaRejectTopic: testRejectTopic}
	writer := kafka.NewRejectWriter(cfg, "integration", discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	n, err := writer.Publish(ctx, idx.Excluded())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testRejectTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = reader.Close() })

	rows := make([]int, 0, n)
	for range n {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from reject topic")

		var report kafka.RejectReport
		require.NoError(t, json.Unmarshal(msg.Value, &report))
		assert.Equal(t, "integration", report.Source)
		assert.Equal(t, fmt.Sprint(report.Row), string(msg.Key))
		rows = append(rows, report.Row)
	}
	assert.ElementsMatch(t, []int{3, 4}, rows)
}
