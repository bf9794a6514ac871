//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"enrollment/internal/enrollment/events"
	"enrollment/internal/enrollment/models"
	"enrollment/internal/platform/config"
	"enrollment/internal/platform/kafka"
	"enrollment/pkg/testutil/containers"
)

func TestKafkaSinkProducesDecisions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "admission-decisions-test"
	producer, err := kafka.New(ctx, config.KafkaConfig{Brokers: []string{broker.Broker}, Topic: topic})
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, topic, 1))

	sink := events.NewKafkaSink(producer, topic)
	event := events.FromDecision(models.Accepted(models.Apply("alice", "net-101")), "req-9", time.Now().UTC())
	require.NoError(t, sink.Write(ctx, []events.Event{event}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event.ID, got.ID)
	require.Equal(t, "net-101", string(records[0].Key))
	require.Equal(t, models.OutcomeAccepted, got.Outcome)
}
