package events

import (
	"context"
	"testing"
	"time"

	"courtcal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEventAssignsIDAndUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, loc)
	a := NewEvent(models.EventBookingConfirmed, "bk-1", nil, now)
	b := NewEvent(models.EventBookingConfirmed, "bk-1", nil, now)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, time.UTC, a.OccurredAt.Location())
	assert.True(t, now.Equal(a.OccurredAt))
}

func TestRecorderAndLogPublisher(t *testing.T) {
	rec := &Recorder{}
	var pub Publisher = rec
	require.NoError(t, pub.Publish(context.Background(), NewEvent(models.EventDeadlineCreated, "dl-1", nil, time.Now())))
	require.NoError(t, pub.Publish(context.Background(), NewEvent(models.EventDeadlineExtended, "dl-1", nil, time.Now())))
	assert.Equal(t, []string{models.EventDeadlineCreated, models.EventDeadlineExtended}, rec.Types())

	assert.NoError(t, LogPublisher{Logger: zap.NewNop()}.Publish(context.Background(), rec.Events()[0]))
}

func TestHeaderCarrierOverwrites(t *testing.T) {
	c := &headerCarrier{headers: []kafka.Header{{Key: "event_id", Value: []byte("1")}}}
	c.Set("traceparent", "00-a-b-01")
	c.Set("traceparent", "00-c-d-01")
	assert.Equal(t, "00-c-d-01", c.Get("traceparent"))
	assert.ElementsMatch(t, []string{"event_id", "traceparent"}, c.Keys())
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitBrokers(" kafka-1:9092, ,kafka-2:9092 "))
	assert.Empty(t, SplitBrokers(""))
}
