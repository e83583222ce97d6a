package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/geo-impact-monitor/internal/models"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	rec := models.MatchRecord{
		PointID:     "8.8.8.8",
		Status:      models.StatusAssessed,
		IsAtRisk:    true,
		Hazards:     []string{"Tornado Warning (Extreme)"},
		CheckMethod: models.CheckMethodPointAPI,
	}

	msg, err := serializeToMessage("run-1", rec, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("8.8.8.8"), msg.Key)
	assert.Contains(t, string(msg.Value), `"check_method":"point-api"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestKafkaSink_Publish(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{writer: w, now: time.Now}

	err := s.Publish(context.Background(), "run-1", []models.MatchRecord{{PointID: "a"}, {PointID: "b"}})
	require.NoError(t, err)
	assert.Len(t, w.msgs, 2)

	require.NoError(t, s.Publish(context.Background(), "run-2", nil))
	assert.Len(t, w.msgs, 2)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_PublishError(t *testing.T) {
	s := &KafkaSink{writer: &fakeWriter{err: errors.New("broker down")}, now: time.Now}

	err := s.Publish(context.Background(), "run-1", []models.MatchRecord{{PointID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
