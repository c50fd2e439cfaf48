package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesEntry(t *testing.T) {
	writer := &stubWriter{}
	pub := &Publisher{writer: writer}

	pid := "p1"
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := pub.Publish(context.Background(), changelog.Entry{
		Kind:      changelog.KindActivityMoved,
		ProjectID: &pid,
		Summary:   "moved",
		Version:   9,
		CreatedAt: at,
	})
	require.NoError(t, err)
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	require.Equal(t, "project:p1", string(msg.Key))
	require.Equal(t, "kind", msg.Headers[0].Key)

	var decoded Message
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, changelog.KindActivityMoved, decoded.Kind)
	require.Equal(t, uint64(9), decoded.Version)
	require.True(t, at.Equal(decoded.OccurredAt))

	require.NoError(t, pub.Close())
	require.True(t, writer.closed)
}

func TestPublishPartitionKeys(t *testing.T) {
	tid := "t1"
	require.Equal(t, "template:t1", partitionKey(changelog.Entry{TemplateID: &tid}))
	require.Equal(t, "store", partitionKey(changelog.Entry{}))
}

func TestPublishWriteError(t *testing.T) {
	pub := &Publisher{writer: &stubWriter{err: errors.New("leader not available")}}
	err := pub.Publish(context.Background(), changelog.Entry{Kind: changelog.KindStoreImported})
	require.Error(t, err)
}

func TestNewPublisherDefaultsTopic(t *testing.T) {
	pub := NewPublisher([]string{"localhost:9092"}, "")
	w, ok := pub.writer.(*kafka.Writer)
	require.True(t, ok)
	require.Equal(t, DefaultTopic, w.Topic)
}
