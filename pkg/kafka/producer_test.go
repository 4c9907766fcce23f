package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
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

func TestPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.Publish(context.Background(), "alerts", []byte("ABC"), map[string]int{"score": 70})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "alerts", w.msgs[0].Topic)
	assert.Equal(t, []byte("ABC"), w.msgs[0].Key)
	assert.JSONEq(t, `{"score":70}`, string(w.msgs[0].Value))
}

func TestPublishBatchHeadersAndRawValues(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(context.Background(), "alerts", []Message{
		{Key: []byte("A"), Value: "raw", Headers: map[string]string{"kind": "scan"}},
		{Key: []byte("B"), Value: []byte("bytes")},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "raw", string(w.msgs[0].Value))
	assert.Equal(t, []kafka.Header{{Key: "kind", Value: []byte("scan")}}, w.msgs[0].Headers)
	assert.Nil(t, w.msgs[1].Headers)

	require.NoError(t, p.PublishBatch(context.Background(), "alerts", nil))
	assert.Len(t, w.msgs, 2)
}

func TestPublishWrapsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, "gzip")
	err := p.PublishMessage(context.Background(), "logs", []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logs")
	assert.ErrorIs(t, err, w.err)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}
