package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	last   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "activity.logged", []byte("u-1"), []byte(`{}`)))
	require.Len(t, fw.last, 1)
	require.Equal(t, "activity.logged", fw.last[0].Topic)
	require.Equal(t, []byte("u-1"), fw.last[0].Key)

	require.NoError(t, p.Close())
	require.True(t, fw.closed)
}

func TestNewProducer_Close(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	require.NotNil(t, p)
	require.NoError(t, p.Close())
}
