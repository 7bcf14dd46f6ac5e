package messenger

import (
	"testing"
	"time"

	"github.com/amqp-messenger/messenger/internal/buffer"
	"github.com/stretchr/testify/require"
)

func TestMessageMarshalUnmarshalRoundTrip(t *testing.T) {
	m := &Message{
		Address: "amqp://host/orders",
		Header: Header{
			Durable:       true,
			Priority:      4,
			TTL:           5 * time.Second,
			FirstAcquirer: true,
			DeliveryCount: 2,
		},
		Properties: Properties{
			MessageID:     "msg-1",
			To:            "orders",
			Subject:       "order placed",
			ReplyTo:       "amqp://host/replies",
			CorrelationID: "corr-1",
			ContentType:   "application/json",
			CreationTime:  time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
			GroupSequence: 3,
		},
		ApplicationProperties: map[string]interface{}{"retry": uint32(1)},
		Body:                  "hello",
	}

	wr := buffer.New(nil)
	require.NoError(t, m.Marshal(wr))

	var got Message
	r := buffer.New(wr.Bytes())
	require.NoError(t, got.Unmarshal(r))

	require.Equal(t, m.Header.Durable, got.Header.Durable)
	require.Equal(t, m.Header.Priority, got.Header.Priority)
	require.Equal(t, m.Header.TTL, got.Header.TTL)
	require.Equal(t, m.Header.FirstAcquirer, got.Header.FirstAcquirer)
	require.Equal(t, m.Header.DeliveryCount, got.Header.DeliveryCount)

	require.Equal(t, m.Properties.MessageID, got.Properties.MessageID)
	require.Equal(t, m.Properties.To, got.Properties.To)
	require.Equal(t, m.Properties.Subject, got.Properties.Subject)
	require.Equal(t, m.Properties.ReplyTo, got.Properties.ReplyTo)
	require.Equal(t, m.Properties.CorrelationID, got.Properties.CorrelationID)
	require.Equal(t, m.Properties.ContentType, got.Properties.ContentType)
	require.True(t, m.Properties.CreationTime.Equal(got.Properties.CreationTime))
	require.Equal(t, m.Properties.GroupSequence, got.Properties.GroupSequence)

	require.Equal(t, m.ApplicationProperties, got.ApplicationProperties)
	require.Equal(t, m.Body, got.Body)
}

func TestMessageMarshalUnmarshalEmptyMessage(t *testing.T) {
	m := &Message{}
	wr := buffer.New(nil)
	require.NoError(t, m.Marshal(wr))

	var got Message
	r := buffer.New(wr.Bytes())
	require.NoError(t, got.Unmarshal(r))

	require.Equal(t, Header{}, got.Header)
	require.Equal(t, Properties{}, got.Properties)
	require.Nil(t, got.Body)
}
