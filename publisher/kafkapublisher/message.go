package kafkapublisher

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"

	"github.com/AntonStoeckl/library-loans/core"
)

const (
	// HeaderEventType carries the loan event type, so consumers can route without decoding the value.
	HeaderEventType = "event-type"

	// HeaderContentType describes the encoding of the value.
	HeaderContentType = "content-type"

	contentTypeJSON = "application/json"
)

// ErrMappingToMessageFailed is returned when a loan event can't be encoded.
var ErrMappingToMessageFailed = errors.New("mapping to kafka message failed for loan event")

// Envelope is the JSON value of every published message.
type Envelope struct {
	EventType  string              `json:"event_type"`
	CopyID     string              `json:"copy_id"`
	OccurredAt string              `json:"occurred_at"`
	Payload    jsoniter.RawMessage `json:"payload"`
}

// MessageFrom encodes the event. The copy ID is the key, so all events of one copy stay in order on one partition.
func MessageFrom(event core.LoanEvent) (kafka.Message, error) {
	payloadJSON, err := jsoniter.ConfigFastest.Marshal(event)
	if err != nil {
		return kafka.Message{}, errors.Join(ErrMappingToMessageFailed, err)
	}

	copyID := event.ConcernsCopy().String()
	occurredAt := event.HasOccurredAt().UTC()

	value, err := jsoniter.ConfigFastest.Marshal(Envelope{
		EventType:  event.IsEventType(),
		CopyID:     copyID,
		OccurredAt: occurredAt.Format("2006-01-02T15:04:05.000000Z07:00"),
		Payload:    payloadJSON,
	})
	if err != nil {
		return kafka.Message{}, errors.Join(ErrMappingToMessageFailed, err)
	}

	return kafka.Message{
		Key:   []byte(copyID),
		Value: value,
		Time:  occurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.IsEventType())},
			{Key: HeaderContentType, Value: []byte(contentTypeJSON)},
		},
	}, nil
}
