package streamforwarder

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// encodedRecord holds the fields the forwarder needs from a stream record. Everything else is kept as
// raw bytes and passed through untouched.
type encodedRecord struct {
	EventID   string          `json:"eventID,omitempty"`
	EventName string          `json:"eventName" validate:"required"`
	Change    json.RawMessage `json:"dynamodb,omitempty"`
}

// Record is one change-capture entry of a stream batch. It is immutable once decoded.
type Record struct {
	id        string
	eventName string
	raw       []byte
}

func (r *Record) ID() string {
	return r.id
}

// EventName returns the event name as it was found on the record, without canonicalisation.
func (r *Record) EventName() string {
	return r.eventName
}

// Decode unmarshals the full record into v, e.g. an events.DynamoDBEventRecord.
func (r *Record) Decode(v any) error {
	return json.Unmarshal(r.raw, v)
}

var validate = validator.New()

func getValidator() *validator.Validate {
	return validate
}

func (r *Record) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return nil, errors.New("record has no content")
	}
	return r.raw, nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var s encodedRecord
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if err := getValidator().Struct(&s); err != nil {
		return err
	}
	r.id = s.EventID
	r.eventName = s.EventName
	r.raw = bytes.Clone(data)
	return nil
}

// NewRecord builds a record in the stream's shape, with payload as its change section. It is mostly useful
// for replaying or testing batches.
func NewRecord(eventName string, payload any) (*Record, error) {
	s := encodedRecord{EventID: uuid.NewString(), EventName: eventName}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		s.Change = data
	}
	if err := getValidator().Struct(&s); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &Record{id: s.EventID, eventName: s.EventName, raw: raw}, nil
}

// Batch is the invocation payload delivered by the stream runtime.
type Batch struct {
	Records []*Record `json:"Records"`
}

// Split breaks the batch into batches of at most size records, preserving order.
func (b Batch) Split(size int) []Batch {
	if size < 1 {
		return []Batch{b}
	}
	return mapSlice(groupIntoBatches(b.Records, size), func(records []*Record) Batch {
		return Batch{Records: records}
	})
}
