package streamforwarder

// Message is a single publish request. Every destination of a record receives the same Body.
type Message struct {
	RecordID  string
	EventName EventName
	Body      []byte
}

func newMessage(record *Record, body []byte) *Message {
	return &Message{
		RecordID:  record.ID(),
		EventName: CanonicalEventName(record.EventName()),
		Body:      body,
	}
}
