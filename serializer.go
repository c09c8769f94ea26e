package streamforwarder

// BodySerializer turns a record into the body published to every destination of that record.
type BodySerializer func(record *Record) ([]byte, error)

// RawBodySerializer publishes the record exactly as it was received.
func RawBodySerializer(record *Record) ([]byte, error) {
	return record.MarshalJSON()
}

func serialize(serializer BodySerializer, record *Record) ([]byte, error) {
	body, err := serializer(record)
	if err != nil {
		return nil, &SerializationError{RecordID: record.ID(), Err: err}
	}
	return body, nil
}
