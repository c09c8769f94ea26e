package streamforwarder

// MessageFilter decides whether a serialized body is sent to the destination with the given endpoint.
type MessageFilter func(body []byte, endpoint string) (bool, error)

func acceptAll(_ []byte, _ string) (bool, error) {
	return true, nil
}
