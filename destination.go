package streamforwarder

import (
	"strings"
)

// DestinationConfig is the caller-supplied description of one queue target. EventNames defaults to every
// event name when left empty.
type DestinationConfig struct {
	Endpoint   string   `json:"endpoint" validate:"required"`
	EventNames []string `json:"eventNames,omitempty"`
}

// Destination is a validated DestinationConfig. It is read-only after construction.
type Destination struct {
	endpoint   string
	eventNames []EventName
	accepted   map[EventName]bool
}

func NewDestination(config DestinationConfig) (*Destination, error) {
	config.Endpoint = strings.TrimSpace(config.Endpoint)
	if err := getValidator().Struct(&config); err != nil {
		return nil, &ConfigurationError{Field: "endpoint", Reason: "is required"}
	}
	names, err := NormalizeEventNames(config.EventNames)
	if err != nil {
		return nil, err
	}
	accepted := make(map[EventName]bool, len(names))
	for _, name := range names {
		accepted[name] = true
	}
	return &Destination{endpoint: config.Endpoint, eventNames: names, accepted: accepted}, nil
}

func (d *Destination) Endpoint() string {
	return d.endpoint
}

func (d *Destination) EventNames() []EventName {
	names := make([]EventName, len(d.eventNames))
	copy(names, d.eventNames)
	return names
}

func (d *Destination) Accepts(name EventName) bool {
	return d.accepted[name]
}
