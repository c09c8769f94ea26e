package streamforwarder

import (
	"fmt"
	"strings"
)

type EventName string

const (
	EventInsert EventName = "INSERT"
	EventRemove EventName = "REMOVE"
	EventModify EventName = "MODIFY"
)

func DefaultEventNames() []EventName {
	return []EventName{EventInsert, EventRemove, EventModify}
}

func (n EventName) valid() bool {
	switch n {
	case EventInsert, EventRemove, EventModify:
		return true
	}
	return false
}

// CanonicalEventName uppercases a raw event name as found on a stream record.
func CanonicalEventName(name string) EventName {
	return EventName(strings.ToUpper(strings.TrimSpace(name)))
}

// NormalizeEventNames returns the canonical set of accepted event names. A nil or empty list means every
// event name is accepted.
func NormalizeEventNames(names []string) ([]EventName, error) {
	if len(names) == 0 {
		return DefaultEventNames(), nil
	}
	seen := map[EventName]bool{}
	result := make([]EventName, 0, len(names))
	for _, raw := range names {
		name := CanonicalEventName(raw)
		if !name.valid() {
			return nil, &ConfigurationError{
				Field:  "eventNames",
				Reason: fmt.Sprintf("%q is not one of %s", raw, joinEventNames(DefaultEventNames())),
			}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	return result, nil
}

func joinEventNames(names []EventName) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = string(name)
	}
	return strings.Join(parts, ",")
}
