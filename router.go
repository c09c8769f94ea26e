package streamforwarder

// route returns the destinations whose event names include the record's canonical event name, in
// configuration order.
func route(record *Record, destinations []*Destination) []*Destination {
	name := CanonicalEventName(record.EventName())
	return filter(destinations, func(d *Destination, _ int) bool {
		return d.Accepts(name)
	})
}
