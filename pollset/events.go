package pollset

// EventMask is a bitmask of socket readiness events. The numeric values
// follow the poll(2) encoding, so a mask round-trips through the native
// pollfd array unchanged on hosts whose readiness primitive is the real poll.
type EventMask int16

const (
	EventRead     EventMask = 0x0001 // data available for reading
	EventPriority EventMask = 0x0002 // urgent out-of-band data
	EventWrite    EventMask = 0x0004 // writing will not block

	// result-only bits, never valid in an interest mask
	EventErr  EventMask = 0x0008
	EventHup  EventMask = 0x0010
	EventNval EventMask = 0x0020
)

// conditionEvents are forwarded to callbacks whenever the primitive reports
// them, whether or not the caller asked. A transport has to see ERR/HUP/NVAL
// to decide to tear itself down.
const conditionEvents = EventErr | EventHup | EventNval
