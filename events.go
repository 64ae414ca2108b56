package fresh

// Observer receives Value lifecycle events. Implementations must be safe
// for concurrent use; events are delivered synchronously from the goroutine
// that produced them.
type Observer interface {
	On(eventData EventData)
}

// Event represents a Value event type.
type Event int

const (
	// EventHit is emitted when the installed value passed the freshness check
	// and was returned without a fetch.
	EventHit Event = iota
	// EventMiss is emitted when a refresh cycle decides to fetch, either
	// because nothing is installed yet or because the value went stale.
	EventMiss
	// EventShared is emitted when a caller joined a refresh cycle started by
	// another caller instead of starting its own.
	EventShared
	// EventFetched is emitted when a fetched value has been installed.
	EventFetched
	// EventError is emitted when a refresh cycle failed, either in the
	// freshness check or in the fetch.
	EventError
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventHit:
		return "hit"
	case EventMiss:
		return "miss"
	case EventShared:
		return "shared"
	case EventFetched:
		return "fetched"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// EventData carries the details of a Value event.
type EventData struct {
	Event Event
	// Name is the Value's name, see WithName.
	Name string
	// Err is set for EventError.
	Err error
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(EventData)

// On calls f(eventData).
func (f ObserverFunc) On(eventData EventData) { f(eventData) }
