package mirror

// EventKind identifies a step of the traversal.
type EventKind int

const (
	EventListed EventKind = iota
	EventListingFailed
	EventDirCreated
	EventFileWritten
	EventFileFailed
	EventSkipped
)

func (k EventKind) String() string {
	switch k {
	case EventListed:
		return "listed"
	case EventListingFailed:
		return "listing-failed"
	case EventDirCreated:
		return "dir"
	case EventFileWritten:
		return "file"
	case EventFileFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	}
	return "unknown"
}

// Event is reported to an Observer as the traversal progresses.
type Event struct {
	Kind    EventKind
	Remote  string
	Local   string
	Size    int64
	Entries int // EventListed only
	Reason  string
	Err     error
}

// Observer receives traversal events. The engine never calls Observe
// concurrently.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
