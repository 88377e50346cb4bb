package event

import "sync"

// Direction tags a log entry as authored locally or received from the model.
type Direction int

const (
	Outbound Direction = iota // sent by the console
	Inbound                   // received from the remote peer
)

func (d Direction) String() string {
	if d == Outbound {
		return "out"
	}
	return "in"
}

// Entry is one record in the event log.
type Entry struct {
	Dir   Direction
	Event *Event
}

// Log is the ordered, most-recent-first event log for one session. Entries
// are only ever prepended; Reset empties it when a new session's channel
// opens. An optional update hook lets the console re-render after a change.
type Log struct {
	mu       sync.Mutex
	entries  []Entry
	onUpdate func()
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// OnUpdate registers a hook invoked after every Prepend and Reset. The hook
// runs outside the log's lock, so it may call Entries.
func (l *Log) OnUpdate(fn func()) {
	l.mu.Lock()
	l.onUpdate = fn
	l.mu.Unlock()
}

// Prepend appends the entry at the front of the log (most recent first).
func (l *Log) Prepend(dir Direction, ev *Event) {
	l.mu.Lock()
	l.entries = append([]Entry{{Dir: dir, Event: ev}}, l.entries...)
	fn := l.onUpdate
	l.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Reset empties the log.
func (l *Log) Reset() {
	l.mu.Lock()
	l.entries = nil
	fn := l.onUpdate
	l.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Entries returns a snapshot copy of the log, most recent first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
