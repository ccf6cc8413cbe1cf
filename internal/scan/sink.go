package scan

// Sink receives the output of a sweep. Methods are called with the session
// lock held and must return quickly.
type Sink interface {
	Reveal(scanID string, r Reveal)
	Complete(scanID string, s Summary)
	Cancelled(scanID string)
}

type NopSink struct{}

func (NopSink) Reveal(string, Reveal) {}
func (NopSink) Complete(string, Summary) {}
func (NopSink) Cancelled(string) {}

// EventKind tags an Event.
type EventKind string

const (
	EventReveal    EventKind = "reveal"
	EventComplete  EventKind = "complete"
	EventCancelled EventKind = "cancelled"
)

// Event is the channel form of a sink call.
type Event struct {
	Kind    EventKind `json:"kind"`
	ScanID  string    `json:"scan_id"`
	Reveal  *Reveal   `json:"reveal,omitempty"`
	Summary *Summary  `json:"summary,omitempty"`
}

// ChannelSink turns sink calls into events. Complete and Cancelled close the
// channel. Use one ChannelSink per scan.
type ChannelSink struct {
	ch     chan Event
	closed bool
}

// NewChannelSink buffers enough events for a full sweep, so sends never block
// the session.
func NewChannelSink() *ChannelSink {
	return &ChannelSink{ch: make(chan Event, MaxCandidates+1)}
}

func (c *ChannelSink) Events() <-chan Event { return c.ch }

func (c *ChannelSink) Reveal(scanID string, r Reveal) {
	c.send(Event{Kind: EventReveal, ScanID: scanID, Reveal: &r})
}

func (c *ChannelSink) Complete(scanID string, s Summary) {
	c.send(Event{Kind: EventComplete, ScanID: scanID, Summary: &s})
	c.close()
}

func (c *ChannelSink) Cancelled(scanID string) {
	c.send(Event{Kind: EventCancelled, ScanID: scanID})
	c.close()
}

func (c *ChannelSink) send(e Event) {
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
	}
}

func (c *ChannelSink) close() {
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
