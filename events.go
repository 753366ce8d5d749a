package framesignal

import "fmt"

// EventKind identifies a step of the decoder.
type EventKind int

const (
	// EventCandidate is emitted for every preamble found.
	EventCandidate EventKind = iota
	// EventRejected is emitted when a candidate fails; Err holds the cause.
	EventRejected
	// EventCorrected is emitted when Hamming decoding fixed at least one codeword.
	EventCorrected
	// EventDecoded is emitted once for the accepted package.
	EventDecoded
)

func (k EventKind) String() string {
	switch k {
	case EventCandidate:
		return "candidate"
	case EventRejected:
		return "rejected"
	case EventCorrected:
		return "corrected"
	case EventDecoded:
		return "decoded"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes one decoder step. Fields that do not apply to Kind are zero.
type Event struct {
	Err       error
	Kind      EventKind
	Offset    int // preamble offset in bits
	Size      int // declared payload size, once read
	Corrected int // codewords fixed by FEC
	Expected  uint16
	Actual    uint16
}

func (e Event) String() string {
	switch e.Kind {
	case EventCandidate:
		return fmt.Sprintf("candidate at bit %d", e.Offset)
	case EventRejected:
		return fmt.Sprintf("candidate at bit %d (size %d) rejected: %v", e.Offset, e.Size, e.Err)
	case EventCorrected:
		return fmt.Sprintf("candidate at bit %d: corrected %d codewords", e.Offset, e.Corrected)
	case EventDecoded:
		return fmt.Sprintf("decoded %d bytes at bit %d (checksum 0x%04X)", e.Size, e.Offset, e.Actual)
	default:
		return e.Kind.String()
	}
}

// DebugEvents returns an event hook that writes every event through Debugf.
func DebugEvents() func(Event) {
	return func(e Event) {
		Debugf("decode: %s", e)
	}
}

// ChainEvents returns a hook that forwards each event to every non-nil hook
// in order.
func ChainEvents(hooks ...func(Event)) func(Event) {
	var live []func(Event)
	for _, h := range hooks {
		if h != nil {
			live = append(live, h)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(e Event) {
		for _, h := range live {
			h(e)
		}
	}
}
