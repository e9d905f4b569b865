package swd

// Kind distinguishes a READ from a WRITE command (spec.md §3).
type Kind uint8

const (
	KindRead Kind = iota
	KindWrite
)

func (k Kind) String() string {
	if k == KindWrite {
		return "WRITE"
	}
	return "READ"
}

// cycleCount is the number of falling-edge ticks a transaction occupies,
// REQ through the final turnaround or parity bit (spec.md §4.B).
const cycleCount = 46

// PhaseKind names one of the bit-level stages a transaction passes
// through (spec.md §9: "a tagged variant Phase ∈ {Req(i), Trn0, Ack(i),
// Data(i), Parity, Trn1}"). Trn1 is shared between READ's final
// turnaround-and-complete tick and WRITE's mid-transaction
// turnaround-and-decode tick; which behavior applies is resolved by the
// Command's Kind, not by PhaseKind itself.
type PhaseKind uint8

const (
	PhaseReq PhaseKind = iota
	PhaseTrn0
	PhaseAck
	PhaseTrn1
	PhaseData
	PhaseParity
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseReq:
		return "Req"
	case PhaseTrn0:
		return "Trn0"
	case PhaseAck:
		return "Ack"
	case PhaseTrn1:
		return "Trn1"
	case PhaseData:
		return "Data"
	case PhaseParity:
		return "Parity"
	default:
		return "Unknown"
	}
}

// Phase is one tick's position in a transaction: a Kind plus, for the
// phases that carry one, the bit index within that phase (0 == first
// bit of the phase). Index is unused by Trn0/Trn1/Parity.
type Phase struct {
	Kind  PhaseKind
	Index int
}

// Command is the value enqueued by the Submission API and carried
// through the bit engine. It never owns its result; Slot is an opaque
// index into the shared Results array (spec.md §3, §9 "Back references
// from Command to Result").
type Command struct {
	Kind    Kind
	Request uint8
	Data    uint32
	Slot    uint8

	// cycle indexes into this Command's Kind-specific Phase table
	// (readPhases/writePhases in engine.go); it is the "state" of
	// spec.md §3, re-expressed as a lookup key rather than a bit
	// counter interpreted by range comparisons.
	cycle int
	// ackBits accumulates the 3 sampled ACK bits LSB-first ("state_data").
	ackBits uint8
}

// Phase returns the Phase this Command currently occupies, i.e. the one
// that the next call to Engine.Step will advance through.
func (c *Command) Phase() Phase {
	table := phaseTable(c.Kind)
	if c.cycle >= len(table) {
		return Phase{Kind: PhaseParity, Index: -1}
	}
	return table[c.cycle]
}

// NewReadCommand constructs a READ Command targeting result slot i.
func NewReadCommand(request uint8, slot uint8) Command {
	return Command{Kind: KindRead, Request: request, Slot: slot}
}

// NewWriteCommand constructs a WRITE Command targeting result slot i.
func NewWriteCommand(request uint8, data uint32, slot uint8) Command {
	return Command{Kind: KindWrite, Request: request, Data: data, Slot: slot}
}
