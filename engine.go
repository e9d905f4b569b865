package swd

// Engine drives one Command's per-bit state machine (spec.md §4.B). It
// holds no state of its own beyond configuration -- the execution
// cursor lives in the Command, so a single Engine can step any number of
// commands over their lifetime, one falling SWCLK edge at a time.
type Engine struct {
	// VerifyReadParity enables the optional even-parity check on READ
	// data left as an open question in spec.md §9. Default false,
	// matching the reference implementation, which never checks it.
	VerifyReadParity bool
}

// parity returns the even-parity bit of v using the fold-xor trick
// specified in spec.md §4.B.
func parity(v uint32) uint8 {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	return uint8((uint32(0x6996) >> (v & 0xf)) & 1)
}

// Step advances cmd by one falling-edge tick against line. It returns
// done=true once the transaction has reached a terminal state, along
// with the status and data to publish into the command's result record.
// The caller (Bus) is responsible for writing those into the Results
// array and for not calling Step again on a command once done==true.
//
// The tick to run is found by looking cmd's cursor up in its Kind's
// Phase table, then dispatching on the resulting Phase.Kind through
// phaseSteps -- the table-driven transition spec.md §9 calls for, in
// place of a hand-rolled if/else chain over raw cycle numbers.
func (e *Engine) Step(cmd *Command, line LineDriver) (done bool, status StatusCode, data uint32) {
	table := phaseTable(cmd.Kind)
	if cmd.cycle >= len(table) {
		return true, StatusBus, 0
	}
	phase := table[cmd.cycle]
	done, status, data = phaseSteps[phase.Kind](e, cmd, line, phase.Index)
	if !done {
		cmd.cycle++
	}
	return done, status, data
}

// phaseTable returns the ordered Phase sequence a transaction of the
// given Kind steps through. READ and WRITE share REQ/TRN0/ACK but
// diverge afterward: READ decodes ACK in place and folds its turnaround
// into the terminal tick, while WRITE defers the ACK decode to a
// standalone TRN1 tick ahead of shifting DATA out (spec.md §4.B).
func phaseTable(k Kind) []Phase {
	if k == KindWrite {
		return writePhases
	}
	return readPhases
}

var readPhases = buildPhaseTable(KindRead)
var writePhases = buildPhaseTable(KindWrite)

func buildPhaseTable(k Kind) []Phase {
	phases := make([]Phase, 0, cycleCount)
	for i := 0; i < 8; i++ {
		phases = append(phases, Phase{PhaseReq, i})
	}
	phases = append(phases, Phase{PhaseTrn0, 0})
	for i := 0; i < 3; i++ {
		phases = append(phases, Phase{PhaseAck, i})
	}
	if k == KindWrite {
		phases = append(phases, Phase{PhaseTrn1, 0})
	}
	for i := 0; i < 32; i++ {
		phases = append(phases, Phase{PhaseData, i})
	}
	phases = append(phases, Phase{PhaseParity, 0})
	if k == KindRead {
		phases = append(phases, Phase{PhaseTrn1, 0})
	}
	return phases
}

// phaseStep is the pure step function for one Phase.Kind: given the
// bit index within that phase, it drives or samples one tick and
// reports whether the transaction has reached a terminal state.
type phaseStep func(e *Engine, cmd *Command, line LineDriver, index int) (done bool, status StatusCode, data uint32)

// phaseSteps is the table phaseSteps[phase.Kind] that Step dispatches
// through; each entry handles both READ and WRITE, branching on
// cmd.Kind only where the two genuinely differ.
var phaseSteps = [...]phaseStep{
	PhaseReq:    stepPhaseReq,
	PhaseTrn0:   stepPhaseTrn0,
	PhaseAck:    stepPhaseAck,
	PhaseTrn1:   stepPhaseTrn1,
	PhaseData:   stepPhaseData,
	PhaseParity: stepPhaseParity,
}

func stepPhaseReq(e *Engine, cmd *Command, line LineDriver, index int) (bool, StatusCode, uint32) {
	line.SetDioDirection(DirOut)
	line.SetDio(bitLevel(cmd.Request, index))
	return false, 0, 0
}

func stepPhaseTrn0(e *Engine, cmd *Command, line LineDriver, index int) (bool, StatusCode, uint32) {
	line.SetDioDirection(DirIn)
	cmd.ackBits = 0
	return false, 0, 0
}

// stepPhaseAck samples one ACK bit. READ decodes as soon as the third
// bit lands, since nothing else follows before DATA; WRITE defers
// decoding to the Trn1 tick that comes after all three bits are in.
func stepPhaseAck(e *Engine, cmd *Command, line LineDriver, index int) (bool, StatusCode, uint32) {
	if line.ReadDio() == High {
		cmd.ackBits |= 1 << uint(index)
	}
	if index == 2 && cmd.Kind == KindRead {
		st, abort := decodeAck(cmd.ackBits)
		if abort {
			return true, st, 0
		}
		cmd.Data = 0
	}
	return false, 0, 0
}

// stepPhaseTrn1 reacquires SWDIO for driving. For WRITE this is also
// where the deferred ACK decode happens; for READ it is the terminal
// tick of the whole transaction.
func stepPhaseTrn1(e *Engine, cmd *Command, line LineDriver, index int) (bool, StatusCode, uint32) {
	line.SetDioDirection(DirOut)
	if cmd.Kind == KindWrite {
		st, abort := decodeAck(cmd.ackBits)
		if abort {
			return true, st, 0
		}
		return false, 0, 0
	}
	return true, StatusOK, cmd.Data
}

// stepPhaseData shifts DATA out (WRITE, LSB-first from cmd.Data) or
// samples it in (READ, accumulating into cmd.Data).
func stepPhaseData(e *Engine, cmd *Command, line LineDriver, index int) (bool, StatusCode, uint32) {
	if cmd.Kind == KindWrite {
		line.SetDio(bitLevel32(cmd.Data, index))
		return false, 0, 0
	}
	if line.ReadDio() == High {
		cmd.Data |= 1 << uint(index)
	}
	return false, 0, 0
}

// stepPhaseParity computes and drives the parity bit for WRITE,
// completing the transaction; for READ it samples the bit and, only
// when VerifyReadParity is set, checks it against cmd.Data.
func stepPhaseParity(e *Engine, cmd *Command, line LineDriver, index int) (bool, StatusCode, uint32) {
	if cmd.Kind == KindWrite {
		line.SetDio(Level(parity(cmd.Data) == 1))
		return true, StatusOK, 0
	}
	sampled := line.ReadDio()
	if e.VerifyReadParity {
		want := Level(parity(cmd.Data) == 1)
		if sampled != want {
			return true, StatusBus, 0
		}
	}
	return false, 0, 0
}

// bitLevel returns bit n (0 == LSB) of an 8-bit value as a Level.
func bitLevel(v uint8, n int) Level {
	return (v>>uint(n))&1 == 1
}

// bitLevel32 returns bit n (0 == LSB) of a 32-bit value as a Level.
func bitLevel32(v uint32, n int) Level {
	return (v>>uint(n))&1 == 1
}
