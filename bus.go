package swd

import (
	"log/slog"
	"sync"
)

// BusState is the macro state machine driving the Line Driver through
// the Bit Engine (spec.md §3, §4.C).
type BusState uint8

const (
	StateIdle BusState = iota
	StateInit
	StateRun
	StateStop
)

func (s BusState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInit:
		return "INIT"
	case StateRun:
		return "RUN"
	case StateStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// initSeq is the JTAG-to-SWD switchover preamble: 56 ones, the 16-bit
// switchover key 0x79E7 (0x79 then 0xE7), then 56 more ones -- 16 bytes,
// 128 bits total (spec.md §4.C). Each byte is transmitted LSB-first; see
// DESIGN.md for why this departs from the reference C's bit order.
var initSeq = []byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0x79, 0xE7,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// stopSeq is the idle-high cooldown emitted before returning to IDLE:
// at least 8 clocks (spec.md §4.C).
var stopSeq = []byte{0xFF}

// Bus is the macro state machine (Bus Controller, spec.md §4.C). It is
// advanced one SWCLK edge at a time by RisingEdge/FallingEdge, mirroring
// the two interrupt sources (timer overflow, channel match) of the
// reference firmware (spec.md §9). It owns current-command lifetime:
// a Command is moved out of the Queue into an internal slot for the
// duration of its transaction, matching spec.md §9's "Current-command
// lifecycle becomes an owned value moved between queue slot and engine".
type Bus struct {
	logger *slog.Logger

	mu      sync.Mutex
	state   BusState
	counter int
	current Command

	line    LineDriver
	queue   *Queue
	results *Results
	engine  Engine
}

// NewBus wires a Bus Controller to its Line Driver, Command Queue and
// Results array. logger may be nil, in which case slog.Default() is used.
func NewBus(line LineDriver, queue *Queue, results *Results, engine Engine, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		logger:  logger.With("component", "bus"),
		line:    line,
		queue:   queue,
		results: results,
		engine:  engine,
	}
	b.line.SetClk(High)
	b.line.SetDioDirection(DirIn)
	return b
}

// State returns the current macro state. Safe for concurrent use.
func (b *Bus) State() BusState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RisingEdge performs the macro-state bookkeeping that happens on the
// rising edge of SWCLK: driving the clock high (except while IDLE, per
// invariant I4) and detecting IDLE -> INIT entry.
func (b *Bus) RisingEdge() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateIdle:
		// SWCLK stays high while idle; the timer may keep running for
		// scheduling but the line itself must not toggle.
		if !b.queue.Empty() {
			b.counter = 0
			b.state = StateInit
			b.logger.Debug("leaving idle", "reason", "queue non-empty")
		}
	case StateInit, StateRun, StateStop:
		b.line.SetClk(High)
	}
}

// FallingEdge performs the per-bit work: emitting one preamble/cooldown
// bit during INIT/STOP, or advancing the Bit Engine by one tick during
// RUN (spec.md §4.B). SWCLK is lowered here for every state but IDLE.
func (b *Bus) FallingEdge() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateIdle:
		b.line.SetDioDirection(DirIn)

	case StateInit:
		b.line.SetClk(Low)
		b.emitBit(initSeq, b.counter)
		b.counter++
		if b.counter >= len(initSeq)*8 {
			b.enterRunOrStop()
		}

	case StateRun:
		b.line.SetClk(Low)
		done, status, data := b.engine.Step(&b.current, b.line)
		if done {
			b.results.Slot(b.current.Slot).complete(status, data)
			b.logger.Debug("command complete", "slot", b.current.Slot, "status", status)
			b.enterRunOrStop()
		}

	case StateStop:
		b.line.SetClk(Low)
		b.emitBit(stopSeq, b.counter)
		b.counter++
		if b.counter >= len(stopSeq)*8 {
			b.state = StateIdle
			// SWCLK must sit high while idle (invariant I4, spec.md
			// §4.C); RisingEdge's StateIdle case never drives the
			// clock, so the STOP->IDLE transition has to re-assert it
			// itself rather than leaving it at the low level FallingEdge
			// just drove for the final stop bit.
			b.line.SetClk(High)
			b.logger.Debug("returned to idle")
		}
	}
}

// enterRunOrStop dequeues the next command and stays in RUN, or moves to
// STOP when the queue has drained. Called with mu held, from both the
// INIT->RUN entry point and RUN's own completion handling, matching
// spec.md §4.C's "After the last bit, dequeue one command ... if
// dequeue fails, transition to STOP" and "[RUN] On empty queue or
// failure, transition to STOP".
func (b *Bus) enterRunOrStop() {
	if cmd, ok := b.queue.TryPop(); ok {
		b.current = cmd
		b.state = StateRun
		return
	}
	b.counter = 0
	b.state = StateStop
}

// emitBit drives SWDIO to bit `index` of seq (0 == LSB of seq[0]).
func (b *Bus) emitBit(seq []byte, index int) {
	if index == 0 {
		b.line.SetDioDirection(DirOut)
	}
	byteIdx := index / 8
	bitIdx := index % 8
	b.line.SetDio(bitLevel(seq[byteIdx], bitIdx))
}

// resetPulseCycles is the raw reset length used by Reset: "at minimum
// 50 SWCLK cycles with SWDIO high" per ARM ADIv5, independent of the
// full switchover sequence emitted by INIT.
const resetPulseCycles = 50

// Reset drives a raw all-ones pulse train directly, bypassing the
// Queue and Bus Controller state machine. It requires the bus to be
// IDLE, so it can never interleave with an in-flight transaction.
func (b *Bus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateIdle {
		return ErrBusBusy
	}
	b.line.SetDioDirection(DirOut)
	for i := 0; i < resetPulseCycles; i++ {
		b.line.SetClk(High)
		b.line.SetDio(High)
		b.line.SetClk(Low)
	}
	b.line.SetDioDirection(DirIn)
	b.line.SetClk(High)
	return nil
}
