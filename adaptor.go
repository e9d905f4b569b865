package swd

import (
	"context"
	"log/slog"
	"time"
)

// DefaultHalfPeriod is the nominal reference tick rate: roughly one
// SWCLK transition (half-cycle) every several hundred system-clock
// ticks on the original hardware (spec.md §6 "Bit rate"). On a
// host-simulated Adaptor this is simply the Go timer resolution, tuned
// low enough that the slowest turnaround still meets ADIv5 timing.
const DefaultHalfPeriod = 2 * time.Microsecond

// Adaptor wires the Command Queue, Bus Controller and Results array
// into the Submission API (spec.md §4.E) and owns the background loop
// that stands in for the timer ISR. It is the single owned driver value
// spec.md §9 calls for: the foreground (USB) side only ever holds a
// non-owning handle that calls BeginRead/BeginWrite/Results.
type Adaptor struct {
	logger  *slog.Logger
	queue   *Queue
	results *Results
	bus     *Bus

	halfPeriod time.Duration
}

// Config bundles the pieces an Adaptor needs beyond its LineDriver.
type Config struct {
	// HalfPeriod is the interval between successive SWCLK edges. Zero
	// selects DefaultHalfPeriod.
	HalfPeriod time.Duration
	// VerifyReadParity is forwarded to the Engine; see its doc comment.
	VerifyReadParity bool
	// Logger receives component logs; nil selects slog.Default().
	Logger *slog.Logger
}

// NewAdaptor builds an Adaptor around the given LineDriver. The returned
// Adaptor owns a fresh Queue and Results array.
func NewAdaptor(line LineDriver, cfg Config) *Adaptor {
	if cfg.HalfPeriod <= 0 {
		cfg.HalfPeriod = DefaultHalfPeriod
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queue := &Queue{}
	results := NewResults()
	engine := Engine{VerifyReadParity: cfg.VerifyReadParity}
	bus := NewBus(line, queue, results, engine, logger)

	return &Adaptor{
		logger:     logger.With("component", "adaptor"),
		queue:      queue,
		results:    results,
		bus:        bus,
		halfPeriod: cfg.HalfPeriod,
	}
}

// Results returns the shared result-record array, for the USB Transport
// layer (or tests) to read slot status from.
func (a *Adaptor) Results() *Results {
	return a.results
}

// State reports the Bus Controller's current macro state.
func (a *Adaptor) State() BusState {
	return a.bus.State()
}

// BeginRead enqueues a READ command targeting result slot `slot`. It
// never blocks: if the queue is full it returns ErrQueueFull
// immediately, matching the non-blocking contract of spec.md §4.E. The
// caller -- the USB Transport in production, or a test directly -- is
// responsible for having already observed Results().Slot(slot).Done()
// before calling this (spec.md §4.E, §4.F).
func (a *Adaptor) BeginRead(request uint8, slot uint8) error {
	if !a.queue.TryPush(NewReadCommand(request, slot)) {
		return ErrQueueFull
	}
	return nil
}

// BeginWrite enqueues a WRITE command targeting result slot `slot`.
// See BeginRead for the non-blocking and ownership contract.
func (a *Adaptor) BeginWrite(request uint8, data uint32, slot uint8) error {
	if !a.queue.TryPush(NewWriteCommand(request, data, slot)) {
		return ErrQueueFull
	}
	return nil
}

// LineReset drives a raw 50-cycle all-ones reset pulse independent of
// the full JTAG-to-SWD switchover sequence, for resynchronizing a target
// whose SWD state machine has desynced (spec.md §5 SPEC_FULL "Line-reset
// helper", grounded on original_source's raw reset primitive). It
// requires the bus to be IDLE and returns ErrBusBusy otherwise.
func (a *Adaptor) LineReset() error {
	return a.bus.Reset()
}

// Run drives the Bus Controller's rising/falling edge pair at the
// configured half-period until ctx is done. This stands in for the
// timer ISR of the reference firmware (spec.md §9): exactly one
// goroutine should call Run for a given Adaptor, mirroring the
// single-ISR-context assumption the concurrency model depends on.
func (a *Adaptor) Run(ctx context.Context) error {
	a.logger.Info("starting bus controller")
	ticker := time.NewTicker(a.halfPeriod)
	defer ticker.Stop()

	rising := true
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stopping bus controller")
			return ctx.Err()
		case <-ticker.C:
			if rising {
				a.bus.RisingEdge()
			} else {
				a.bus.FallingEdge()
			}
			rising = !rising
		}
	}
}
