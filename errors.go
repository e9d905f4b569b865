package swd

import "errors"

// Sentinel errors returned by the Submission API and Bus Controller
// (spec.md §4.E, §4.F).
var (
	// ErrQueueFull is returned by BeginRead/BeginWrite when the Command
	// Queue has no free slot (spec.md §8 scenario 3).
	ErrQueueFull = errors.New("swd: command queue full")
	// ErrSlotBusy names the case of a BEGIN request that targets a
	// result slot that is not yet Done (spec.md §4.F, §8 scenario 4).
	// Nothing in this module returns it: usbdevice.Transport reports
	// that case as a STALL.
	ErrSlotBusy = errors.New("swd: result slot still in use")
	// ErrInvalidSlot is returned for a slot index outside NumSlots. It
	// can never actually occur for a uint8 index against NumSlots==256,
	// but is kept for callers that derive a slot from a wider integer.
	ErrInvalidSlot = errors.New("swd: invalid result slot")
	// ErrNotRunning names the case of an operation that requires the
	// Adaptor's Run loop to be active. Nothing in this module returns it.
	ErrNotRunning = errors.New("swd: bus controller not running")
	// ErrBusBusy is returned by LineReset when the Bus Controller is not
	// IDLE.
	ErrBusBusy = errors.New("swd: bus not idle")
)
