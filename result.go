package swd

import "sync/atomic"

// NumSlots is the size of the preallocated result-record array, indexed
// by the 8-bit command index the host supplies over USB (spec.md §3).
const NumSlots = 256

// ResultRecord is owned by the host while Done()==true and by the device
// otherwise; ownership transfer is indicated purely by the done field's
// ordering relative to result/data (spec.md §3 invariant I2, §5).
//
// done, result and data are each backed by an atomic word. Go's memory
// model gives atomic operations a single total order consistent with
// each goroutine's program order ("happens before" via synchronizes
// before, https://go.dev/ref/mem#atomic); writing result and data before
// done, and reading done before result and data, is therefore sufficient
// to prevent torn publication without an explicit fence, which stands
// in for the compiler-barrier + DMB the original interrupt-driven C
// uses on real hardware.
type ResultRecord struct {
	done   atomic.Uint32
	result atomic.Int32
	data   atomic.Uint32
}

// Done reports whether the record has reached a terminal state.
func (r *ResultRecord) Done() bool {
	return r.done.Load() != 0
}

// Peek reads the record's current status and data. If Done() is false
// the returned status/data are undefined, matching the wire contract of
// the STATUS request (spec.md §4.F).
func (r *ResultRecord) Peek() (status StatusCode, data uint32, done bool) {
	done = r.Done()
	return StatusCode(r.result.Load()), r.data.Load(), done
}

// reset clears the done flag, transferring ownership back to the device.
// Only the foreground (USB) context may call this, and only once it has
// verified the record is currently done (spec.md §4.F, §5).
func (r *ResultRecord) reset() {
	r.done.Store(0)
}

// claim atomically transfers ownership from host to device, failing if
// the slot is not currently Done -- i.e. a previous transaction on this
// slot hasn't been collected yet (spec.md §4.F, §8 scenario 4: BEGIN on
// a busy slot must STALL rather than silently overwrite it).
func (r *ResultRecord) claim() bool {
	return r.done.CompareAndSwap(1, 0)
}

// release restores the done flag after a claim whose Submission API
// call failed (e.g. ErrQueueFull), so the slot isn't stranded as
// permanently busy.
func (r *ResultRecord) release() {
	r.done.Store(1)
}

// complete writes result and data, then done, in that order -- see the
// type doc comment for why this ordering is sufficient (invariant I2).
func (r *ResultRecord) complete(status StatusCode, data uint32) {
	r.result.Store(int32(status))
	r.data.Store(data)
	r.done.Store(1)
}

// Results is the preallocated slot array backing the Submission API and
// the USB status request. The zero value has every slot pending
// (done==0); NewResults marks every slot done, i.e. free, matching
// power-on reset of a device with no pending work.
type Results struct {
	slots [NumSlots]ResultRecord
}

// NewResults returns a Results array with every slot initially owned by
// the host (done==1), ready for first use.
func NewResults() *Results {
	res := &Results{}
	for i := range res.slots {
		res.slots[i].done.Store(1)
	}
	return res
}

// Slot returns the record for index i; it never returns nil.
// NumSlots is 256 so every uint8 value is always in range; the signature
// takes uint8 to make that guarantee visible at call sites.
func (r *Results) Slot(i uint8) *ResultRecord {
	return &r.slots[i]
}

// Claim attempts to take ownership of slot i away from the host,
// reporting false if the slot is still busy with a prior transaction.
func (r *Results) Claim(i uint8) bool {
	return r.slots[i].claim()
}

// Release gives slot i back to the host after a failed Claim-guarded
// submission, so the slot doesn't become permanently unusable.
func (r *Results) Release(i uint8) {
	r.slots[i].release()
}
