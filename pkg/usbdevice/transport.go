package usbdevice

import (
	"log/slog"

	swd "github.com/kcuzner/swdadaptor"
)

// RequestType bits, checked against the setup packet's bmRequestType
// (vendor, device-recipient) before a request reaches Handle.
const (
	RequestTypeOut = 0x00 // host-to-device
	RequestTypeIn  = 0x80 // device-to-host
)

// Transport decodes the three vendor control requests of spec.md §4.F
// against an Adaptor, implementing the STALL discipline of
// original_source/shared/usb_types.h: "An attempt to begin a request
// using an index whose swd_request_t.done is FALSE will result in a
// STALL".
type Transport struct {
	logger  *slog.Logger
	adaptor *swd.Adaptor
}

// New wraps adaptor in a Transport. logger may be nil.
func New(adaptor *swd.Adaptor, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{logger: logger.With("component", "usbdevice"), adaptor: adaptor}
}

// Handle decodes one control transfer's setup fields plus payload (the
// data stage, if any) and returns the response payload for an IN
// transfer, or nil for an OUT transfer. stall reports that the caller's
// gadget stack should STALL the endpoint instead of ACKing.
//
// wIndex is the 8-bit command/result slot index from spec.md §4.F; the
// low byte is used and the high byte (always zero on the wire) is
// ignored here since it is already folded away by the time a real
// gadget driver hands this function a plain uint8.
func (t *Transport) Handle(bRequest uint8, slot uint8, data []byte) (response []byte, stall bool) {
	switch bRequest {
	case ReqBeginRead:
		req, ok := decodeReadReq(data)
		if !ok {
			return nil, true
		}
		return nil, !t.begin(slot, func() error { return t.adaptor.BeginRead(req.Request, slot) })

	case ReqBeginWrite:
		req, ok := decodeWriteReq(data)
		if !ok {
			return nil, true
		}
		return nil, !t.begin(slot, func() error { return t.adaptor.BeginWrite(req.Request, req.Data, slot) })

	case ReqStatus:
		status, value, done := t.adaptor.Results().Slot(slot).Peek()
		resultDone := uint8(0)
		if done {
			resultDone = 1
		}
		return resultWire{Done: resultDone, Result: int8(status), Data: value}.encode(), false

	default:
		return nil, true
	}
}

// begin implements the claim/submit/rollback sequence shared by BEGIN
// READ and BEGIN WRITE: claim the slot (STALL if it's still busy),
// submit to the Adaptor, and give the slot back if submission itself
// failed (ErrQueueFull) so it isn't left permanently unusable.
func (t *Transport) begin(slot uint8, submit func() error) (ok bool) {
	results := t.adaptor.Results()
	if !results.Claim(slot) {
		t.logger.Debug("stalling begin request", "slot", slot, "reason", "slot busy")
		return false
	}
	if err := submit(); err != nil {
		results.Release(slot)
		t.logger.Debug("stalling begin request", "slot", slot, "reason", err)
		return false
	}
	return true
}
