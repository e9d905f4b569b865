// Package usbdevice implements the device side of the USB control-only
// wire protocol between a host and the Adaptor (spec.md §4.F,
// original_source/shared/usb_types.h). It never touches a real USB
// stack itself; Transport.Handle is meant to be called from whatever
// gadget/descriptor library a given board's firmware uses for its
// control-endpoint setup-packet callback.
package usbdevice

import "encoding/binary"

// Vendor ID, product ID and descriptor strings the host matches a
// device against (original_source/host/src/Programmer.cpp).
const (
	VendorID  = 0x16C0
	ProductID = 0x05DC

	Manufacturer = "kevincuzner.com"
	Product      = "SWD Adaptor"
)

// Control request codes, carried in bRequest with bmRequestType
// selecting direction (original_source/shared/usb_types.h: the 16-bit
// codes there, USB_SWD_BEGIN_READ 0x2000 / USB_SWD_BEGIN_WRITE 0x2100 /
// USB_SWD_READ_STATUS 0x2280, are bRequest<<8, so bRequest 0x20 is
// BEGIN READ and 0x21 is BEGIN WRITE; spec.md §4.F's control-request
// table states the same mapping).
const (
	ReqBeginRead  = 0x20
	ReqBeginWrite = 0x21
	ReqStatus     = 0x22
)

// readReq is the 1-byte host-to-device payload of a BEGIN READ request.
type readReq struct {
	Request uint8
}

// writeReq is the 5-byte host-to-device payload of a BEGIN WRITE
// request: a 1-byte request header followed by a little-endian 32-bit
// data word, matching the original C struct's natural layout.
type writeReq struct {
	Request uint8
	Data    uint32
}

// resultWire is the 6-byte device-to-host payload of a STATUS
// response: done flag, signed result code, little-endian 32-bit data.
type resultWire struct {
	Done   uint8
	Result int8
	Data   uint32
}

func decodeReadReq(data []byte) (readReq, bool) {
	if len(data) < 1 {
		return readReq{}, false
	}
	return readReq{Request: data[0]}, true
}

func decodeWriteReq(data []byte) (writeReq, bool) {
	if len(data) < 5 {
		return writeReq{}, false
	}
	return writeReq{
		Request: data[0],
		Data:    binary.LittleEndian.Uint32(data[1:5]),
	}, true
}

func (r resultWire) encode() []byte {
	buf := make([]byte, 6)
	buf[0] = r.Done
	buf[1] = byte(r.Result)
	binary.LittleEndian.PutUint32(buf[2:6], r.Data)
	return buf
}
