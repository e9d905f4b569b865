// Package hostclient is the host-side mirror of pkg/usbdevice: it
// issues the same three vendor control transfers against a real
// adaptor over USB, grounded on original_source/host/src/Programmer.cpp
// (there built on libusb; here on github.com/google/gousb).
package hostclient

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/kcuzner/swdadaptor/pkg/usbdevice"
)

// ReqDPIDR is the 8-bit SWD request header for a DP read of DPIDR
// (address 0x0): start=1, APnDP=0, RnW=1, A[3:2]=00, parity over
// APnDP/RnW/A, stop=0, park=1 (ADIv5, spec.md §4.B). It's the request
// Connect uses to confirm the target answers after switchover.
const ReqDPIDR = 0xA5

// controlOutVendor and controlInVendor are the bmRequestType values for
// the adaptor's vendor, device-recipient control requests.
const (
	controlOutVendor = uint8(gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice)
	controlInVendor  = uint8(gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice)
)

// BeginRead issues a BEGIN READ control transfer. A STALL (surfaced by
// gousb as an error) means the slot is still busy with a prior
// transaction (spec.md §8 scenario 4).
func (c *Client) BeginRead(request uint8, slot uint8) error {
	payload := []byte{request}
	_, err := c.dev.Control(controlOutVendor, usbdevice.ReqBeginRead, 0, uint16(slot), payload)
	if err != nil {
		return fmt.Errorf("hostclient: begin read slot %d: %w", slot, err)
	}
	return nil
}

// BeginWrite issues a BEGIN WRITE control transfer.
func (c *Client) BeginWrite(request uint8, data uint32, slot uint8) error {
	payload := make([]byte, 5)
	payload[0] = request
	binary.LittleEndian.PutUint32(payload[1:], data)
	_, err := c.dev.Control(controlOutVendor, usbdevice.ReqBeginWrite, 0, uint16(slot), payload)
	if err != nil {
		return fmt.Errorf("hostclient: begin write slot %d: %w", slot, err)
	}
	return nil
}

// Status issues a STATUS control transfer and decodes the 6-byte
// result payload.
func (c *Client) Status(slot uint8) (status int8, data uint32, done bool, err error) {
	buf := make([]byte, 6)
	n, err := c.dev.Control(controlInVendor, usbdevice.ReqStatus, 0, uint16(slot), buf)
	if err != nil {
		return 0, 0, false, fmt.Errorf("hostclient: status slot %d: %w", slot, err)
	}
	if n < 6 {
		return 0, 0, false, fmt.Errorf("hostclient: status slot %d: short response (%d bytes)", slot, n)
	}
	return int8(buf[1]), binary.LittleEndian.Uint32(buf[2:6]), buf[0] != 0, nil
}

// WaitDone polls Status until the slot reports done, sleeping poll
// between attempts, or returns ctx.Err() if ctx is cancelled first.
func (c *Client) WaitDone(ctx context.Context, slot uint8, poll time.Duration) (status int8, data uint32, err error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		st, d, done, err := c.Status(slot)
		if err != nil {
			return 0, 0, err
		}
		if done {
			return st, d, nil
		}
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Connect issues the line-reset-equivalent switchover implicitly
// performed by the adaptor's own IDLE->INIT transition, then reads
// DPIDR on slot 0 to confirm the target answered, matching spec.md §5's
// supplemented "Connect sequence helper".
func (c *Client) Connect(ctx context.Context, poll time.Duration) (dpidr uint32, err error) {
	const slot = 0
	if err := c.BeginRead(ReqDPIDR, slot); err != nil {
		return 0, err
	}
	status, data, err := c.WaitDone(ctx, slot, poll)
	if err != nil {
		return 0, err
	}
	if status != 0 {
		return 0, fmt.Errorf("hostclient: connect: DPIDR read returned status %d", status)
	}
	return data, nil
}
