package usbdevice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swd "github.com/kcuzner/swdadaptor"
	"github.com/kcuzner/swdadaptor/internal/lineio"
	"github.com/kcuzner/swdadaptor/pkg/usbdevice"
)

func newTransport(t *testing.T, ack uint8) (*usbdevice.Transport, *swd.Adaptor) {
	t.Helper()
	target := &lineio.Target{Ack: ack, ReadData: 0x11223344}
	a := swd.NewAdaptor(lineio.NewLoopback(target), swd.Config{HalfPeriod: time.Microsecond})
	return usbdevice.New(a, nil), a
}

func TestTransportBeginReadThenStatus(t *testing.T) {
	transport, a := newTransport(t, 0b001)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.Run(ctx)

	_, stall := transport.Handle(usbdevice.ReqBeginRead, 0, []byte{0xA5})
	assert.False(t, stall)

	require.Eventually(t, func() bool {
		return a.Results().Slot(0).Done()
	}, time.Second, time.Microsecond)

	resp, stall := transport.Handle(usbdevice.ReqStatus, 0, nil)
	assert.False(t, stall)
	require.Len(t, resp, 6)
	assert.EqualValues(t, 1, resp[0])  // done
	assert.EqualValues(t, 0, resp[1])  // StatusOK
	assert.EqualValues(t, 0x11223344, leU32(resp[2:6]))
}

func TestTransportBeginOnBusySlotStalls(t *testing.T) {
	transport, a := newTransport(t, 0b001)

	require.True(t, a.Results().Claim(4))
	_, stall := transport.Handle(usbdevice.ReqBeginRead, 4, []byte{0xA5})
	assert.True(t, stall)
}

func TestTransportShortPayloadStalls(t *testing.T) {
	transport, _ := newTransport(t, 0b001)

	_, stall := transport.Handle(usbdevice.ReqBeginWrite, 0, []byte{0x81, 0x01})
	assert.True(t, stall)
}

func TestTransportUnknownRequestStalls(t *testing.T) {
	transport, _ := newTransport(t, 0b001)

	_, stall := transport.Handle(0x7F, 0, nil)
	assert.True(t, stall)
}

// TestRequestCodesMatchWireProtocol pins the request constants to their
// literal wire values rather than trusting the symbolic names: spec.md
// §4.F and original_source/shared/usb_types.h (bRequest is the top byte
// of USB_SWD_BEGIN_READ 0x2000 / USB_SWD_BEGIN_WRITE 0x2100 /
// USB_SWD_READ_STATUS 0x2280) both put BEGIN READ at 0x20 and BEGIN
// WRITE at 0x21.
func TestRequestCodesMatchWireProtocol(t *testing.T) {
	assert.EqualValues(t, 0x20, usbdevice.ReqBeginRead)
	assert.EqualValues(t, 0x21, usbdevice.ReqBeginWrite)
	assert.EqualValues(t, 0x22, usbdevice.ReqStatus)
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
