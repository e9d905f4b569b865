package hostclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gousb"

	"github.com/kcuzner/swdadaptor/pkg/usbdevice"
)

const controlTimeout = 250 * time.Millisecond

// Client is a single open adaptor device.
type Client struct {
	logger *slog.Logger
	ctx    *gousb.Context
	dev    *gousb.Device
}

// Open enumerates USB devices and returns the first one matching the
// adaptor's VID/PID and descriptor strings
// (original_source/host/src/Programmer.cpp's Programmer::Open).
func Open(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := gousb.NewContext()

	matched, err := findAdaptor(ctx)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	matched.ControlTimeout = controlTimeout

	return &Client{logger: logger.With("component", "hostclient"), ctx: ctx, dev: matched}, nil
}

// findAdaptor enumerates every device with the adaptor's VID/PID and
// returns the first whose manufacturer/product strings also match,
// closing every other candidate it opens along the way.
func findAdaptor(ctx *gousb.Context) (*gousb.Device, error) {
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(usbdevice.VendorID) && desc.Product == gousb.ID(usbdevice.ProductID)
	})
	if err != nil {
		return nil, fmt.Errorf("hostclient: enumerate: %w", err)
	}

	var matched *gousb.Device
	for _, d := range devs {
		if matched != nil {
			d.Close()
			continue
		}
		manu, _ := d.Manufacturer()
		prod, _ := d.Product()
		if manu == usbdevice.Manufacturer && prod == usbdevice.Product {
			matched = d
			continue
		}
		d.Close()
	}
	if matched == nil {
		return nil, fmt.Errorf("hostclient: no adaptor found (vid=%#04x pid=%#04x)", usbdevice.VendorID, usbdevice.ProductID)
	}
	return matched, nil
}

// Close releases the underlying USB device and context.
func (c *Client) Close() error {
	err := c.dev.Close()
	c.ctx.Close()
	return err
}
