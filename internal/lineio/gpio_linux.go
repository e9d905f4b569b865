//go:build linux

// Package lineio provides swd.LineDriver implementations: a real
// sysfs-backed GPIO driver for Linux single-board computers, and an
// in-memory loopback target for tests and the swd-sim binary.
package lineio

import (
	"fmt"

	swd "github.com/kcuzner/swdadaptor"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// GPIO drives SWCLK and SWDIO over two periph.io pins, grounded on
// google-periph's host/sysfs GPIO driver (conn/gpio.PinIO). SWDIO is
// switched between gpio.PinOut and gpio.PinIn use at runtime by
// toggling its direction via In()/Out(), matching the single
// bidirectional-pin requirement of spec.md §6.
type GPIO struct {
	clk gpio.PinIO
	dio gpio.PinIO
	dir swd.Direction
}

// NewGPIO resolves clkName/dioName through periph.io's pin registry and
// returns a ready-to-use LineDriver. It calls host.Init itself first to
// register the platform's drivers.
func NewGPIO(clkName, dioName string) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("lineio: periph host init: %w", err)
	}
	clk := gpioreg.ByName(clkName)
	if clk == nil {
		return nil, fmt.Errorf("lineio: unknown SWCLK pin %q", clkName)
	}
	dio := gpioreg.ByName(dioName)
	if dio == nil {
		return nil, fmt.Errorf("lineio: unknown SWDIO pin %q", dioName)
	}
	if err := clk.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("lineio: init SWCLK: %w", err)
	}
	if err := dio.In(gpio.PullUp, gpio.None); err != nil {
		return nil, fmt.Errorf("lineio: init SWDIO: %w", err)
	}
	return &GPIO{clk: clk, dio: dio, dir: swd.DirIn}, nil
}

func (g *GPIO) SetClk(level swd.Level) {
	g.clk.Out(toPeriph(level))
}

func (g *GPIO) SetDioDirection(dir swd.Direction) {
	if dir == g.dir {
		return
	}
	g.dir = dir
	if dir == swd.DirOut {
		g.dio.Out(gpio.Low)
	} else {
		g.dio.In(gpio.PullUp, gpio.None)
	}
}

func (g *GPIO) SetDio(level swd.Level) {
	g.dio.Out(toPeriph(level))
}

func (g *GPIO) ReadDio() swd.Level {
	return fromPeriph(g.dio.Read())
}

func toPeriph(l swd.Level) gpio.Level {
	return gpio.Level(l == swd.High)
}

func fromPeriph(l gpio.Level) swd.Level {
	return swd.Level(bool(l))
}
