// Package swd implements the device-side core of an asynchronous,
// interrupt-driven SWD (Serial Wire Debug) adaptor: a bit-level
// encoder/decoder, an IDLE/INIT/RUN/STOP bus state machine, and the
// lock-free single-producer/single-consumer command queue linking a
// foreground submission API to the background bit engine.
//
// See pkg/usbdevice for the USB control-request decoder that drives
// this package over the wire, and pkg/hostclient for the host-side
// mirror that issues those control transfers.
package swd
