// Command swd-sim runs an Adaptor against an in-memory loopback target
// instead of real GPIO pins, for exercising the Submission API and the
// Bus Controller's state machine without hardware.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	swd "github.com/kcuzner/swdadaptor"
	"github.com/kcuzner/swdadaptor/internal/lineio"
)

func main() {
	verifyParity := flag.Bool("verify-read-parity", false, "abort a READ whose sampled parity bit doesn't match its data")
	ack := flag.Uint("ack", 1, "ACK bits the simulated target answers with (1=OK, 2=WAIT, 4=FAULT)")
	readData := flag.Uint64("read-data", 0xDEADBEEF, "32-bit value the simulated target returns on READ")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	target := &lineio.Target{Ack: uint8(*ack), ReadData: uint32(*readData)}
	line := lineio.NewLoopback(target)

	adaptor := swd.NewAdaptor(line, swd.Config{
		VerifyReadParity: *verifyParity,
		Logger:           logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := adaptor.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("bus controller stopped", "error", err)
		}
	}()

	const slot = 0
	adaptor.Results().Claim(slot)
	if err := adaptor.BeginRead(0xA5, slot); err != nil {
		logger.Error("begin read", "error", err)
		os.Exit(1)
	}

	for !adaptor.Results().Slot(slot).Done() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond):
		}
	}
	status, data, _ := adaptor.Results().Slot(slot).Peek()
	logger.Info("read complete", "status", status, "data", data, "request", target.LastRequest)
}
