// Command swd-host is a small CLI around pkg/hostclient for talking to
// a real adaptor device, mirroring the spirit of
// original_source/host/main.cpp's manual test driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kcuzner/swdadaptor/pkg/hostclient"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: swd-host <connect|read|write> [flags]")
		flag.PrintDefaults()
	}
	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	request := fs.Uint("request", 0xA5, "8-bit SWD request header")
	data := fs.Uint("data", 0, "32-bit data word (write only)")
	slot := fs.Uint("slot", 0, "result slot index (0-255)")
	poll := fs.Duration("poll", 100*time.Microsecond, "STATUS poll interval")
	fs.Parse(os.Args[2:])

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := hostclient.Open(logger)
	if err != nil {
		logger.Error("open adaptor", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cmd {
	case "connect":
		dpidr, err := client.Connect(ctx, *poll)
		if err != nil {
			logger.Error("connect", "error", err)
			os.Exit(1)
		}
		fmt.Printf("DPIDR = %#010x\n", dpidr)

	case "read":
		if err := client.BeginRead(uint8(*request), uint8(*slot)); err != nil {
			logger.Error("begin read", "error", err)
			os.Exit(1)
		}
		status, value, err := client.WaitDone(ctx, uint8(*slot), *poll)
		if err != nil {
			logger.Error("wait done", "error", err)
			os.Exit(1)
		}
		fmt.Printf("status=%d data=%#010x\n", status, value)

	case "write":
		if err := client.BeginWrite(uint8(*request), uint32(*data), uint8(*slot)); err != nil {
			logger.Error("begin write", "error", err)
			os.Exit(1)
		}
		status, _, err := client.WaitDone(ctx, uint8(*slot), *poll)
		if err != nil {
			logger.Error("wait done", "error", err)
			os.Exit(1)
		}
		fmt.Printf("status=%d\n", status)

	default:
		flag.Usage()
		os.Exit(2)
	}
}
