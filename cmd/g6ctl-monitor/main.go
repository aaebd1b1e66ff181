// Command g6ctl-monitor is a raw protocol inspector for the Sound
// Blaster X G6's control interface: it opens the device directly
// (bypassing the arbiter) and either dumps every frame it observes or
// sends one hand-specified frame and prints the response.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"g6ctl/internal/protocol"
	"g6ctl/internal/transport"
)

func main() {
	dump := flag.Bool("dump", false, "continuously dump every frame read from the device")
	sendHex := flag.String("send", "", "hex-encoded frame (up to 64 bytes) to send once")
	readTimeout := flag.Duration("read-timeout", 2*time.Second, "read timeout for --send and --dump")
	flag.Parse()

	handle, err := transport.OpenControlInterface()
	if err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-monitor: open: %v\n", err)
		os.Exit(1)
	}
	defer handle.Close()

	switch {
	case *sendHex != "":
		runSend(handle, *sendHex, *readTimeout)
	case *dump:
		runDump(handle, *readTimeout)
	default:
		fmt.Fprintln(os.Stderr, "g6ctl-monitor: specify --dump or --send <hex>")
		os.Exit(2)
	}
}

func runSend(handle *transport.Handle, hexFrame string, timeout time.Duration) {
	raw, err := hex.DecodeString(hexFrame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-monitor: invalid hex: %v\n", err)
		os.Exit(1)
	}
	if len(raw) > protocol.FrameSize {
		fmt.Fprintf(os.Stderr, "g6ctl-monitor: frame too long: %d bytes (max %d)\n", len(raw), protocol.FrameSize)
		os.Exit(1)
	}

	var frame protocol.Frame
	copy(frame[:], raw)

	fmt.Printf("-> %s\n", hex.EncodeToString(frame[:]))
	if err := handle.Write(frame); err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-monitor: write: %v\n", err)
		os.Exit(1)
	}

	resp, err := handle.Read(timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-monitor: read: %v\n", err)
		os.Exit(1)
	}
	printFrame(resp)
}

func runDump(handle *transport.Handle, timeout time.Duration) {
	fmt.Println("g6ctl-monitor: dumping frames, ctrl-C to stop")
	for {
		frame, err := handle.Read(timeout)
		if err != nil {
			continue
		}
		printFrame(frame)
	}
}

func printFrame(f protocol.Frame) {
	fmt.Printf("<- %s\n", hex.EncodeToString(f[:]))
	if f[0] != protocol.FramePrefix {
		fmt.Println("   (unexpected prefix)")
		return
	}
	fmt.Printf("   family=0x%02X op=0x%02X\n", f[1], f[2])
	if resp, err := protocol.DecodeResponse(f); err == nil {
		fmt.Printf("   decoded: %+v\n", resp)
	}
	for _, ev := range protocol.ParseEvents(f) {
		fmt.Printf("   event: %+v\n", ev)
	}
}
