// hashrun runs a ROM headless for a number of frames and prints the
// SHA-1 of each frame's 6-bit color buffer. The system tests compare
// these digests against known-good values.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/famigo/pkg/logger"
	"github.com/famigo/pkg/nes"
	"github.com/famigo/pkg/rom"
	"github.com/famigo/pkg/screen"
)

func main() {
	var (
		frames = flag.Int("frames", 60, "number of frames to run")
		jit    = flag.Bool("jit", true, "use the recompiler where available")
	)

	flag.Usage = func() {
		fmt.Printf("Usage: %s [options] <rom_file>\n\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	romPath := flag.Arg(0)

	logger.Initialize(logger.LogLevelError, "")

	cart, err := rom.Load(romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	settings := nes.DefaultSettings()
	settings.JIT = *jit

	builder := nes.NewBuilder(cart, romPath, settings)
	builder.Screen = &screen.HashScreen{
		Report: func(frame int, hash string) {
			fmt.Printf("Frame: %d, Hash: %s\n", frame, hash)
		},
	}

	emulator, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *frames && !emulator.Halted(); i++ {
		emulator.RunFrame()
	}
}
