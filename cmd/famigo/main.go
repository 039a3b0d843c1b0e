package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/famigo/pkg/audio"
	"github.com/famigo/pkg/gui"
	"github.com/famigo/pkg/input"
	"github.com/famigo/pkg/logger"
	"github.com/famigo/pkg/nes"
	"github.com/famigo/pkg/rom"
)

func main() {
	var (
		moviePath = flag.String("movie", "", "FM2 movie file to replay")
		logLevel  = flag.String("log-level", "info", "Log level (off, error, warn, info, debug, trace)")
		logFile   = flag.String("log-file", "", "Log file path (empty for stdout)")
	)

	flag.Usage = func() {
		fmt.Printf("Usage: %s [options] <rom_file>\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println("\nControls:")
		fmt.Println("  Z - A button")
		fmt.Println("  X - B button")
		fmt.Println("  Backspace - Select")
		fmt.Println("  Return - Start")
		fmt.Println("  Arrow keys - D-pad")
		fmt.Println("  ESC - Quit")
	}

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	romPath := flag.Arg(0)

	if err := logger.Initialize(logger.GetLogLevelFromString(*logLevel), *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	settings, err := nes.LoadSettings()
	if err != nil {
		logger.LogError("%v", err)
		os.Exit(1)
	}
	logger.SetCPULogging(settings.TraceCPU)

	cart, err := rom.Load(romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := run(cart, romPath, *moviePath, settings); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cart *rom.ROM, romPath, moviePath string, settings nes.Settings) error {
	// SDL wants the main OS thread.
	runtime.LockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return err
	}
	defer sdl.Quit()

	window, err := gui.New()
	if err != nil {
		return err
	}
	defer window.Destroy()

	audioOut, err := audio.NewSDLOut()
	if err != nil {
		return err
	}
	defer audioOut.Close()

	builder := nes.NewBuilder(cart, romPath, settings)
	builder.Screen = window
	builder.Audio = audioOut

	if moviePath != "" {
		movie, err := input.LoadFM2(moviePath)
		if err != nil {
			return err
		}
		builder.Input = movie
	} else {
		builder.Input = gui.NewKeyboardIO()
	}

	emulator, err := builder.Build()
	if err != nil {
		return err
	}

	for {
		if window.PumpEvents() || emulator.Halted() {
			return nil
		}
		emulator.RunFrame()

		if settings.Mousepick {
			if x, y, state := sdl.GetMouseState(); state&sdl.Button(sdl.BUTTON_LEFT) != 0 {
				emulator.CPU.PPU.MousePick(int(x)/3, int(y)/3)
			}
		}
	}
}
