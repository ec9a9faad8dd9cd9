// Command rvsim assembles a machine, loads a flat binary image into RAM
// and bridges the machine's serial port to the calling terminal. Without
// a CPU core attached it drives the bus itself and echoes serial input,
// which exercises the whole device plane end to end.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/rvsim/rvsim"
)

// ctrlRBracket detaches the console, the same binding screen and telnet use.
const ctrlRBracket = 0x1d

// crlfWriter rewrites bare newlines so log output stays readable while the
// terminal is in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		if b == '\n' {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("rvsim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "machine description YAML")
	imagePath := flag.String("image", "", "flat binary image loaded at the reset address")
	headless := flag.Bool("headless", false, "run without a display window")
	dbg := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *dbg {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(
		&crlfWriter{w: os.Stderr},
		&slog.HandlerOptions{Level: level},
	)))

	cfg := rvsim.DefaultConfig()
	if *configPath != "" {
		loaded, err := rvsim.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *headless {
		cfg.Display.Headless = true
	}

	machine, err := rvsim.NewMachine(cfg)
	if err != nil {
		return err
	}

	if *imagePath != "" {
		if err := loadImage(machine, *imagePath); err != nil {
			return err
		}
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("enable raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), oldState)
		fmt.Fprint(os.Stdout, ansi.SetWindowTitle(cfg.Display.Title))
		slog.Info("console attached", "detach", "Ctrl-]")
	}

	var stop atomic.Bool
	shutdown := func() {
		stop.Store(true)
		machine.StopDisplay()
	}

	// Guest serial output to the terminal.
	go func() {
		for {
			b := machine.Controller.UARTOut.Recv()
			os.Stdout.Write([]byte{b})
		}
	}()

	// Terminal input to the guest serial port.
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				shutdown()
				return
			}
			if n == 1 {
				if buf[0] == ctrlRBracket {
					shutdown()
					return
				}
				machine.Controller.UARTIn.Send(buf[0])
			}
		}
	}()

	// Poweroff and other machine commands. Closing the window surfaces
	// here too, as a poweroff emitted by the board controller.
	go func() {
		for {
			if machine.Controller.Commands.Recv() == rvsim.CmdPoweroff {
				slog.Info("machine requested poweroff")
				shutdown()
				return
			}
		}
	}()

	go driveBus(machine, &stop)

	if cfg.Display.Headless {
		for !stop.Load() {
			time.Sleep(10 * time.Millisecond)
		}
		return nil
	}

	// The render loop owns the main goroutine until shutdown stops it.
	machine.RunDisplay()
	return nil
}

// driveBus stands in for a CPU core: it clocks the bus and services the
// serial port by echoing every received byte.
func driveBus(m *rvsim.Machine, stop *atomic.Bool) {
	const (
		uartBase = 0x1000_0000
		lsrData  = 1 << 0
	)
	for !stop.Load() {
		for i := 0; i < 10_000; i++ {
			m.Bus.Clk()
		}
		if level, ok := m.Bus.Interrupt(); ok {
			slog.Debug("interrupt line changed", "level", level)
		}
		lsr, err := m.Bus.Read(uartBase+5, 1)
		if err != nil {
			slog.Error("lsr read", "error", err)
			return
		}
		if lsr&lsrData != 0 {
			// Data-ready stays latched until a FIFO clear, so drain by
			// reading until the register runs dry. An empty FIFO reads
			// as zero, which a console never carries.
			for range 256 {
				b, err := m.Bus.Read(uartBase, 1)
				if err != nil {
					slog.Error("data read", "error", err)
					return
				}
				if b == 0 {
					break
				}
				if err := m.Bus.Write(uartBase, 1, b); err != nil {
					slog.Error("data write", "error", err)
					return
				}
			}
		}
		time.Sleep(time.Millisecond)
	}
}

func loadImage(m *rvsim.Machine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}

	bar := progressbar.DefaultBytes(info.Size(), "loading image")
	n, err := m.LoadImage(io.TeeReader(f, bar))
	if err != nil {
		return err
	}
	slog.Info("image loaded", "bytes", n, "base", fmt.Sprintf("0x%08x", rvsim.MemoryBase))
	return nil
}
