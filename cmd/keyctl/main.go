// keyctl configures a keypad over its USB serial port.
//
//	keyctl [flags] <command> [args]
//
// With --sim it talks to an in-process simulated keypad instead of a device.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"keypad-go/platform"
	"keypad-go/services/app"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	port     string
	sim      bool
	simFlash string
	timeout  time.Duration
	count    int
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("keyctl", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.port, "port", "p", "/dev/ttyACM0", "serial device of the keypad")
	flagSet.BoolVar(&opts.sim, "sim", false, "use an in-process simulated keypad")
	flagSet.StringVar(&opts.simFlash, "sim-flash", "", "file backing the simulated keypad's flash")
	flagSet.DurationVar(&opts.timeout, "timeout", 2*time.Second, "how long to wait for a reply")
	flagSet.IntVarP(&opts.count, "count", "n", 0, "monitor: stop after this many key reports (0 = until EOF)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	rw, closeFn, err := connect(opts)
	if err != nil {
		return err
	}
	defer closeFn()

	c := newClient(rw, opts.timeout)
	if flagSet.Arg(0) == "shell" {
		return runShell(c, opts, stdin, stdout)
	}
	return dispatch(c, opts, flagSet.Args(), stdout)
}

// connect opens the serial device in raw mode, or starts a simulator.
func connect(opts options) (io.ReadWriter, func(), error) {
	if opts.sim {
		return startSim(opts.simFlash)
	}

	f, err := os.OpenFile(opts.port, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", opts.port, err)
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return f, func() { f.Close() }, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("raw mode on %s: %w", opts.port, err)
	}
	return f, func() {
		term.Restore(fd, old)
		f.Close()
	}, nil
}

// startSim boots a simulated keypad and runs both core loops on one
// goroutine, once per millisecond.
func startSim(flashPath string) (io.ReadWriter, func(), error) {
	sim := platform.NewSim(nil)
	if flashPath != "" {
		if b, err := os.ReadFile(flashPath); err == nil {
			sim.Flash.Load(b)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, err
		}
	}
	sim.USB.SetMounted(true)

	a := app.New(sim.Board())
	if err := a.Boot(); err != nil {
		return nil, nil, fmt.Errorf("simulated boot: %w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				a.PrimaryStep()
				a.SecondaryStep()
			}
		}
	}()

	return sim.Serial, func() {
		close(stop)
		<-done
		if err := a.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: simulated save: %v\n", err)
		}
		sim.Serial.Close()
		if flashPath != "" {
			if err := sim.Flash.Store(flashPath); err != nil {
				fmt.Fprintf(os.Stderr, "warning: saving simulated flash: %v\n", err)
			}
		}
	}, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `keyctl talks to a keypad over its configuration protocol.

Usage:
  keyctl [flags] <command> [args]

Commands:
  echo [byte...]                 round-trip bytes through the keypad
  get                            print the key configuration
  set <index> <mode> <keycode> [modifiers] [id]
                                 change one key (modifiers: lctrl,lshift,...)
  reset                          restore factory key configuration
  save                           persist the configuration now
  capture check|enter|leave      query or change capture mode
  monitor                        enter capture mode and print key levels
  export [file]                  write the configuration as YAML
  import <file>                  apply a YAML keymap and save it
  reboot                         restart the keypad
  upload                         reboot into the USB bootloader
  shell                          read commands from stdin, one per line

Flags:
`)
	flagSet.PrintDefaults()
}
