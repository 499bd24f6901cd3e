// Package main provides the z80core CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80core/internal/console"
	"github.com/richardwooding/z80core/internal/emulator"
	"github.com/richardwooding/z80core/internal/loader"
	"github.com/richardwooding/z80core/internal/testrom"
)

var (
	// ErrTestFailed indicates a test program failed.
	ErrTestFailed = errors.New("test failed")

	// ErrCycleLimit indicates a program was still running when its cycle
	// budget ran out.
	ErrCycleLimit = errors.New("cycle limit reached")

	// ErrArgumentsIgnored indicates program arguments were given for an
	// image that has no command line.
	ErrArgumentsIgnored = errors.New("program arguments need a CP/M program")
)

// Globals are flags shared by every command.
type Globals struct {
	Config    kong.ConfigFlag `help:"Load flag defaults from a JSON file."`
	LogLevel  string          `help:"Log level." enum:"trace,debug,info,warn,error" default:"warn" env:"Z80CORE_LOG_LEVEL"`
	LogFormat string          `help:"Log format." enum:"text,json" default:"text" env:"Z80CORE_LOG_FORMAT"`
}

// CLI represents the command-line interface structure.
type CLI struct {
	Globals

	Info    InfoCmd    `cmd:"" help:"Display program image information."`
	Run     RunCmd     `cmd:"" help:"Run a Z80 program."`
	Test    TestCmd    `cmd:"" help:"Run a CP/M test program and report results."`
	Compare CompareCmd `cmd:"" help:"Compare the CPU core against a reference implementation."`
	Script  ScriptCmd  `cmd:"" help:"Run a Lua script against a machine."`
}

// newLogger builds the logger the commands share.
func (g *Globals) newLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	if g.LogFormat == "json" {
		l.Formatter = &logrus.JSONFormatter{}
	} else {
		l.Formatter = &logrus.TextFormatter{
			DisableColors:    true,
			DisableTimestamp: true,
			DisableSorting:   true,
			DisableQuote:     true,
		}
	}
	return l, nil
}

// InfoCmd displays program image information.
type InfoCmd struct {
	Program string `arg:"" type:"existingfile" help:"Path to program image."`
}

// Run executes the info command.
func (c *InfoCmd) Run() error {
	img, err := loader.Load(c.Program)
	if err != nil {
		return err
	}

	fmt.Printf("Image Information:\n")
	fmt.Printf("  Name:     %s\n", img.Name)
	fmt.Printf("  Format:   %s\n", img.Format)
	fmt.Printf("  Size:     %d bytes\n", len(img.Data))
	fmt.Printf("  xxhash:   %016x\n", img.Checksum())
	if org, ok := img.Format.Origin(); ok {
		fmt.Printf("  Origin:   %04X\n", org)
	}

	if img.Format == loader.FormatSNA {
		return printSnapshot(img)
	}
	return nil
}

// RunCmd runs a Z80 program.
type RunCmd struct {
	Program string   `arg:"" type:"existingfile" help:"Path to program image."`
	Args    []string `arg:"" optional:"" help:"Command tail passed to a CP/M program."`
	ROM     string   `type:"existingfile" help:"Write-protected ROM image mapped at 0000."`

	Org       uint16 `help:"Load address for raw images." default:"0"`
	CPM       bool   `name:"cpm" help:"Run a raw image under CP/M BDOS emulation."`
	Trace     bool   `help:"Log every executed instruction."`
	MaxCycles uint64 `help:"Stop after this many T-states (0 runs until the program ends)." default:"0"`

	InterruptPeriod uint32 `help:"Raise the maskable interrupt every N T-states (0 disables)." default:"0"`
	InterruptPulse  uint32 `help:"T-states the interrupt line stays raised (0 holds it until accepted)." default:"0"`
	InterruptData   uint8  `help:"Byte placed on the data bus during interrupt acknowledge." default:"255"`
	OutputPort      int    `help:"Print bytes written to this I/O port (-1 disables)." default:"-1"`

	SaveSnapshot string `help:"Write an SNA snapshot of the machine when it stops." type:"path"`
}

// Run executes the run command.
func (c *RunCmd) Run(log *logrus.Logger) error {
	img, err := loader.Load(c.Program)
	if err != nil {
		return err
	}
	if c.CPM && img.Format == loader.FormatRaw {
		img.Format = loader.FormatCOM
	}
	if c.Trace {
		log.SetLevel(logrus.TraceLevel)
	}

	rom, err := c.romImage()
	if err != nil {
		return err
	}

	term := console.NewStdio()
	if err := term.EnableRaw(); err != nil {
		log.WithError(err).Warn("terminal stays in line mode")
	}
	defer func() {
		if err := term.Restore(); err != nil {
			log.WithError(err).Warn("failed to restore terminal")
		}
	}()

	opts := []emulator.Option{
		emulator.WithLogger(log),
		emulator.WithConsole(term),
	}
	if c.Trace {
		opts = append(opts, emulator.WithTrace())
	}
	if c.InterruptPeriod > 0 {
		opts = append(opts, emulator.WithInterruptPeriod(c.InterruptPeriod, c.InterruptPulse, c.InterruptData))
	}
	if c.OutputPort >= 0 {
		opts = append(opts, emulator.WithOutputPort(uint8(c.OutputPort))) //nolint:gosec // G115: port is masked to 8 bits by the bus
	}

	m, err := buildMachine(img, rom, c.Org, opts...)
	if err != nil {
		return err
	}
	if err := setArguments(m, img, c.Args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := runMachine(ctx, m, c.MaxCycles, term.Flush)

	if c.SaveSnapshot != "" {
		if err := saveSnapshot(c.SaveSnapshot, m); err != nil {
			return err
		}
		log.WithField("path", c.SaveSnapshot).Info("snapshot saved")
	}
	return runErr
}

func (c *RunCmd) romImage() ([]byte, error) {
	if c.ROM == "" {
		return nil, nil
	}
	img, err := loader.Load(c.ROM)
	if err != nil {
		return nil, err
	}
	return img.Data, nil
}

// runMachine runs m in slices until it stops, ctx is cancelled or the
// cycle budget is spent, calling flush after each slice.
func runMachine(ctx context.Context, m *emulator.Machine, maxCycles uint64, flush func() error) error {
	const slice = 69888

	for !m.Stopped() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxCycles > 0 && m.CPU.Cycles() >= maxCycles {
			return fmt.Errorf("%w: %d T-states at PC=%04X", ErrCycleLimit, m.CPU.Cycles(), m.CPU.Registers.PC())
		}
		if err := m.RunCycles(slice); err != nil {
			return err
		}
		if err := flush(); err != nil {
			return err
		}
	}
	return m.Err()
}

// TestCmd runs a test program and reports results.
type TestCmd struct {
	Program string `arg:"" type:"existingfile" help:"Path to CP/M test program."`
	Timeout int    `default:"30" help:"Seconds without output before giving up."`
	Verbose bool   `short:"v" help:"Show detailed output."`
}

// Run executes the test command.
func (c *TestCmd) Run(log *logrus.Logger) error {
	fmt.Printf("Running test program: %s\n", c.Program)

	timeout := time.Duration(c.Timeout) * time.Second
	result := testrom.Run(c.Program, timeout, emulator.WithLogger(log))

	fmt.Printf("Result: %s\n", result.String())

	if c.Verbose || !result.IsSuccess() {
		fmt.Printf("\nOutput:\n%s\n", result.Output)
	}

	if !result.IsSuccess() {
		return ErrTestFailed
	}

	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("z80core"),
		kong.Description("A Z80 CPU emulator core with CP/M and snapshot support."),
		kong.Configuration(kong.JSON, "~/.config/z80core.json"),
		kong.UsageOnError(),
	)

	log, err := cli.newLogger()
	ctx.FatalIfErrorf(err)

	err = ctx.Run(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
