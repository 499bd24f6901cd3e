// Package emulator provides the machine runner that ties together the CPU,
// the memory bus and the interrupt clock.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80core/internal/clock"
	"github.com/richardwooding/z80core/internal/cpu"
	"github.com/richardwooding/z80core/internal/memory"
)

var (
	// ErrTimeout indicates the operation timed out.
	ErrTimeout = errors.New("timeout waiting for program output")

	// ErrUnimplementedBDOS indicates a CP/M program called a BDOS function
	// the machine does not provide.
	ErrUnimplementedBDOS = errors.New("unimplemented BDOS function")

	// ErrPageZeroROM indicates a ROM covers the CP/M page zero vectors.
	ErrPageZeroROM = errors.New("ROM shadows CP/M page zero")
)

// sliceCycles is how many T-states run between cancellation and timeout checks.
const sliceCycles = 10000

// Console is the terminal a machine reads keys from and prints to.
type Console interface {
	ReadByte() (byte, error)
	TryReadByte() (byte, bool)
	Ready() bool
	WriteByte(b byte) error
}

// Machine represents a Z80 system: processor, 64 KiB bus and an optional
// periodic interrupt source.
type Machine struct {
	CPU    *cpu.CPU
	Memory *memory.Bus
	Clock  *clock.Clock

	log     logrus.Ext1FieldLogger
	console Console
	trace   bool

	resetFill     uint8
	cpm           bool
	outputPort    int // -1 when no port captures output
	intPeriod     uint32
	intPulse      uint32
	interruptData uint8

	entry   uint16
	output  []byte
	stopped bool
	err     error
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger for machine events and instruction traces.
func WithLogger(log logrus.Ext1FieldLogger) Option {
	return func(m *Machine) {
		m.log = log
	}
}

// WithConsole attaches a terminal for program input and output.
func WithConsole(c Console) Option {
	return func(m *Machine) {
		m.console = c
	}
}

// WithTrace logs every executed instruction at trace level.
func WithTrace() Option {
	return func(m *Machine) {
		m.trace = true
	}
}

// WithResetFill sets the register fill value used on reset.
func WithResetFill(value uint8) Option {
	return func(m *Machine) {
		m.resetFill = value
	}
}

// WithCPM enables CP/M 2.2 BDOS emulation: calls to 0005 are serviced by
// the host and a jump to 0000 ends the program.
func WithCPM() Option {
	return func(m *Machine) {
		m.cpm = true
	}
}

// WithOutputPort captures bytes written to the given I/O port as program
// output.
func WithOutputPort(port uint8) Option {
	return func(m *Machine) {
		m.outputPort = int(port)
	}
}

// WithInterruptPeriod raises the maskable interrupt every period T-states,
// placing data on the bus for IM 0 and IM 2. A non-zero pulse withdraws the
// request after that many T-states.
func WithInterruptPeriod(period, pulse uint32, data uint8) Option {
	return func(m *Machine) {
		m.intPeriod = period
		m.intPulse = pulse
		m.interruptData = data
	}
}

// New creates a new machine with empty memory.
func New(opts ...Option) *Machine {
	m := &Machine{
		log:        logrus.StandardLogger(),
		resetFill:  0xFF,
		outputPort: -1,
		output:     make([]byte, 0, 1024),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Memory = memory.NewBus(memory.WithLogger(m.log))
	m.CPU = cpu.New(m.Memory, cpu.WithResetFill(m.resetFill))
	m.Clock = clock.New(m.intPeriod, func() {
		m.CPU.RequestInterrupt(m.interruptData)
	})
	if m.intPulse > 0 {
		m.Clock.SetPulse(m.intPulse, m.CPU.CancelInterrupt)
	}

	if m.outputPort >= 0 {
		m.Memory.SetPortHandler(uint8(m.outputPort), memory.PortFuncs{ //nolint:gosec // G115: port set from a uint8
			OutFunc: func(_ uint16, v uint8) { m.emit(v) },
		})
	}
	if m.cpm {
		if err := m.installCPM(); err != nil {
			m.stop(err, "CP/M setup failed")
		}
	}
	return m
}

// LoadProgram copies a program image to addr and makes addr the entry point.
// CP/M machines run programs from 0100 only.
func (m *Machine) LoadProgram(addr uint16, data []byte) error {
	if m.cpm && addr != tpaStart {
		return fmt.Errorf("CP/M programs load at %04X, not %04X", tpaStart, addr)
	}
	if err := m.Memory.Load(addr, data); err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}
	m.entry = addr
	m.CPU.Registers.SetPC(addr)
	m.log.WithFields(logrus.Fields{
		"addr": fmt.Sprintf("%04X", addr),
		"size": len(data),
	}).Debug("program loaded")
	return nil
}

// Step executes one CPU instruction, or one BDOS call, and returns the
// number of cycles taken. It does nothing once the machine has stopped.
func (m *Machine) Step() int {
	if m.stopped {
		return 0
	}

	pc := m.CPU.Registers.PC()
	if m.cpm {
		switch pc {
		case warmBoot:
			m.stop(nil, "warm boot")
			return 0
		case bdosEntry:
			return m.bdos()
		}
	}

	if m.trace {
		in := cpu.Decode(m.Memory, pc)
		m.log.WithFields(logrus.Fields{
			"pc":     fmt.Sprintf("%04X", pc),
			"bytes":  fmt.Sprintf("% X", in.Bytes),
			"cycles": m.CPU.Cycles(),
		}).Trace(in.Mnemonic)
	}

	cycles := m.CPU.Step()
	m.Clock.Update(cycles)
	return cycles
}

// RunCycles runs the machine for at least the specified number of cycles,
// or until it stops.
func (m *Machine) RunCycles(cycles uint64) error {
	target := m.CPU.Cycles() + cycles
	for m.CPU.Cycles() < target && !m.stopped {
		m.Step()
		m.checkDeadlock()
	}
	return m.err
}

// Run runs the machine until the program ends, the CPU halts with
// interrupts disabled, or ctx is cancelled.
func (m *Machine) Run(ctx context.Context) error {
	for !m.stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.RunCycles(sliceCycles); err != nil {
			return err
		}
	}
	return m.err
}

// RunUntilOutput runs the machine until its output contains one of the
// markers, the machine stops, or no new output appears for timeout.
func (m *Machine) RunUntilOutput(timeout time.Duration, markers ...string) (string, error) {
	startTime := time.Now()
	lastOutputLen := 0

	for {
		if time.Since(startTime) > timeout {
			return string(m.output), ErrTimeout
		}

		if err := m.RunCycles(sliceCycles); err != nil {
			return string(m.output), err
		}

		// Restart the timeout on progress; exercisers print one line per test.
		if len(m.output) > lastOutputLen {
			lastOutputLen = len(m.output)
			startTime = time.Now()
		}

		output := string(m.output)
		for _, marker := range markers {
			if strings.Contains(output, marker) {
				return output, nil
			}
		}
		if m.stopped {
			return output, nil
		}
	}
}

// checkDeadlock stops the machine when it can never resume: halted with
// maskable interrupts disabled and nothing to deliver an NMI.
func (m *Machine) checkDeadlock() {
	if m.CPU.Halted() && !m.CPU.Registers.IFF1() {
		m.stop(nil, "halted with interrupts disabled")
	}
}

func (m *Machine) stop(err error, reason string) {
	m.stopped = true
	m.err = err
	entry := m.log.WithFields(logrus.Fields{
		"pc":     fmt.Sprintf("%04X", m.CPU.Registers.PC()),
		"cycles": m.CPU.Cycles(),
	})
	if err != nil {
		entry.WithError(err).Error(reason)
		return
	}
	entry.Debug(reason)
}

// emit records a byte of program output and echoes it to the console.
func (m *Machine) emit(b byte) {
	m.output = append(m.output, b)
	if m.console != nil {
		if err := m.console.WriteByte(b); err != nil {
			m.log.WithError(err).Warn("console write failed")
		}
	}
}

// Output returns the accumulated program output.
func (m *Machine) Output() string {
	return string(m.output)
}

// Stopped reports whether the program has ended.
func (m *Machine) Stopped() bool {
	return m.stopped
}

// Err returns the error that stopped the machine, if any.
func (m *Machine) Err() error {
	return m.err
}

// Reset resets the processor and clock and restarts the program at its
// entry point. Memory keeps its contents.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.Clock.Reset()
	m.CPU.Registers.SetPC(m.entry)
	m.output = m.output[:0]
	m.stopped = false
	m.err = nil
	if m.cpm {
		if err := m.installCPM(); err != nil {
			m.stop(err, "CP/M setup failed")
		}
	}
}
