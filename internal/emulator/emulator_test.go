package emulator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeConsole struct {
	keys []byte
	out  strings.Builder
}

func (c *fakeConsole) ReadByte() (byte, error) {
	if len(c.keys) == 0 {
		return 0, errors.New("no input")
	}
	b := c.keys[0]
	c.keys = c.keys[1:]
	return b, nil
}

func (c *fakeConsole) TryReadByte() (byte, bool) {
	b, err := c.ReadByte()
	return b, err == nil
}

func (c *fakeConsole) Ready() bool { return len(c.keys) > 0 }

func (c *fakeConsole) WriteByte(b byte) error {
	c.out.WriteByte(b)
	return nil
}

func quietLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

func newMachine(t *testing.T, opts ...Option) *Machine {
	t.Helper()
	return New(append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func mustLoad(t *testing.T, m *Machine, addr uint16, program ...byte) {
	t.Helper()
	if err := m.LoadProgram(addr, program); err != nil {
		t.Fatalf("LoadProgram() error = %v", err)
	}
}

func TestRunUntilHalt(t *testing.T) {
	m := newMachine(t, WithOutputPort(0x01))
	mustLoad(t, m, 0x0000,
		0x3E, 'H',  // LD A,'H'
		0xD3, 0x01, // OUT (01),A
		0x3E, 'i',  // LD A,'i'
		0xD3, 0x01, // OUT (01),A
		0xF3,       // DI
		0x76,       // HALT
	)

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !m.Stopped() {
		t.Error("machine should stop at HALT with interrupts disabled")
	}
	if got := m.Output(); got != "Hi" {
		t.Errorf("Output() = %q, want %q", got, "Hi")
	}
}

func TestRunCycles(t *testing.T) {
	m := newMachine(t)

	if err := m.RunCycles(100); err != nil {
		t.Fatalf("RunCycles() error = %v", err)
	}
	if m.CPU.Cycles() != 100 {
		t.Errorf("Cycles() = %d, want 100", m.CPU.Cycles())
	}
	if pc := m.CPU.Registers.PC(); pc != 25 {
		t.Errorf("PC = %04X, want 25 NOPs executed", pc)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	m := newMachine(t)
	mustLoad(t, m, 0x0000, 0x18, 0xFE) // JR $

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestPeriodicInterrupt(t *testing.T) {
	m := newMachine(t, WithOutputPort(0x01), WithInterruptPeriod(1000, 0, 0xFF))
	mustLoad(t, m, 0x0000,
		0xED, 0x56, // IM 1
		0xFB,       // EI
		0x18, 0xFE, // JR $
	)
	if err := m.Memory.Load(0x0038, []byte{
		0x3E, 'I',  // LD A,'I'
		0xD3, 0x01, // OUT (01),A
		0xF3,       // DI
		0x76,       // HALT
	}); err != nil {
		t.Fatal(err)
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := m.Output(); got != "I" {
		t.Errorf("Output() = %q, want %q", got, "I")
	}
	if m.CPU.Cycles() < 1000 {
		t.Errorf("interrupt taken after %d cycles, want at least 1000", m.CPU.Cycles())
	}
}

func TestTraceLogsInstructions(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	m := New(WithLogger(logger), WithTrace())
	mustLoad(t, m, 0x0000, 0x00, 0x3C) // NOP, INC A

	m.Step()
	m.Step()

	var msgs []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.TraceLevel {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) != 2 || msgs[0] != "NOP" || msgs[1] != "INC A" {
		t.Errorf("traced %q, want [NOP INC A]", msgs)
	}
}

func TestReset(t *testing.T) {
	m := newMachine(t, WithOutputPort(0x01))
	mustLoad(t, m, 0x4000, 0x3E, 'X', 0xD3, 0x01, 0xF3, 0x76)

	_ = m.Run(context.Background())
	m.Reset()
	if m.Stopped() || m.Output() != "" {
		t.Fatalf("after Reset stopped = %v, output = %q", m.Stopped(), m.Output())
	}
	if pc := m.CPU.Registers.PC(); pc != 0x4000 {
		t.Errorf("PC = %04X, want entry point 0x4000", pc)
	}

	_ = m.Run(context.Background())
	if m.Output() != "X" {
		t.Errorf("second run output = %q, want %q", m.Output(), "X")
	}
}

func TestRunUntilOutputTimeout(t *testing.T) {
	m := newMachine(t)
	mustLoad(t, m, 0x0000, 0x18, 0xFE) // JR $

	_, err := m.RunUntilOutput(10*time.Millisecond, "never")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("RunUntilOutput() error = %v, want ErrTimeout", err)
	}
}
