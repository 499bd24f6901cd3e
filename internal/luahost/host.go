// Package luahost exposes a machine to Lua scripts, for scripted tests and
// debugging sessions.
//
// Scripts see these globals:
//
//	reset()             reset the machine
//	step()              run one instruction, returns T-states
//	run(n)              run at least n T-states, returns T-states run
//	reg(id)             read an 8-bit register by number or name
//	setreg(id, v)       write an 8-bit register
//	pair(id)            read a register pair by number or name
//	setpair(id, v)      write a register pair
//	peek(addr)          read memory
//	poke(addr, v)       write memory
//	interrupt(data)     request a maskable interrupt
//	nmi()               request a non-maskable interrupt
//	halted()            whether the CPU is halted
//	cycles()            T-states since reset
//	output()            program output so far
//	regs, pairs         tables of register numbers by name
package luahost

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/richardwooding/z80core/internal/cpu"
	"github.com/richardwooding/z80core/internal/emulator"
)

// ErrScript indicates a script failed to load or raised an error.
var ErrScript = errors.New("lua script failed")

// Host runs Lua scripts against a machine.
type Host struct {
	machine *emulator.Machine
	state   *lua.LState
	out     io.Writer
	log     logrus.FieldLogger

	reg8  map[string]cpu.Reg8
	reg16 map[string]cpu.Reg16
}

// Option configures a Host.
type Option func(*Host)

// WithOutput redirects the script's print function.
func WithOutput(w io.Writer) Option {
	return func(h *Host) {
		h.out = w
	}
}

// WithLogger sets the logger for script events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Host) {
		h.log = log
	}
}

// New creates a Host for m. Call Close when done.
func New(m *emulator.Machine, opts ...Option) *Host {
	h := &Host{
		machine: m,
		state:   lua.NewState(),
		out:     os.Stdout,
		log:     logrus.StandardLogger(),
		reg8:    make(map[string]cpu.Reg8, cpu.NumReg8),
		reg16:   make(map[string]cpu.Reg16, cpu.NumReg16),
	}
	for _, opt := range opts {
		opt(h)
	}

	regs := h.state.NewTable()
	for id := range cpu.NumReg8 {
		r := cpu.Reg8(id) //nolint:gosec // G115: id < NumReg8
		h.reg8[r.String()] = r
		regs.RawSetString(r.String(), lua.LNumber(id))
	}
	pairs := h.state.NewTable()
	for id := range cpu.NumReg16 {
		r := cpu.Reg16(id) //nolint:gosec // G115: id < NumReg16
		h.reg16[r.String()] = r
		pairs.RawSetString(r.String(), lua.LNumber(id))
	}
	h.state.SetGlobal("regs", regs)
	h.state.SetGlobal("pairs", pairs)

	for name, fn := range map[string]lua.LGFunction{
		"reset":     h.reset,
		"step":      h.step,
		"run":       h.run,
		"reg":       h.getReg,
		"setreg":    h.setReg,
		"pair":      h.getPair,
		"setpair":   h.setPair,
		"peek":      h.peek,
		"poke":      h.poke,
		"interrupt": h.interrupt,
		"nmi":       h.nmi,
		"halted":    h.halted,
		"cycles":    h.cycles,
		"output":    h.output,
		"print":     h.print,
	} {
		h.state.SetGlobal(name, h.state.NewFunction(fn))
	}
	return h
}

// Close releases the Lua state.
func (h *Host) Close() {
	h.state.Close()
}

// RunString executes a Lua chunk.
func (h *Host) RunString(src string) error {
	if err := h.state.DoString(src); err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}
	return nil
}

// Run executes the Lua file at path.
func (h *Host) Run(path string) error {
	h.log.WithField("script", path).Debug("running script")
	if err := h.state.DoFile(path); err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}
	return nil
}

func (h *Host) reset(*lua.LState) int {
	h.machine.Reset()
	return 0
}

func (h *Host) step(L *lua.LState) int {
	L.Push(lua.LNumber(h.machine.Step()))
	return 1
}

func (h *Host) run(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 {
		L.ArgError(1, "cycle count must not be negative")
		return 0
	}
	start := h.machine.CPU.Cycles()
	if err := h.machine.RunCycles(uint64(n)); err != nil { //nolint:gosec // G115: n >= 0 checked above
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(h.machine.CPU.Cycles() - start))
	return 1
}

// regArg resolves argument n, a register number or name.
func (h *Host) regArg(L *lua.LState, n int) cpu.Reg8 {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		if id := int(v); id >= 0 && id < cpu.NumReg8 {
			return cpu.Reg8(id) //nolint:gosec // G115: range checked
		}
	case lua.LString:
		if id, ok := h.reg8[strings.ToUpper(string(v))]; ok {
			return id
		}
	}
	L.ArgError(n, "unknown register")
	return 0
}

func (h *Host) pairArg(L *lua.LState, n int) cpu.Reg16 {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		if id := int(v); id >= 0 && id < cpu.NumReg16 {
			return cpu.Reg16(id) //nolint:gosec // G115: range checked
		}
	case lua.LString:
		if id, ok := h.reg16[strings.ToUpper(string(v))]; ok {
			return id
		}
	}
	L.ArgError(n, "unknown register pair")
	return 0
}

func checkByte(L *lua.LState, n int) uint8 {
	return uint8(L.CheckInt(n)) //nolint:gosec // G115: Z80 values wrap to 8 bits
}

func checkWord(L *lua.LState, n int) uint16 {
	return uint16(L.CheckInt(n)) //nolint:gosec // G115: Z80 addresses wrap to 16 bits
}

func (h *Host) getReg(L *lua.LState) int {
	L.Push(lua.LNumber(h.machine.CPU.Register8(h.regArg(L, 1))))
	return 1
}

func (h *Host) setReg(L *lua.LState) int {
	h.machine.CPU.SetRegister8(h.regArg(L, 1), checkByte(L, 2))
	return 0
}

func (h *Host) getPair(L *lua.LState) int {
	L.Push(lua.LNumber(h.machine.CPU.RegisterPair(h.pairArg(L, 1))))
	return 1
}

func (h *Host) setPair(L *lua.LState) int {
	h.machine.CPU.SetRegisterPair(h.pairArg(L, 1), checkWord(L, 2))
	return 0
}

func (h *Host) peek(L *lua.LState) int {
	L.Push(lua.LNumber(h.machine.Memory.Read(checkWord(L, 1))))
	return 1
}

func (h *Host) poke(L *lua.LState) int {
	h.machine.Memory.Write(checkWord(L, 1), checkByte(L, 2))
	return 0
}

func (h *Host) interrupt(L *lua.LState) int {
	h.machine.CPU.RequestInterrupt(uint8(L.OptInt(1, 0xFF))) //nolint:gosec // G115: data bus byte
	return 0
}

func (h *Host) nmi(*lua.LState) int {
	h.machine.CPU.RequestNMI()
	return 0
}

func (h *Host) halted(L *lua.LState) int {
	L.Push(lua.LBool(h.machine.CPU.Halted()))
	return 1
}

func (h *Host) cycles(L *lua.LState) int {
	L.Push(lua.LNumber(h.machine.CPU.Cycles()))
	return 1
}

func (h *Host) output(L *lua.LState) int {
	L.Push(lua.LString(h.machine.Output()))
	return 1
}

func (h *Host) print(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(h.out, strings.Join(parts, "\t"))
	return 0
}
