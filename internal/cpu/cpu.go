// Package cpu implements the Zilog Z80 instruction set, including the
// undocumented opcodes and flag behaviour.
package cpu

// Bus is the CPU's view of memory and I/O space.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	ReadPort(port uint16) uint8
	WritePort(port uint16, value uint8)
}

// CPU represents a Z80 processor.
type CPU struct {
	Registers *Registers
	Bus       Bus

	resetFill uint8

	// Latched interrupt lines
	intPending bool
	intData    uint8
	nmiPending bool

	// afterEI blocks maskable interrupts for one instruction after EI.
	afterEI bool

	cycles uint64
}

// Option configures a CPU.
type Option func(*CPU)

// WithResetFill sets the value loaded into the general purpose, index and
// stack pointer registers on reset. The default is 0xFF.
func WithResetFill(value uint8) Option {
	return func(c *CPU) {
		c.resetFill = value
	}
}

// New creates a new CPU attached to bus and resets it.
func New(bus Bus, opts ...Option) *CPU {
	c := &CPU{
		Registers: NewRegisters(),
		Bus:       bus,
		resetFill: 0xFF,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset puts the CPU in its power-on state: PC, I and R cleared, interrupts
// disabled in mode 0, not halted, every other register set to the reset
// fill value. Pending interrupt requests are dropped.
func (c *CPU) Reset() {
	c.Registers.fill(c.resetFill)
	c.intPending = false
	c.intData = 0
	c.nmiPending = false
	c.afterEI = false
	c.cycles = 0
}

// Step executes one instruction, or accepts one interrupt, or idles one
// halted machine cycle, and returns the T-states consumed.
func (c *CPU) Step() int {
	cycles, ok := c.acceptInterrupt()
	if !ok {
		if c.Registers.Halted() {
			c.Registers.incR()
			cycles = 4
		} else {
			cycles = c.execute()
		}
	}

	c.cycles += uint64(cycles) //nolint:gosec // G115: cycles is always positive
	return cycles
}

// Cycles returns the T-states executed since the last reset.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// Register8 returns an 8-bit register by stable id.
func (c *CPU) Register8(id Reg8) uint8 {
	return c.Registers.Get8(id)
}

// SetRegister8 sets an 8-bit register by stable id.
func (c *CPU) SetRegister8(id Reg8, value uint8) {
	c.Registers.Set8(id, value)
}

// RegisterPair returns a register pair by stable id.
func (c *CPU) RegisterPair(id Reg16) uint16 {
	return c.Registers.Get16(id)
}

// SetRegisterPair sets a register pair by stable id.
func (c *CPU) SetRegisterPair(id Reg16, value uint16) {
	c.Registers.Set16(id, value)
}

// Halted reports whether the CPU is idling after HALT.
func (c *CPU) Halted() bool {
	return c.Registers.Halted()
}

// SetHalted forces the halt state. Releasing a halt this way resumes
// execution at the instruction after HALT.
func (c *CPU) SetHalted(halted bool) {
	c.Registers.SetHalted(halted)
}

// fetchOpcode fetches an opcode byte (an M1 cycle) and advances R.
func (c *CPU) fetchOpcode() uint8 {
	c.Registers.incR()
	return c.fetchByte()
}

// fetchByte fetches the next byte from memory and increments PC.
func (c *CPU) fetchByte() uint8 {
	pc := c.Registers.PC()
	value := c.Bus.Read(pc)
	c.Registers.SetPC(pc + 1)
	return value
}

// fetchWord fetches the next word (16-bit) from memory and increments PC.
func (c *CPU) fetchWord() uint16 {
	low := uint16(c.fetchByte())
	high := uint16(c.fetchByte())
	return high<<8 | low
}

// fetchDisp fetches a signed displacement.
func (c *CPU) fetchDisp() uint16 {
	return uint16(int16(int8(c.fetchByte()))) //nolint:gosec // G115: Intentional sign extension
}

func (c *CPU) readWord(addr uint16) uint16 {
	low := uint16(c.Bus.Read(addr))
	high := uint16(c.Bus.Read(addr + 1))
	return high<<8 | low
}

func (c *CPU) writeWord(addr, value uint16) {
	c.Bus.Write(addr, uint8(value))      //nolint:gosec // G115: Intentional byte extraction from 16-bit value
	c.Bus.Write(addr+1, uint8(value>>8)) //nolint:gosec // G115: Intentional byte extraction from 16-bit value
}

// push pushes a 16-bit value onto the stack.
func (c *CPU) push(value uint16) {
	sp := c.Registers.SP() - 2
	c.Registers.SetSP(sp)
	c.writeWord(sp, value)
}

// pop pops a 16-bit value from the stack.
func (c *CPU) pop() uint16 {
	sp := c.Registers.SP()
	value := c.readWord(sp)
	c.Registers.SetSP(sp + 2)
	return value
}

// checkCondition evaluates condition code cc (bits 5-3 of the opcode):
// NZ, Z, NC, C, PO, PE, P, M.
func (c *CPU) checkCondition(cc uint8) bool {
	f := c.Registers.F()
	switch cc & 7 {
	case 0:
		return f&FlagZ == 0
	case 1:
		return f&FlagZ != 0
	case 2:
		return f&FlagC == 0
	case 3:
		return f&FlagC != 0
	case 4:
		return f&FlagPV == 0
	case 5:
		return f&FlagPV != 0
	case 6:
		return f&FlagS == 0
	default:
		return f&FlagS != 0
	}
}

// alu applies op to the accumulator.
func (c *CPU) alu(op ALUOp, operand uint8) {
	r := c.Registers
	res, f := ALU(op, r.A(), operand, r.F())
	r.SetA(res)
	r.SetF(f)
}
