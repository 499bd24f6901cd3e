package testbench

import (
	"github.com/koron-go/z80"

	"github.com/richardwooding/z80core/internal/cpu"
)

// PortWrite is one OUT performed by an instruction. Only the low byte of
// the port address is recorded since not every processor sees the rest.
type PortWrite struct {
	Port  uint8
	Value uint8
}

// State is everything the bench sets before an instruction and compares
// after it.
type State struct {
	Regs   [cpu.NumReg8]uint8
	Memory [0x10000]uint8
	Writes []PortWrite
}

// Processor is an emulated Z80 under test.
type Processor interface {
	Name() string
	// Load replaces the processor's registers and memory.
	Load(s *State)
	// Step executes one instruction.
	Step()
	// Save copies the processor's registers, memory and port writes to s.
	Save(s *State)
}

// portValue is what every bench port returns on IN.
func portValue(port uint8) uint8 {
	return port ^ 0xA5
}

// benchBus is a flat 64 KiB memory with logged ports.
type benchBus struct {
	mem    [0x10000]uint8
	writes []PortWrite
}

func (b *benchBus) Read(addr uint16) uint8 { return b.mem[addr] }
func (b *benchBus) Write(addr uint16, value uint8) { b.mem[addr] = value }

func (b *benchBus) ReadPort(port uint16) uint8 {
	return portValue(uint8(port)) //nolint:gosec // G115: low byte selects the port
}

func (b *benchBus) WritePort(port uint16, value uint8) {
	b.writes = append(b.writes, PortWrite{Port: uint8(port), Value: value}) //nolint:gosec // G115: low byte
}

// koron-go/z80 memory and I/O interfaces.
func (b *benchBus) Get(addr uint16) uint8 { return b.mem[addr] }
func (b *benchBus) Set(addr uint16, value uint8) { b.mem[addr] = value }
func (b *benchBus) In(port uint8) uint8 { return portValue(port) }
func (b *benchBus) Out(port uint8, value uint8) {
	b.writes = append(b.writes, PortWrite{Port: port, Value: value})
}

func (b *benchBus) load(s *State) {
	b.mem = s.Memory
	b.writes = b.writes[:0]
}

func (b *benchBus) save(s *State) {
	s.Memory = b.mem
	s.Writes = append(s.Writes[:0], b.writes...)
}

// Core runs this module's CPU.
type Core struct {
	bus *benchBus
	cpu *cpu.CPU
}

// NewCore creates the bench processor for this module's CPU.
func NewCore() *Core {
	bus := &benchBus{}
	return &Core{bus: bus, cpu: cpu.New(bus)}
}

// Name implements Processor.
func (p *Core) Name() string { return "z80core" }

// Load implements Processor.
func (p *Core) Load(s *State) {
	p.bus.load(s)
	p.cpu.Reset()
	for id, v := range s.Regs {
		p.cpu.SetRegister8(cpu.Reg8(id), v) //nolint:gosec // G115: id < NumReg8
	}
}

// Step implements Processor.
func (p *Core) Step() { p.cpu.Step() }

// Save implements Processor.
func (p *Core) Save(s *State) {
	p.bus.save(s)
	for id := range s.Regs {
		s.Regs[id] = p.cpu.Register8(cpu.Reg8(id)) //nolint:gosec // G115: id < NumReg8
	}
}

// Koron runs github.com/koron-go/z80 as the reference processor.
type Koron struct {
	bus *benchBus
	cpu z80.CPU
}

// NewKoron creates the reference processor.
func NewKoron() *Koron {
	return &Koron{bus: &benchBus{}}
}

// Name implements Processor.
func (p *Koron) Name() string { return "koron-go/z80" }

// Load implements Processor.
func (p *Koron) Load(s *State) {
	p.bus.load(s)
	r := &s.Regs
	pair := func(hi, lo cpu.Reg8) z80.Register {
		return z80.Register{Hi: r[hi], Lo: r[lo]}
	}
	word := func(hi, lo cpu.Reg8) uint16 {
		return uint16(r[hi])<<8 | uint16(r[lo])
	}
	state := r[cpu.RegIMIFF]

	p.cpu = z80.CPU{
		States: z80.States{
			GPR: z80.GPR{
				AF: pair(cpu.RegA, cpu.RegF),
				BC: pair(cpu.RegB, cpu.RegC),
				DE: pair(cpu.RegD, cpu.RegE),
				HL: pair(cpu.RegH, cpu.RegL),
			},
			Alternate: z80.GPR{
				AF: pair(cpu.RegAltA, cpu.RegAltF),
				BC: pair(cpu.RegAltB, cpu.RegAltC),
				DE: pair(cpu.RegAltD, cpu.RegAltE),
				HL: pair(cpu.RegAltH, cpu.RegAltL),
			},
			SPR: z80.SPR{
				PC: word(cpu.RegPCH, cpu.RegPCL),
				SP: word(cpu.RegSPH, cpu.RegSPL),
				IX: word(cpu.RegIXH, cpu.RegIXL),
				IY: word(cpu.RegIYH, cpu.RegIYL),
				IR: pair(cpu.RegI, cpu.RegR),
			},
			IFF1: state&0x01 != 0,
			IFF2: state&0x02 != 0,
			IM:   int(state>>2) & 0x03,
		},
		Memory: p.bus,
		IO:     p.bus,
		HALT:   state&0x10 != 0,
	}
}

// Step implements Processor.
func (p *Koron) Step() { p.cpu.Step() }

// Unsupported implements Limited. koron-go/z80 ignores DD and FD in front
// of opcodes that do not use the index register, runs only the (IX+d)
// forms of DDCB and FDCB, has no ED mirrors of NEG, RETN and IM, no
// IN F,(C) or OUT (C),0, reads INI from port B and leaves IFF1 alone on
// RETI.
func (p *Koron) Unsupported(fam Family, op uint8) bool {
	switch fam.Name {
	case "DD", "FD":
		return !usesIndex(op)
	case "DDCB", "FDCB":
		return op&0x07 != 6
	case "ED":
		switch op {
		case 0x4C, 0x54, 0x5C, 0x64, 0x6C, 0x74, 0x7C, 0x55, 0x5D, 0x65, 0x6D, 0x75, 0x7D, 0x4E, 0x66, 0x6E, 0x76, 0x7E:
			return true
		case 0x70, 0x71, 0x4D:
			return true
		// The OUTI group also sets N and keeps C.
		case 0xA2, 0xAA, 0xB2, 0xBA, 0xA3, 0xAB, 0xB3, 0xBB:
			return true
		}
	}
	return false
}

// usesIndex reports whether a DD or FD prefix changes what op does.
func usesIndex(op uint8) bool {
	if op >= 0x40 && op < 0xC0 {
		return true
	}
	switch op {
	case 0x09, 0x19, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x29, 0x2A, 0x2B,
		0x2C, 0x2D, 0x2E, 0x34, 0x35, 0x36, 0x39, 0xE1, 0xE3, 0xE5, 0xE9, 0xF9:
		return true
	}
	return false
}

// Save implements Processor.
func (p *Koron) Save(s *State) {
	p.bus.save(s)
	st := &p.cpu.States
	r := &s.Regs
	put := func(hi, lo cpu.Reg8, v z80.Register) {
		r[hi], r[lo] = v.Hi, v.Lo
	}
	putWord := func(hi, lo cpu.Reg8, v uint16) {
		r[hi], r[lo] = uint8(v>>8), uint8(v) //nolint:gosec // G115: byte halves
	}

	put(cpu.RegA, cpu.RegF, st.AF)
	put(cpu.RegB, cpu.RegC, st.BC)
	put(cpu.RegD, cpu.RegE, st.DE)
	put(cpu.RegH, cpu.RegL, st.HL)
	put(cpu.RegAltA, cpu.RegAltF, st.Alternate.AF)
	put(cpu.RegAltB, cpu.RegAltC, st.Alternate.BC)
	put(cpu.RegAltD, cpu.RegAltE, st.Alternate.DE)
	put(cpu.RegAltH, cpu.RegAltL, st.Alternate.HL)
	putWord(cpu.RegPCH, cpu.RegPCL, st.PC)
	putWord(cpu.RegSPH, cpu.RegSPL, st.SP)
	putWord(cpu.RegIXH, cpu.RegIXL, st.IX)
	putWord(cpu.RegIYH, cpu.RegIYL, st.IY)
	put(cpu.RegI, cpu.RegR, st.IR)

	var state uint8
	if st.IFF1 {
		state |= 0x01
	}
	if st.IFF2 {
		state |= 0x02
	}
	state |= uint8(st.IM&0x03) << 2 //nolint:gosec // G115: masked to 2 bits
	if p.cpu.HALT {
		state |= 0x10
	}
	r[cpu.RegIMIFF] = state
}
