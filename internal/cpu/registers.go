package cpu

import "fmt"

// Flags represents the F register bits.
const (
	FlagS  uint8 = 0b10000000 // Sign flag (bit 7)
	FlagZ  uint8 = 0b01000000 // Zero flag (bit 6)
	Flag5  uint8 = 0b00100000 // Undocumented copy of result bit 5
	FlagH  uint8 = 0b00010000 // Half-carry flag (bit 4)
	Flag3  uint8 = 0b00001000 // Undocumented copy of result bit 3
	FlagPV uint8 = 0b00000100 // Parity/overflow flag (bit 2)
	FlagN  uint8 = 0b00000010 // Subtraction flag (bit 1)
	FlagC  uint8 = 0b00000001 // Carry flag (bit 0)

	flags53 = Flag5 | Flag3
)

// Reg8 identifies an 8-bit register cell. The numbering is stable and shared
// with every host adapter.
type Reg8 uint8

// 8-bit register identifiers.
const (
	RegB Reg8 = iota
	RegC
	RegD
	RegE
	RegH
	RegL
	RegF
	RegA
	RegAltB
	RegAltC
	RegAltD
	RegAltE
	RegAltH
	RegAltL
	RegAltF
	RegAltA
	RegIXH
	RegIXL
	RegIYH
	RegIYL
	RegSPH
	RegSPL
	RegPCH
	RegPCL
	RegI
	RegR
	RegIMIFF // ---HIM21: halt, interrupt mode, IFF2, IFF1

	NumReg8 = int(RegIMIFF) + 1
)

// Reg16 identifies a 16-bit register pair.
type Reg16 uint8

// 16-bit register pair identifiers.
const (
	RegBC Reg16 = iota
	RegDE
	RegHL
	RegAF
	RegAltBC
	RegAltDE
	RegAltHL
	RegAltAF
	RegIX
	RegIY
	RegSP
	RegPC
	RegIR

	NumReg16 = int(RegIR) + 1
)

// State word bits in RegIMIFF.
const (
	stateIFF1   uint8 = 0b00000001
	stateIFF2   uint8 = 0b00000010
	stateIMMask uint8 = 0b00001100
	stateHalt   uint8 = 0b00010000
)

var reg8Names = [NumReg8]string{
	"B", "C", "D", "E", "H", "L", "F", "A",
	"B'", "C'", "D'", "E'", "H'", "L'", "F'", "A'",
	"IXH", "IXL", "IYH", "IYL", "SPH", "SPL", "PCH", "PCL",
	"I", "R", "IMIFF",
}

var reg16Names = [NumReg16]string{
	"BC", "DE", "HL", "AF", "BC'", "DE'", "HL'", "AF'",
	"IX", "IY", "SP", "PC", "IR",
}

// pairCells maps a pair to its high and low cells.
var pairCells = [NumReg16][2]Reg8{
	{RegB, RegC},
	{RegD, RegE},
	{RegH, RegL},
	{RegA, RegF},
	{RegAltB, RegAltC},
	{RegAltD, RegAltE},
	{RegAltH, RegAltL},
	{RegAltA, RegAltF},
	{RegIXH, RegIXL},
	{RegIYH, RegIYL},
	{RegSPH, RegSPL},
	{RegPCH, RegPCL},
	{RegI, RegR},
}

func (r Reg8) String() string {
	if int(r) >= NumReg8 {
		return fmt.Sprintf("Reg8(%d)", uint8(r))
	}
	return reg8Names[r]
}

func (r Reg16) String() string {
	if int(r) >= NumReg16 {
		return fmt.Sprintf("Reg16(%d)", uint8(r))
	}
	return reg16Names[r]
}

// Registers holds the complete Z80 register file.
//
// Cells are stored flat in the stable numbering. EXX and EX AF,AF' do not
// move data: they flip a bank selector and rebuild the slot map that
// translates logical ids into physical cells.
type Registers struct {
	cells [NumReg8]uint8
	slot  [NumReg8]uint8
	altGP bool
	altAF bool

	// WZ is the internal MEMPTR register. It is only observable through the
	// undocumented flag bits of BIT n,(HL).
	WZ uint16
}

// NewRegisters creates a register file with every cell cleared.
func NewRegisters() *Registers {
	r := &Registers{}
	r.remap()
	return r
}

func (r *Registers) remap() {
	for i := range r.slot {
		r.slot[i] = uint8(i) //nolint:gosec // G115: i < NumReg8
	}
	if r.altGP {
		for i := RegB; i <= RegL; i++ {
			r.slot[i], r.slot[i+8] = uint8(i+8), uint8(i)
		}
	}
	if r.altAF {
		r.slot[RegF], r.slot[RegAltF] = uint8(RegAltF), uint8(RegF)
		r.slot[RegA], r.slot[RegAltA] = uint8(RegAltA), uint8(RegA)
	}
}

// Get8 returns the value of an 8-bit register.
func (r *Registers) Get8(id Reg8) uint8 {
	if int(id) >= NumReg8 {
		panic(fmt.Sprintf("cpu: invalid 8-bit register %d", uint8(id)))
	}
	return r.cells[r.slot[id]]
}

// Set8 sets the value of an 8-bit register.
func (r *Registers) Set8(id Reg8, value uint8) {
	if int(id) >= NumReg8 {
		panic(fmt.Sprintf("cpu: invalid 8-bit register %d", uint8(id)))
	}
	r.cells[r.slot[id]] = value
}

// Get16 returns the value of a register pair.
func (r *Registers) Get16(id Reg16) uint16 {
	if int(id) >= NumReg16 {
		panic(fmt.Sprintf("cpu: invalid register pair %d", uint8(id)))
	}
	c := pairCells[id]
	return uint16(r.cells[r.slot[c[0]]])<<8 | uint16(r.cells[r.slot[c[1]]])
}

// Set16 sets the value of a register pair.
func (r *Registers) Set16(id Reg16, value uint16) {
	if int(id) >= NumReg16 {
		panic(fmt.Sprintf("cpu: invalid register pair %d", uint8(id)))
	}
	c := pairCells[id]
	r.cells[r.slot[c[0]]] = uint8(value >> 8) //nolint:gosec // G115: Intentional byte extraction from 16-bit register
	r.cells[r.slot[c[1]]] = uint8(value)      //nolint:gosec // G115: Intentional byte extraction from 16-bit register
}

// Exx swaps BC, DE and HL with their shadow pairs.
func (r *Registers) Exx() {
	r.altGP = !r.altGP
	r.remap()
}

// ExAF swaps AF with AF'.
func (r *Registers) ExAF() {
	r.altAF = !r.altAF
	r.remap()
}

// fill sets every cell except PC, I, R and the state word, and selects the
// primary banks.
func (r *Registers) fill(value uint8) {
	r.altGP, r.altAF = false, false
	r.remap()
	for i := range r.cells {
		r.cells[i] = value
	}
	r.cells[RegPCH], r.cells[RegPCL] = 0, 0
	r.cells[RegI], r.cells[RegR] = 0, 0
	r.cells[RegIMIFF] = 0
	r.WZ = 0
}

// 8-bit accessors

// A returns the accumulator.
func (r *Registers) A() uint8 { return r.Get8(RegA) }

// SetA sets the accumulator.
func (r *Registers) SetA(v uint8) { r.Set8(RegA, v) }

// F returns the flag register.
func (r *Registers) F() uint8 { return r.Get8(RegF) }

// SetF sets the flag register.
func (r *Registers) SetF(v uint8) { r.Set8(RegF, v) }

// 16-bit register pair getters

// BC returns the 16-bit BC register pair.
func (r *Registers) BC() uint16 { return r.Get16(RegBC) }

// DE returns the 16-bit DE register pair.
func (r *Registers) DE() uint16 { return r.Get16(RegDE) }

// HL returns the 16-bit HL register pair.
func (r *Registers) HL() uint16 { return r.Get16(RegHL) }

// AF returns the 16-bit AF register pair.
func (r *Registers) AF() uint16 { return r.Get16(RegAF) }

// SP returns the stack pointer.
func (r *Registers) SP() uint16 { return r.Get16(RegSP) }

// PC returns the program counter.
func (r *Registers) PC() uint16 { return r.Get16(RegPC) }

// 16-bit register pair setters

// SetBC sets the 16-bit BC register pair.
func (r *Registers) SetBC(v uint16) { r.Set16(RegBC, v) }

// SetDE sets the 16-bit DE register pair.
func (r *Registers) SetDE(v uint16) { r.Set16(RegDE, v) }

// SetHL sets the 16-bit HL register pair.
func (r *Registers) SetHL(v uint16) { r.Set16(RegHL, v) }

// SetAF sets the 16-bit AF register pair.
func (r *Registers) SetAF(v uint16) { r.Set16(RegAF, v) }

// SetSP sets the stack pointer.
func (r *Registers) SetSP(v uint16) { r.Set16(RegSP, v) }

// SetPC sets the program counter.
func (r *Registers) SetPC(v uint16) { r.Set16(RegPC, v) }

// Flag operations

// Flag checks if a flag is set.
func (r *Registers) Flag(flag uint8) bool {
	return r.F()&flag != 0
}

// SetFlagTo sets a flag to a specific boolean value.
func (r *Registers) SetFlagTo(flag uint8, value bool) {
	if value {
		r.SetF(r.F() | flag)
	} else {
		r.SetF(r.F() &^ flag)
	}
}

// State word

// IFF1 reports the interrupt enable flip-flop 1.
func (r *Registers) IFF1() bool { return r.cells[RegIMIFF]&stateIFF1 != 0 }

// IFF2 reports the interrupt enable flip-flop 2.
func (r *Registers) IFF2() bool { return r.cells[RegIMIFF]&stateIFF2 != 0 }

// IM returns the interrupt mode (0, 1 or 2).
func (r *Registers) IM() uint8 { return (r.cells[RegIMIFF] & stateIMMask) >> 2 }

// Halted reports the halt bit.
func (r *Registers) Halted() bool { return r.cells[RegIMIFF]&stateHalt != 0 }

func (r *Registers) setState(bit uint8, on bool) {
	if on {
		r.cells[RegIMIFF] |= bit
	} else {
		r.cells[RegIMIFF] &^= bit
	}
}

// SetIFF sets both interrupt flip-flops.
func (r *Registers) SetIFF(iff1, iff2 bool) {
	r.setState(stateIFF1, iff1)
	r.setState(stateIFF2, iff2)
}

// SetIM sets the interrupt mode. Only the low two bits are kept.
func (r *Registers) SetIM(mode uint8) {
	r.cells[RegIMIFF] = r.cells[RegIMIFF]&^stateIMMask | (mode<<2)&stateIMMask
}

// SetHalted sets the halt bit.
func (r *Registers) SetHalted(on bool) { r.setState(stateHalt, on) }

// incR advances the 7-bit memory refresh counter, keeping bit 7.
func (r *Registers) incR() {
	v := r.cells[RegR]
	r.cells[RegR] = v&0x80 | (v+1)&0x7F
}

// decR undoes incR.
func (r *Registers) decR() {
	v := r.cells[RegR]
	r.cells[RegR] = v&0x80 | (v-1)&0x7F
}
