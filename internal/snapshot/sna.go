// Package snapshot reads and writes 48K ZX Spectrum .SNA snapshots.
//
// An SNA file is a 27 byte register header followed by the 48 KiB of RAM
// from 4000 to FFFF. The program counter is not in the header: it sits on
// top of the saved stack and is popped on restore, as a RETN would.
package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/richardwooding/z80core/internal/cpu"
)

// SNA layout.
const (
	HeaderSize = 27
	RAMStart   = 0x4000
	RAMSize    = 0xC000
	FileSize   = HeaderSize + RAMSize
)

// Header offsets that are not plain register bytes.
const (
	offIFF    = 19
	offIM     = 25
	offBorder = 26

	iffBit = 0x04 // IFF2 in the interrupt byte
)

// ErrInvalidSNA indicates data that is not a 48K SNA snapshot.
var ErrInvalidSNA = errors.New("invalid SNA snapshot")

// headerRegs maps header offsets to registers, in file order.
var headerRegs = []struct {
	offset int
	reg    cpu.Reg8
}{
	{0, cpu.RegI},
	{1, cpu.RegAltL}, {2, cpu.RegAltH},
	{3, cpu.RegAltE}, {4, cpu.RegAltD},
	{5, cpu.RegAltC}, {6, cpu.RegAltB},
	{7, cpu.RegAltF}, {8, cpu.RegAltA},
	{9, cpu.RegL}, {10, cpu.RegH},
	{11, cpu.RegE}, {12, cpu.RegD},
	{13, cpu.RegC}, {14, cpu.RegB},
	{15, cpu.RegIYL}, {16, cpu.RegIYH},
	{17, cpu.RegIXL}, {18, cpu.RegIXH},
	{20, cpu.RegR},
	{21, cpu.RegF}, {22, cpu.RegA},
	{23, cpu.RegSPL}, {24, cpu.RegSPH},
}

// Snapshot is a decoded SNA file.
type Snapshot struct {
	Header [HeaderSize]uint8
	RAM    [RAMSize]uint8
}

// Decode parses an SNA file.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) != FileSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSNA, len(data), FileSize)
	}
	s := &Snapshot{}
	copy(s.Header[:], data[:HeaderSize])
	copy(s.RAM[:], data[HeaderSize:])
	if im := s.Header[offIM]; im > 2 {
		return nil, fmt.Errorf("%w: interrupt mode %d", ErrInvalidSNA, im)
	}
	return s, nil
}

// Read parses an SNA file from r.
func Read(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, FileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data)
}

// Register returns a register's saved value. PC is not part of the header
// and reads as zero.
func (s *Snapshot) Register(id cpu.Reg8) uint8 {
	for _, hr := range headerRegs {
		if hr.reg == id {
			return s.Header[hr.offset]
		}
	}
	return 0
}

// SP returns the saved stack pointer, which points at the saved PC.
func (s *Snapshot) SP() uint16 {
	return uint16(s.Header[24])<<8 | uint16(s.Header[23])
}

// IFF2 reports whether interrupts were enabled.
func (s *Snapshot) IFF2() bool {
	return s.Header[offIFF]&iffBit != 0
}

// IM returns the saved interrupt mode.
func (s *Snapshot) IM() uint8 {
	return s.Header[offIM]
}

// Border returns the border colour.
func (s *Snapshot) Border() uint8 {
	return s.Header[offBorder] & 0x07
}

// Memory is where Apply restores RAM.
type Memory interface {
	Load(addr uint16, data []byte) error
	Read(addr uint16) uint8
}

// Apply loads the snapshot into a CPU and its memory, then pops PC from the
// stack and copies IFF2 to IFF1.
func (s *Snapshot) Apply(c *cpu.CPU, mem Memory) error {
	if err := mem.Load(RAMStart, s.RAM[:]); err != nil {
		return fmt.Errorf("failed to restore RAM: %w", err)
	}

	c.Reset()
	for _, hr := range headerRegs {
		c.SetRegister8(hr.reg, s.Header[hr.offset])
	}
	c.Registers.SetIFF(s.IFF2(), s.IFF2())
	c.Registers.SetIM(s.IM())

	sp := s.SP()
	pc := uint16(mem.Read(sp)) | uint16(mem.Read(sp+1))<<8
	c.Registers.SetPC(pc)
	c.Registers.SetSP(sp + 2)
	return nil
}

// Capture takes a snapshot of a running machine. PC is pushed onto the
// saved stack, so the stack must lie in RAM.
func Capture(c *cpu.CPU, mem cpu.Reader, border uint8) (*Snapshot, error) {
	sp := c.Registers.SP() - 2
	if sp < RAMStart || sp > 0xFFFE {
		return nil, fmt.Errorf("%w: stack at %04X is outside RAM", ErrInvalidSNA, c.Registers.SP())
	}

	s := &Snapshot{}
	for i := range RAMSize {
		s.RAM[i] = mem.Read(uint16(RAMStart + i)) //nolint:gosec // G115: RAMStart+i < 0x10000
	}
	pc := c.Registers.PC()
	s.RAM[sp-RAMStart] = uint8(pc)        //nolint:gosec // G115: low byte
	s.RAM[sp+1-RAMStart] = uint8(pc >> 8) //nolint:gosec // G115: high byte

	for _, hr := range headerRegs {
		s.Header[hr.offset] = c.Register8(hr.reg)
	}
	s.Header[23] = uint8(sp)      //nolint:gosec // G115: low byte
	s.Header[24] = uint8(sp >> 8) //nolint:gosec // G115: high byte
	if c.Registers.IFF2() {
		s.Header[offIFF] = iffBit
	}
	s.Header[offIM] = min(c.Registers.IM(), 2)
	s.Header[offBorder] = border & 0x07
	return s, nil
}

// Encode returns the snapshot in SNA file format.
func (s *Snapshot) Encode() []byte {
	out := make([]byte, 0, FileSize)
	out = append(out, s.Header[:]...)
	return append(out, s.RAM[:]...)
}

// Write writes the snapshot to w in SNA file format.
func (s *Snapshot) Write(w io.Writer) error {
	if _, err := w.Write(s.Encode()); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
