package emulator

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80core/internal/cpu"
)

// CP/M page zero layout.
const (
	warmBoot  = 0x0000
	bdosEntry = 0x0005
	fcb1      = 0x005C
	fcb2      = 0x006C
	cmdTail   = 0x0080
	tpaStart  = 0x0100

	// bdosBase is where the 0005 jump points; programs read 0006 to find
	// the top of the transient program area.
	bdosBase = 0xFE06
)

// BDOS function numbers, passed in C.
const (
	bdosTerminate     = 0
	bdosConsoleInput  = 1
	bdosConsoleOutput = 2
	bdosDirectIO      = 6
	bdosPrintString   = 9
	bdosConsoleStatus = 11
	bdosVersion       = 12
)

// cpmVersion is reported by function 12: CP/M 2.2.
const cpmVersion = 0x0022

const (
	ctrlZ     = 0x1A
	retCycles = 10
)

// installCPM lays out page zero (a warm boot vector, the BDOS jump and
// empty FCBs and command tail) and points the CPU at the program. Page
// zero must be RAM.
func (m *Machine) installCPM() error {
	if m.Memory.ROMSize() > 0 {
		return fmt.Errorf("%w: %d bytes mapped at 0000", ErrPageZeroROM, m.Memory.ROMSize())
	}

	page := make([]byte, tpaStart)
	page[warmBoot] = 0xC3 // JP bdosBase-3 (BIOS warm boot)
	page[warmBoot+1] = uint8((bdosBase - 3) & 0xFF)
	page[warmBoot+2] = uint8((bdosBase - 3) >> 8)
	page[bdosEntry] = 0xC3 // JP bdosBase
	page[bdosEntry+1] = uint8(bdosBase & 0xFF)
	page[bdosEntry+2] = uint8(bdosBase >> 8)
	for i := range 11 {
		page[fcb1+1+i] = ' '
		page[fcb2+1+i] = ' '
	}
	if err := m.Memory.Load(0, page); err != nil {
		return err
	}

	m.Memory.Write(bdosBase, 0xC9) // RET

	// The program starts with a return address of 0000 on the stack, so a
	// final RET is a warm boot.
	sp := uint16(bdosBase - 2)
	m.Memory.Write(sp, 0x00)
	m.Memory.Write(sp+1, 0x00)
	m.CPU.Registers.SetSP(sp)

	m.entry = tpaStart
	m.CPU.Registers.SetPC(tpaStart)
	return nil
}

// SetCommandTail stores a CP/M command tail at 0080 for the program to read.
func (m *Machine) SetCommandTail(args string) error {
	if len(args) > 127 {
		return fmt.Errorf("command tail is %d bytes, limit 127", len(args))
	}
	tail := make([]byte, 0, len(args)+1)
	tail = append(tail, byte(len(args)))
	tail = append(tail, args...)
	return m.Memory.Load(cmdTail, tail)
}

// bdos services the call at 0005 and returns to the caller.
func (m *Machine) bdos() int {
	r := m.CPU.Registers
	fn := r.Get8(cpu.RegC)
	m.log.WithFields(logrus.Fields{
		"function": fn,
		"de":       fmt.Sprintf("%04X", r.DE()),
	}).Debug("BDOS call")

	switch fn {
	case bdosTerminate:
		m.stop(nil, "program terminated")
		return 0

	case bdosConsoleInput:
		b := m.readKey()
		m.emit(b)
		m.setResult(b)

	case bdosConsoleOutput:
		m.emit(r.Get8(cpu.RegE))

	case bdosDirectIO:
		switch e := r.Get8(cpu.RegE); e {
		case 0xFF:
			var b byte
			if m.console != nil {
				b, _ = m.console.TryReadByte()
			}
			m.setResult(b)
		case 0xFE:
			m.setResult(m.consoleStatus())
		default:
			m.emit(e)
		}

	case bdosPrintString:
		m.printString(r.DE())

	case bdosConsoleStatus:
		m.setResult(m.consoleStatus())

	case bdosVersion:
		r.SetHL(cpmVersion)
		r.SetA(cpmVersion & 0xFF)
		r.Set8(cpu.RegB, cpmVersion>>8)

	default:
		m.stop(fmt.Errorf("%w: %d", ErrUnimplementedBDOS, fn), "BDOS call failed")
		return 0
	}

	r.SetPC(m.popWord())
	m.Clock.Update(retCycles)
	return retCycles
}

// setResult returns a byte the way BDOS does: in A and in L.
func (m *Machine) setResult(v uint8) {
	m.CPU.Registers.SetA(v)
	m.CPU.Registers.SetHL(uint16(v))
}

func (m *Machine) popWord() uint16 {
	sp := m.CPU.Registers.SP()
	v := uint16(m.Memory.Read(sp)) | uint16(m.Memory.Read(sp+1))<<8
	m.CPU.Registers.SetSP(sp + 2)
	return v
}

// printString prints the '$' terminated string at addr.
func (m *Machine) printString(addr uint16) {
	for range 0x10000 {
		c := m.Memory.Read(addr)
		if c == '$' {
			return
		}
		m.emit(c)
		addr++
	}
}

func (m *Machine) readKey() byte {
	if m.console == nil {
		return ctrlZ
	}
	b, err := m.console.ReadByte()
	if err != nil {
		m.log.WithError(err).Debug("console input ended")
		return ctrlZ
	}
	return b
}

func (m *Machine) consoleStatus() uint8 {
	if m.console != nil && m.console.Ready() {
		return 0xFF
	}
	return 0x00
}
