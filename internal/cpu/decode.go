package cpu

import "fmt"

// opFunc executes one instruction after its opcode bytes have been fetched
// and returns the T-states it took beyond the table cost (branch taken,
// block repeat).
type opFunc func(c *CPU) int

// entry is one slot of a decode table.
type entry struct {
	mnemonic string
	exec     opFunc
	cycles   int
	length   int
}

// Prefix identifies the decode table an instruction came from.
type Prefix uint8

// Decode table families.
const (
	PrefixNone Prefix = iota
	PrefixCB
	PrefixED
	PrefixDD
	PrefixFD
	PrefixDDCB
	PrefixFDCB
)

func (p Prefix) String() string {
	switch p {
	case PrefixNone:
		return "none"
	case PrefixCB:
		return "CB"
	case PrefixED:
		return "ED"
	case PrefixDD:
		return "DD"
	case PrefixFD:
		return "FD"
	case PrefixDDCB:
		return "DDCB"
	case PrefixFDCB:
		return "FDCB"
	default:
		return fmt.Sprintf("Prefix(%d)", uint8(p))
	}
}

var (
	baseTable [256]entry
	cbTable   [256]entry
	edTable   [256]entry
	ddTable   [256]entry
	fdTable   [256]entry
	ddcbTable [256]entry
	fdcbTable [256]entry
)

func init() {
	buildBaseTable()
	buildCBTable()
	buildEDTable()
	ddTable = buildIndexTable(RegIX, RegIXH, RegIXL)
	fdTable = buildIndexTable(RegIY, RegIYH, RegIYL)
	ddcbTable = buildIndexBitTable("IX")
	fdcbTable = buildIndexBitTable("IY")
}

func def(t *[256]entry, op int, mnemonic string, cycles, length int, exec opFunc) {
	t[op] = entry{mnemonic: mnemonic, exec: exec, cycles: cycles, length: length}
}

func (e *entry) run(c *CPU) int {
	return e.cycles + e.exec(c)
}

// execute fetches, decodes and executes one instruction.
func (c *CPU) execute() int {
	op := c.fetchOpcode()
	switch op {
	case 0xCB:
		return cbTable[c.fetchOpcode()].run(c)
	case 0xED:
		return edTable[c.fetchOpcode()].run(c)
	case 0xDD:
		return c.executeIndexed(&ddTable, &ddcbTable, RegIX)
	case 0xFD:
		return c.executeIndexed(&fdTable, &fdcbTable, RegIY)
	default:
		return baseTable[op].run(c)
	}
}

func (c *CPU) executeIndexed(table, bits *[256]entry, idx Reg16) int {
	op := c.fetchOpcode()
	if op != 0xCB {
		return table[op].run(c)
	}
	// DD CB d op: the displacement precedes the opcode, neither is an M1 fetch.
	c.Registers.WZ = c.Registers.Get16(idx) + c.fetchDisp()
	return bits[c.fetchByte()].run(c)
}

// Reader is the read side of a Bus.
type Reader interface {
	Read(addr uint16) uint8
}

// Instruction describes a decoded instruction without executing it.
type Instruction struct {
	Address  uint16
	Prefix   Prefix
	Opcode   uint8
	Mnemonic string
	Cycles   int // base cost; taken branches and repeats add to it
	Length   int
	Bytes    []uint8
}

func (i Instruction) String() string {
	return fmt.Sprintf("%04X  % X  %s", i.Address, i.Bytes, i.Mnemonic)
}

// Decode reports the table entry for the instruction at pc.
func Decode(mem Reader, pc uint16) Instruction {
	op := mem.Read(pc)
	var (
		e      *entry
		prefix = PrefixNone
		opcode = op
	)
	switch op {
	case 0xCB:
		opcode = mem.Read(pc + 1)
		e, prefix = &cbTable[opcode], PrefixCB
	case 0xED:
		opcode = mem.Read(pc + 1)
		e, prefix = &edTable[opcode], PrefixED
	case 0xDD, 0xFD:
		table, bits, p, pb := &ddTable, &ddcbTable, PrefixDD, PrefixDDCB
		if op == 0xFD {
			table, bits, p, pb = &fdTable, &fdcbTable, PrefixFD, PrefixFDCB
		}
		opcode = mem.Read(pc + 1)
		if opcode == 0xCB {
			opcode = mem.Read(pc + 3)
			e, prefix = &bits[opcode], pb
		} else {
			e, prefix = &table[opcode], p
		}
	default:
		e = &baseTable[op]
	}

	length := e.length
	if e.exec == nil {
		length = 1
	}
	b := make([]uint8, length)
	for i := range b {
		b[i] = mem.Read(pc + uint16(i)) //nolint:gosec // G115: i < 4
	}
	return Instruction{
		Address:  pc,
		Prefix:   prefix,
		Opcode:   opcode,
		Mnemonic: e.mnemonic,
		Cycles:   e.cycles,
		Length:   length,
		Bytes:    b,
	}
}
