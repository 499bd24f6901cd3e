package cpu

// ALUOp selects an 8-bit accumulator operation. The order matches bits 5-3
// of the 0x80-0xBF opcode block.
type ALUOp uint8

// Accumulator operations.
const (
	OpADD ALUOp = iota
	OpADC
	OpSUB
	OpSBC
	OpAND
	OpXOR
	OpOR
	OpCP
)

// ShiftOp selects a CB-family rotate or shift. The order matches bits 5-3 of
// the CB 0x00-0x3F block.
type ShiftOp uint8

// Rotate and shift operations.
const (
	OpRLC ShiftOp = iota
	OpRRC
	OpRL
	OpRR
	OpSLA
	OpSRA
	OpSLL
	OpSRL
)

var aluNames = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}

var shiftNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

// SZ53 holds the S, Z, 5 and 3 flags for every byte value.
// SZ53P additionally holds even parity in P/V.
var SZ53, SZ53P = buildFlagTables()

func buildFlagTables() (sz53, sz53p [256]uint8) {
	for i := range 256 {
		v := uint8(i) //nolint:gosec // G115: i < 256
		f := v & (FlagS | flags53)
		if v == 0 {
			f |= FlagZ
		}
		sz53[i] = f
		if parityEven(v) {
			f |= FlagPV
		}
		sz53p[i] = f
	}
	return sz53, sz53p
}

func parityEven(v uint8) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

func parityFlag(v uint8) uint8 {
	return SZ53P[v] & FlagPV
}

// ALU performs an accumulator operation and returns the new accumulator and
// flags. For OpCP the accumulator is returned unchanged and bits 5 and 3 are
// taken from the operand.
func ALU(op ALUOp, a, b, f uint8) (uint8, uint8) {
	switch op {
	case OpADD, OpADC:
		var carry uint16
		if op == OpADC {
			carry = uint16(f & FlagC)
		}
		sum := uint16(a) + uint16(b) + carry
		res := uint8(sum) //nolint:gosec // G115: Intentional truncation to 8 bits
		flags := SZ53[res]
		if sum > 0xFF {
			flags |= FlagC
		}
		if uint16(a&0x0F)+uint16(b&0x0F)+carry > 0x0F {
			flags |= FlagH
		}
		if (a^b)&0x80 == 0 && (a^res)&0x80 != 0 {
			flags |= FlagPV
		}
		return res, flags
	case OpSUB, OpSBC, OpCP:
		var carry int
		if op == OpSBC {
			carry = int(f & FlagC)
		}
		diff := int(a) - int(b) - carry
		res := uint8(diff) //nolint:gosec // G115: Intentional truncation to 8 bits
		flags := SZ53[res] | FlagN
		if diff < 0 {
			flags |= FlagC
		}
		if int(a&0x0F)-int(b&0x0F)-carry < 0 {
			flags |= FlagH
		}
		if (a^b)&0x80 != 0 && (a^res)&0x80 != 0 {
			flags |= FlagPV
		}
		if op == OpCP {
			return a, flags&^flags53 | b&flags53
		}
		return res, flags
	case OpAND:
		res := a & b
		return res, SZ53P[res] | FlagH
	case OpXOR:
		res := a ^ b
		return res, SZ53P[res]
	default:
		res := a | b
		return res, SZ53P[res]
	}
}

// Inc8 increments v. Carry is preserved.
func Inc8(v, f uint8) (uint8, uint8) {
	res := v + 1
	flags := f&FlagC | SZ53[res]
	if v&0x0F == 0x0F {
		flags |= FlagH
	}
	if v == 0x7F {
		flags |= FlagPV
	}
	return res, flags
}

// Dec8 decrements v. Carry is preserved.
func Dec8(v, f uint8) (uint8, uint8) {
	res := v - 1
	flags := f&FlagC | FlagN | SZ53[res]
	if v&0x0F == 0 {
		flags |= FlagH
	}
	if v == 0x80 {
		flags |= FlagPV
	}
	return res, flags
}

// Add16 is ADD HL,rr. S, Z and P/V are preserved; bits 5 and 3 come from the
// high byte of the result.
func Add16(a, b uint16, f uint8) (uint16, uint8) {
	sum := uint32(a) + uint32(b)
	res := uint16(sum) //nolint:gosec // G115: Intentional truncation to 16 bits
	flags := f&(FlagS|FlagZ|FlagPV) | uint8(res>>8)&flags53
	if a&0x0FFF+b&0x0FFF > 0x0FFF {
		flags |= FlagH
	}
	if sum > 0xFFFF {
		flags |= FlagC
	}
	return res, flags
}

// Adc16 is ADC HL,rr.
func Adc16(a, b uint16, f uint8) (uint16, uint8) {
	carry := uint32(f & FlagC)
	sum := uint32(a) + uint32(b) + carry
	res := uint16(sum) //nolint:gosec // G115: Intentional truncation to 16 bits
	flags := uint8(res>>8) & (FlagS | flags53)
	if res == 0 {
		flags |= FlagZ
	}
	if uint32(a&0x0FFF)+uint32(b&0x0FFF)+carry > 0x0FFF {
		flags |= FlagH
	}
	if (a^b)&0x8000 == 0 && (a^res)&0x8000 != 0 {
		flags |= FlagPV
	}
	if sum > 0xFFFF {
		flags |= FlagC
	}
	return res, flags
}

// Sbc16 is SBC HL,rr.
func Sbc16(a, b uint16, f uint8) (uint16, uint8) {
	carry := int32(f & FlagC)
	diff := int32(a) - int32(b) - carry
	res := uint16(diff) //nolint:gosec // G115: Intentional truncation to 16 bits
	flags := FlagN | uint8(res>>8)&(FlagS|flags53)
	if res == 0 {
		flags |= FlagZ
	}
	if int32(a&0x0FFF)-int32(b&0x0FFF)-carry < 0 {
		flags |= FlagH
	}
	if (a^b)&0x8000 != 0 && (a^res)&0x8000 != 0 {
		flags |= FlagPV
	}
	if diff < 0 {
		flags |= FlagC
	}
	return res, flags
}

// rotate computes a rotate or shift and the carry out.
func rotate(op ShiftOp, v, f uint8) (res, carry uint8) {
	cin := f & FlagC
	switch op {
	case OpRLC:
		return v<<1 | v>>7, v >> 7
	case OpRRC:
		return v>>1 | v<<7, v & 1
	case OpRL:
		return v<<1 | cin, v >> 7
	case OpRR:
		return v>>1 | cin<<7, v & 1
	case OpSLA:
		return v << 1, v >> 7
	case OpSRA:
		return v>>1 | v&0x80, v & 1
	case OpSLL:
		return v<<1 | 1, v >> 7
	default:
		return v >> 1, v & 1
	}
}

// Shift performs a CB-family rotate or shift, including the undocumented SLL.
func Shift(op ShiftOp, v, f uint8) (uint8, uint8) {
	res, carry := rotate(op, v, f)
	return res, SZ53P[res] | carry
}

// RotateA performs RLCA, RRCA, RLA or RRA. S, Z and P/V are preserved.
func RotateA(op ShiftOp, a, f uint8) (uint8, uint8) {
	res, carry := rotate(op, a, f)
	return res, f&(FlagS|FlagZ|FlagPV) | res&flags53 | carry
}

// Daa adjusts the accumulator after BCD addition or subtraction.
func Daa(a, f uint8) (uint8, uint8) {
	var corr uint8
	carry := f & FlagC
	if f&FlagH != 0 || a&0x0F > 9 {
		corr |= 0x06
	}
	if carry != 0 || a > 0x99 {
		corr |= 0x60
		carry = FlagC
	}
	var res, half uint8
	if f&FlagN != 0 {
		res = a - corr
		if f&FlagH != 0 && a&0x0F < 6 {
			half = FlagH
		}
	} else {
		res = a + corr
		if a&0x0F > 9 {
			half = FlagH
		}
	}
	return res, SZ53P[res] | f&FlagN | carry | half
}

// Cpl complements the accumulator.
func Cpl(a, f uint8) (uint8, uint8) {
	res := ^a
	return res, f&(FlagS|FlagZ|FlagPV|FlagC) | FlagH | FlagN | res&flags53
}

// Neg negates the accumulator.
func Neg(a uint8) (uint8, uint8) {
	return ALU(OpSUB, 0, a, 0)
}

// Scf sets carry. Bits 5 and 3 come from the accumulator.
func Scf(a, f uint8) uint8 {
	return f&(FlagS|FlagZ|FlagPV) | a&flags53 | FlagC
}

// Ccf complements carry; H receives the previous carry.
func Ccf(a, f uint8) uint8 {
	flags := f&(FlagS|FlagZ|FlagPV) | a&flags53
	if f&FlagC != 0 {
		flags |= FlagH
	} else {
		flags |= FlagC
	}
	return flags
}

// Bit tests bit n of v. Bits 5 and 3 come from xy: the operand for register
// forms and the high byte of MEMPTR for memory forms.
func Bit(n, v, xy, f uint8) uint8 {
	res := v & (1 << (n & 7))
	flags := f&FlagC | FlagH | xy&flags53
	if res == 0 {
		flags |= FlagZ | FlagPV
	}
	if res&0x80 != 0 {
		flags |= FlagS
	}
	return flags
}
