package cpu

// buildCBTable fills the CB-prefixed rotate, shift and bit table.
//
// Bits 7-6 select the operation group (rotate/shift, BIT, RES, SET), bits 5-3
// the shift kind or bit number and bits 2-0 the operand, with 6 meaning (HL).
func buildCBTable() {
	t := &cbTable
	for op := range 256 {
		x, y, z := op>>6, uint8(op>>3&7), op&7 //nolint:gosec // G115: y < 8
		operand := r8Names[z]
		mem := z == 6
		r := Reg8(z) //nolint:gosec // G115: z < 8

		switch x {
		case 0:
			name := shiftNames[y] + " " + operand
			if mem {
				def(t, op, name, 15, 2, shiftMem(ShiftOp(y), hlAddr, nil))
			} else {
				def(t, op, name, 8, 2, shiftReg(ShiftOp(y), r))
			}
		case 1:
			name := "BIT " + string('0'+rune(y)) + "," + operand
			if mem {
				def(t, op, name, 12, 2, bitMem(y, hlAddr))
			} else {
				def(t, op, name, 8, 2, bitReg(y, r))
			}
		default:
			set := x == 3
			name := "RES "
			if set {
				name = "SET "
			}
			name += string('0'+rune(y)) + "," + operand
			if mem {
				def(t, op, name, 15, 2, resSetMem(y, set, hlAddr, nil))
			} else {
				def(t, op, name, 8, 2, resSetReg(y, set, r))
			}
		}
	}
}

func shiftReg(op ShiftOp, r Reg8) opFunc {
	return func(c *CPU) int {
		res, f := Shift(op, c.Registers.Get8(r), c.Registers.F())
		c.Registers.Set8(r, res)
		c.Registers.SetF(f)
		return 0
	}
}

// shiftMem rotates a memory operand. When copyTo is not nil the result is also
// stored in that register (undocumented DDCB/FDCB behaviour).
func shiftMem(op ShiftOp, addr addrFunc, copyTo *Reg8) opFunc {
	return func(c *CPU) int {
		a := addr(c)
		res, f := Shift(op, c.Bus.Read(a), c.Registers.F())
		c.Bus.Write(a, res)
		c.Registers.SetF(f)
		if copyTo != nil {
			c.Registers.Set8(*copyTo, res)
		}
		return 0
	}
}

func bitReg(n uint8, r Reg8) opFunc {
	return func(c *CPU) int {
		v := c.Registers.Get8(r)
		c.Registers.SetF(Bit(n, v, v, c.Registers.F()))
		return 0
	}
}

// bitMem tests a bit of a memory operand. Bits 5 and 3 leak from MEMPTR.
func bitMem(n uint8, addr addrFunc) opFunc {
	return func(c *CPU) int {
		v := c.Bus.Read(addr(c))
		xy := uint8(c.Registers.WZ >> 8) //nolint:gosec // G115: Intentional byte extraction
		c.Registers.SetF(Bit(n, v, xy, c.Registers.F()))
		return 0
	}
}

func resSetReg(n uint8, set bool, r Reg8) opFunc {
	mask := uint8(1) << n
	return func(c *CPU) int {
		v := c.Registers.Get8(r)
		if set {
			v |= mask
		} else {
			v &^= mask
		}
		c.Registers.Set8(r, v)
		return 0
	}
}

func resSetMem(n uint8, set bool, addr addrFunc, copyTo *Reg8) opFunc {
	mask := uint8(1) << n
	return func(c *CPU) int {
		a := addr(c)
		v := c.Bus.Read(a)
		if set {
			v |= mask
		} else {
			v &^= mask
		}
		c.Bus.Write(a, v)
		if copyTo != nil {
			c.Registers.Set8(*copyTo, v)
		}
		return 0
	}
}
