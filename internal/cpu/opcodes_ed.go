package cpu

// buildEDTable fills the ED-prefixed table. Rows 0x40-0x7F are decoded
// fully, mirrors included; 0xA0-0xBB holds the block instructions; every
// other opcode is a two byte, eight T-state no-op.
func buildEDTable() {
	t := &edTable
	for op := range 256 {
		def(t, op, "NOP*", 8, 2, opNop)
	}

	imModes := [8]uint8{0, 0, 1, 2, 0, 0, 1, 2}
	for op := 0x40; op < 0x80; op++ {
		y, z := op>>3&7, op&7
		p, q := y>>1, y&1
		r := Reg8(y) //nolint:gosec // G115: y < 8
		switch z {
		case 0:
			if y == 6 {
				def(t, op, "IN F,(C)", 12, 2, inRegC(r, false))
			} else {
				def(t, op, "IN "+r8Names[y]+",(C)", 12, 2, inRegC(r, true))
			}
		case 1:
			if y == 6 {
				def(t, op, "OUT (C),0", 12, 2, outRegC(r, false))
			} else {
				def(t, op, "OUT (C),"+r8Names[y], 12, 2, outRegC(r, true))
			}
		case 2:
			rr := rpPairs[p]
			if q == 0 {
				def(t, op, "SBC HL,"+rr.String(), 15, 2, adcSbcHL(rr, true))
			} else {
				def(t, op, "ADC HL,"+rr.String(), 15, 2, adcSbcHL(rr, false))
			}
		case 3:
			rr := rpPairs[p]
			if q == 0 {
				def(t, op, "LD (nn),"+rr.String(), 20, 4, ldMemPair(rr))
			} else {
				def(t, op, "LD "+rr.String()+",(nn)", 20, 4, ldPairMem(rr))
			}
		case 4:
			def(t, op, "NEG", 8, 2, func(c *CPU) int {
				res, f := Neg(c.Registers.A())
				c.Registers.SetA(res)
				c.Registers.SetF(f)
				return 0
			})
		case 5:
			name := "RETN"
			if y == 1 {
				name = "RETI"
			}
			def(t, op, name, 14, 2, func(c *CPU) int {
				c.Registers.SetIFF(c.Registers.IFF2(), c.Registers.IFF2())
				return ret(c)
			})
		case 6:
			mode := imModes[y]
			def(t, op, "IM "+string('0'+rune(mode)), 8, 2, func(c *CPU) int {
				c.Registers.SetIM(mode)
				return 0
			})
		}
	}

	def(t, 0x47, "LD I,A", 9, 2, ldRegReg(RegI, RegA))
	def(t, 0x4F, "LD R,A", 9, 2, ldRegReg(RegR, RegA))
	def(t, 0x57, "LD A,I", 9, 2, ldAIR(RegI))
	def(t, 0x5F, "LD A,R", 9, 2, ldAIR(RegR))
	def(t, 0x67, "RRD", 18, 2, rotateDigit(false))
	def(t, 0x6F, "RLD", 18, 2, rotateDigit(true))

	names := [4][4]string{
		{"LDI", "CPI", "INI", "OUTI"},
		{"LDD", "CPD", "IND", "OUTD"},
		{"LDIR", "CPIR", "INIR", "OTIR"},
		{"LDDR", "CPDR", "INDR", "OTDR"},
	}
	for y := 4; y < 8; y++ {
		delta := uint16(1)
		if y&1 != 0 {
			delta = 0xFFFF
		}
		repeat := y >= 6
		row := names[y-4]
		def(t, 0x80|y<<3, row[0], 16, 2, blockLoad(delta, repeat))
		def(t, 0x81|y<<3, row[1], 16, 2, blockCompare(delta, repeat))
		def(t, 0x82|y<<3, row[2], 16, 2, blockIn(delta, repeat))
		def(t, 0x83|y<<3, row[3], 16, 2, blockOut(delta, repeat))
	}
}

// inRegC reads port BC. The flag-only form (ED 70) discards the value.
func inRegC(r Reg8, store bool) opFunc {
	return func(c *CPU) int {
		bc := c.Registers.BC()
		v := c.Bus.ReadPort(bc)
		if store {
			c.Registers.Set8(r, v)
		}
		c.Registers.SetF(c.Registers.F()&FlagC | SZ53P[v])
		c.Registers.WZ = bc + 1
		return 0
	}
}

// outRegC writes a register to port BC, or zero for ED 71.
func outRegC(r Reg8, fromReg bool) opFunc {
	return func(c *CPU) int {
		var v uint8
		if fromReg {
			v = c.Registers.Get8(r)
		}
		bc := c.Registers.BC()
		c.Bus.WritePort(bc, v)
		c.Registers.WZ = bc + 1
		return 0
	}
}

func adcSbcHL(rr Reg16, sub bool) opFunc {
	return func(c *CPU) int {
		hl := c.Registers.HL()
		var (
			res uint16
			f   uint8
		)
		if sub {
			res, f = Sbc16(hl, c.Registers.Get16(rr), c.Registers.F())
		} else {
			res, f = Adc16(hl, c.Registers.Get16(rr), c.Registers.F())
		}
		c.Registers.SetHL(res)
		c.Registers.SetF(f)
		c.Registers.WZ = hl + 1
		return 0
	}
}

// ldAIR is LD A,I and LD A,R: P/V reflects IFF2.
func ldAIR(src Reg8) opFunc {
	return func(c *CPU) int {
		v := c.Registers.Get8(src)
		c.Registers.SetA(v)
		f := c.Registers.F()&FlagC | SZ53[v]
		if c.Registers.IFF2() {
			f |= FlagPV
		}
		c.Registers.SetF(f)
		return 0
	}
}

// rotateDigit is RLD (left) and RRD: a 12-bit rotate of the low nibble of A
// with the byte at (HL).
func rotateDigit(left bool) opFunc {
	return func(c *CPU) int {
		hl := c.Registers.HL()
		v, a := c.Bus.Read(hl), c.Registers.A()
		var mem uint8
		if left {
			mem = v<<4 | a&0x0F
			a = a&0xF0 | v>>4
		} else {
			mem = a<<4 | v>>4
			a = a&0xF0 | v&0x0F
		}
		c.Bus.Write(hl, mem)
		c.Registers.SetA(a)
		c.Registers.SetF(c.Registers.F()&FlagC | SZ53P[a])
		c.Registers.WZ = hl + 1
		return 0
	}
}

// repeatBlock rewinds PC onto the ED prefix so the instruction runs again.
func (c *CPU) repeatBlock() int {
	pc := c.Registers.PC() - 2
	c.Registers.SetPC(pc)
	c.Registers.WZ = pc + 1
	return 5
}

func blockLoad(delta uint16, repeat bool) opFunc {
	return func(c *CPU) int {
		r := c.Registers
		hl, de := r.HL(), r.DE()
		v := c.Bus.Read(hl)
		c.Bus.Write(de, v)
		r.SetHL(hl + delta)
		r.SetDE(de + delta)
		bc := r.BC() - 1
		r.SetBC(bc)

		n := v + r.A()
		f := r.F()&(FlagS|FlagZ|FlagC) | n&Flag3 | (n<<4)&Flag5
		if bc != 0 {
			f |= FlagPV
		}
		r.SetF(f)

		if repeat && bc != 0 {
			return c.repeatBlock()
		}
		return 0
	}
}

func blockCompare(delta uint16, repeat bool) opFunc {
	return func(c *CPU) int {
		r := c.Registers
		hl := r.HL()
		v, a := c.Bus.Read(hl), r.A()
		res := a - v
		r.SetHL(hl + delta)
		bc := r.BC() - 1
		r.SetBC(bc)
		r.WZ += delta

		f := r.F()&FlagC | FlagN | SZ53[res]&(FlagS|FlagZ)
		n := res
		if a&0x0F < v&0x0F {
			f |= FlagH
			n--
		}
		f |= n&Flag3 | (n<<4)&Flag5
		if bc != 0 {
			f |= FlagPV
		}
		r.SetF(f)

		if repeat && bc != 0 && res != 0 {
			return c.repeatBlock()
		}
		return 0
	}
}

// blockIOFlags computes the flags shared by the block I/O instructions.
func blockIOFlags(v, b uint8, k uint16) uint8 {
	f := SZ53[b]
	if v&0x80 != 0 {
		f |= FlagN
	}
	if k > 0xFF {
		f |= FlagH | FlagC
	}
	return f | parityFlag(uint8(k)&7^b) //nolint:gosec // G115: Intentional truncation
}

func blockIn(delta uint16, repeat bool) opFunc {
	return func(c *CPU) int {
		r := c.Registers
		bc, hl := r.BC(), r.HL()
		v := c.Bus.ReadPort(bc)
		c.Bus.Write(hl, v)
		b := r.Get8(RegB) - 1
		r.Set8(RegB, b)
		r.SetHL(hl + delta)
		r.WZ = bc + delta

		k := uint16(v) + uint16(r.Get8(RegC)+uint8(delta)) //nolint:gosec // G115: delta is 1 or -1
		r.SetF(blockIOFlags(v, b, k))

		if repeat && b != 0 {
			return c.repeatBlock()
		}
		return 0
	}
}

func blockOut(delta uint16, repeat bool) opFunc {
	return func(c *CPU) int {
		r := c.Registers
		hl := r.HL()
		v := c.Bus.Read(hl)
		b := r.Get8(RegB) - 1
		r.Set8(RegB, b)
		bc := r.BC()
		c.Bus.WritePort(bc, v)
		r.SetHL(hl + delta)
		r.WZ = bc + delta

		k := uint16(v) + uint16(r.Get8(RegL))
		r.SetF(blockIOFlags(v, b, k))

		if repeat && b != 0 {
			return c.repeatBlock()
		}
		return 0
	}
}
