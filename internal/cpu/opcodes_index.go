package cpu

// buildIndexTable derives the DD (IX) or FD (IY) table from the base table.
//
// Instructions that do not touch H, L, HL or (HL) run unchanged at a cost of
// four extra T-states and one extra byte. H and L become the index halves,
// HL becomes the index register and (HL) becomes (idx+d); in the (idx+d)
// forms a plain H or L operand keeps meaning H or L.
func buildIndexTable(idx Reg16, hi, lo Reg8) [256]entry {
	var t [256]entry
	for op := range 256 {
		e := baseTable[op]
		if e.exec != nil {
			e.cycles += 4
			e.length++
		}
		t[op] = e
	}

	name := idx.String()
	memName := "(" + name + "+d)"
	mem := indexAddr(idx)
	halves := r8Names
	halves[4], halves[5] = name+"H", name+"L"
	sub := func(n int) Reg8 {
		switch n {
		case 4:
			return hi
		case 5:
			return lo
		default:
			return Reg8(n) //nolint:gosec // G115: n < 8
		}
	}

	def(&t, 0x21, "LD "+name+",nn", 14, 4, ldPairImm(idx))
	def(&t, 0x22, "LD (nn),"+name, 20, 4, ldMemPair(idx))
	def(&t, 0x2A, "LD "+name+",(nn)", 20, 4, ldPairMem(idx))
	def(&t, 0x23, "INC "+name, 10, 2, incPair(idx))
	def(&t, 0x2B, "DEC "+name, 10, 2, decPair(idx))
	for p, rr := range [4]Reg16{RegBC, RegDE, idx, RegSP} {
		def(&t, p<<4|0x09, "ADD "+name+","+rr.String(), 15, 2, addPair(idx, rr))
	}
	def(&t, 0xE1, "POP "+name, 14, 2, popPair(idx))
	def(&t, 0xE5, "PUSH "+name, 15, 2, pushPair(idx))
	def(&t, 0xE3, "EX (SP),"+name, 23, 2, exStackPair(idx))
	def(&t, 0xE9, "JP ("+name+")", 8, 2, jpPair(idx))
	def(&t, 0xF9, "LD SP,"+name, 10, 2, ldSPPair(idx))

	for _, y := range []int{4, 5} {
		r := sub(y)
		def(&t, y<<3|0x04, "INC "+halves[y], 8, 2, incReg(r))
		def(&t, y<<3|0x05, "DEC "+halves[y], 8, 2, decReg(r))
		def(&t, y<<3|0x06, "LD "+halves[y]+",n", 11, 3, ldRegImm(r))
	}
	def(&t, 0x34, "INC "+memName, 23, 3, incMem(mem))
	def(&t, 0x35, "DEC "+memName, 23, 3, decMem(mem))
	def(&t, 0x36, "LD "+memName+",n", 19, 4, ldMemImm(mem))

	for op := 0x40; op < 0x80; op++ {
		y, z := op>>3&7, op&7
		switch {
		case op == 0x76:
		case z == 6:
			def(&t, op, "LD "+r8Names[y]+","+memName, 19, 3, ldRegMem(Reg8(y), mem)) //nolint:gosec // G115: y < 8
		case y == 6:
			def(&t, op, "LD "+memName+","+r8Names[z], 19, 3, ldMemReg(mem, Reg8(z))) //nolint:gosec // G115: z < 8
		case y == 4 || y == 5 || z == 4 || z == 5:
			def(&t, op, "LD "+halves[y]+","+halves[z], 8, 2, ldRegReg(sub(y), sub(z)))
		}
	}

	for op := 0x80; op < 0xC0; op++ {
		y, z := op>>3&7, op&7
		aop := ALUOp(y) //nolint:gosec // G115: y < 8
		switch z {
		case 6:
			def(&t, op, aluNames[y]+memName, 19, 3, aluMem(aop, mem))
		case 4, 5:
			def(&t, op, aluNames[y]+halves[z], 8, 2, aluReg(aop, sub(z)))
		}
	}

	// A second prefix cancels this one: it costs one byte and four T-states
	// and the following prefix is decoded by the next step.
	for _, op := range []int{0xDD, 0xED, 0xFD} {
		def(&t, op, "NOP*", 4, 1, func(c *CPU) int {
			c.Registers.SetPC(c.Registers.PC() - 1)
			c.Registers.decR()
			return 0
		})
	}

	return t
}

// buildIndexBitTable fills a DDCB or FDCB table. The effective address is in
// MEMPTR by the time an entry runs.
func buildIndexBitTable(name string) [256]entry {
	var t [256]entry
	operand := "(" + name + "+d)"
	mem := func(c *CPU) uint16 { return c.Registers.WZ }

	for op := range 256 {
		x, y, z := op>>6, uint8(op>>3&7), op&7 //nolint:gosec // G115: y < 8
		var (
			copyTo *Reg8
			suffix string
		)
		if z != 6 {
			r := Reg8(z) //nolint:gosec // G115: z < 8
			copyTo = &r
			suffix = "," + r8Names[z]
		}
		bit := string('0' + rune(y))

		switch x {
		case 0:
			def(&t, op, shiftNames[y]+" "+operand+suffix, 23, 4, shiftMem(ShiftOp(y), mem, copyTo))
		case 1:
			def(&t, op, "BIT "+bit+","+operand, 20, 4, bitMem(y, mem))
		case 2:
			def(&t, op, "RES "+bit+","+operand+suffix, 23, 4, resSetMem(y, false, mem, copyTo))
		default:
			def(&t, op, "SET "+bit+","+operand+suffix, 23, 4, resSetMem(y, true, mem, copyTo))
		}
	}
	return t
}
