package cpu

var (
	r8Names  = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	ccNames  = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	rpPairs  = [4]Reg16{RegBC, RegDE, RegHL, RegSP}
	rp2Pairs = [4]Reg16{RegBC, RegDE, RegHL, RegAF}
)

// addrFunc computes the effective address of a memory operand, fetching a
// displacement when the form has one.
type addrFunc func(c *CPU) uint16

func hlAddr(c *CPU) uint16 {
	return c.Registers.HL()
}

func indexAddr(idx Reg16) addrFunc {
	return func(c *CPU) uint16 {
		addr := c.Registers.Get16(idx) + c.fetchDisp()
		c.Registers.WZ = addr
		return addr
	}
}

func opNop(*CPU) int { return 0 }

// 8-bit loads and arithmetic

func ldRegReg(dst, src Reg8) opFunc {
	return func(c *CPU) int {
		c.Registers.Set8(dst, c.Registers.Get8(src))
		return 0
	}
}

func ldRegImm(r Reg8) opFunc {
	return func(c *CPU) int {
		c.Registers.Set8(r, c.fetchByte())
		return 0
	}
}

func ldRegMem(r Reg8, addr addrFunc) opFunc {
	return func(c *CPU) int {
		c.Registers.Set8(r, c.Bus.Read(addr(c)))
		return 0
	}
}

func ldMemReg(addr addrFunc, r Reg8) opFunc {
	return func(c *CPU) int {
		c.Bus.Write(addr(c), c.Registers.Get8(r))
		return 0
	}
}

func ldMemImm(addr addrFunc) opFunc {
	return func(c *CPU) int {
		a := addr(c)
		c.Bus.Write(a, c.fetchByte())
		return 0
	}
}

func incReg(r Reg8) opFunc {
	return func(c *CPU) int {
		res, f := Inc8(c.Registers.Get8(r), c.Registers.F())
		c.Registers.Set8(r, res)
		c.Registers.SetF(f)
		return 0
	}
}

func decReg(r Reg8) opFunc {
	return func(c *CPU) int {
		res, f := Dec8(c.Registers.Get8(r), c.Registers.F())
		c.Registers.Set8(r, res)
		c.Registers.SetF(f)
		return 0
	}
}

func incMem(addr addrFunc) opFunc {
	return func(c *CPU) int {
		a := addr(c)
		res, f := Inc8(c.Bus.Read(a), c.Registers.F())
		c.Bus.Write(a, res)
		c.Registers.SetF(f)
		return 0
	}
}

func decMem(addr addrFunc) opFunc {
	return func(c *CPU) int {
		a := addr(c)
		res, f := Dec8(c.Bus.Read(a), c.Registers.F())
		c.Bus.Write(a, res)
		c.Registers.SetF(f)
		return 0
	}
}

func aluReg(op ALUOp, r Reg8) opFunc {
	return func(c *CPU) int {
		c.alu(op, c.Registers.Get8(r))
		return 0
	}
}

func aluMem(op ALUOp, addr addrFunc) opFunc {
	return func(c *CPU) int {
		c.alu(op, c.Bus.Read(addr(c)))
		return 0
	}
}

func aluImm(op ALUOp) opFunc {
	return func(c *CPU) int {
		c.alu(op, c.fetchByte())
		return 0
	}
}

// 16-bit loads and arithmetic

func ldPairImm(rr Reg16) opFunc {
	return func(c *CPU) int {
		c.Registers.Set16(rr, c.fetchWord())
		return 0
	}
}

func ldMemPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.writeWord(addr, c.Registers.Get16(rr))
		c.Registers.WZ = addr + 1
		return 0
	}
}

func ldPairMem(rr Reg16) opFunc {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.Registers.Set16(rr, c.readWord(addr))
		c.Registers.WZ = addr + 1
		return 0
	}
}

func incPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		c.Registers.Set16(rr, c.Registers.Get16(rr)+1)
		return 0
	}
}

func decPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		c.Registers.Set16(rr, c.Registers.Get16(rr)-1)
		return 0
	}
}

func addPair(dst, src Reg16) opFunc {
	return func(c *CPU) int {
		a := c.Registers.Get16(dst)
		res, f := Add16(a, c.Registers.Get16(src), c.Registers.F())
		c.Registers.Set16(dst, res)
		c.Registers.SetF(f)
		c.Registers.WZ = a + 1
		return 0
	}
}

func pushPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		c.push(c.Registers.Get16(rr))
		return 0
	}
}

func popPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		c.Registers.Set16(rr, c.pop())
		return 0
	}
}

func exStackPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		sp := c.Registers.SP()
		v := c.readWord(sp)
		c.writeWord(sp, c.Registers.Get16(rr))
		c.Registers.Set16(rr, v)
		c.Registers.WZ = v
		return 0
	}
}

func jpPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		c.Registers.SetPC(c.Registers.Get16(rr))
		return 0
	}
}

func ldSPPair(rr Reg16) opFunc {
	return func(c *CPU) int {
		c.Registers.SetSP(c.Registers.Get16(rr))
		return 0
	}
}

// Control flow

func jr(c *CPU) int {
	d := c.fetchDisp()
	pc := c.Registers.PC() + d
	c.Registers.SetPC(pc)
	c.Registers.WZ = pc
	return 0
}

func jrCond(cc uint8) opFunc {
	return func(c *CPU) int {
		d := c.fetchDisp()
		if !c.checkCondition(cc) {
			return 0
		}
		pc := c.Registers.PC() + d
		c.Registers.SetPC(pc)
		c.Registers.WZ = pc
		return 5
	}
}

func djnz(c *CPU) int {
	b := c.Registers.Get8(RegB) - 1
	c.Registers.Set8(RegB, b)
	d := c.fetchDisp()
	if b == 0 {
		return 0
	}
	pc := c.Registers.PC() + d
	c.Registers.SetPC(pc)
	c.Registers.WZ = pc
	return 5
}

func jp(c *CPU) int {
	addr := c.fetchWord()
	c.Registers.SetPC(addr)
	c.Registers.WZ = addr
	return 0
}

func jpCond(cc uint8) opFunc {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.Registers.WZ = addr
		if c.checkCondition(cc) {
			c.Registers.SetPC(addr)
		}
		return 0
	}
}

func call(c *CPU) int {
	addr := c.fetchWord()
	c.push(c.Registers.PC())
	c.Registers.SetPC(addr)
	c.Registers.WZ = addr
	return 0
}

func callCond(cc uint8) opFunc {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.Registers.WZ = addr
		if !c.checkCondition(cc) {
			return 0
		}
		c.push(c.Registers.PC())
		c.Registers.SetPC(addr)
		return 7
	}
}

func ret(c *CPU) int {
	pc := c.pop()
	c.Registers.SetPC(pc)
	c.Registers.WZ = pc
	return 0
}

func retCond(cc uint8) opFunc {
	return func(c *CPU) int {
		if !c.checkCondition(cc) {
			return 0
		}
		ret(c)
		return 6
	}
}

func rst(vector uint16) opFunc {
	return func(c *CPU) int {
		c.push(c.Registers.PC())
		c.Registers.SetPC(vector)
		c.Registers.WZ = vector
		return 0
	}
}

func buildBaseTable() {
	t := &baseTable

	def(t, 0x00, "NOP", 4, 1, opNop)
	def(t, 0x08, "EX AF,AF'", 4, 1, func(c *CPU) int {
		c.Registers.ExAF()
		return 0
	})
	def(t, 0x10, "DJNZ d", 8, 2, djnz)
	def(t, 0x18, "JR d", 12, 2, jr)

	for p := range 4 {
		rr := rpPairs[p]
		def(t, p<<4|0x01, "LD "+rr.String()+",nn", 10, 3, ldPairImm(rr))
		def(t, p<<4|0x03, "INC "+rr.String(), 6, 1, incPair(rr))
		def(t, p<<4|0x09, "ADD HL,"+rr.String(), 11, 1, addPair(RegHL, rr))
		def(t, p<<4|0x0B, "DEC "+rr.String(), 6, 1, decPair(rr))

		qq := rp2Pairs[p]
		def(t, 0xC1|p<<4, "POP "+qq.String(), 10, 1, popPair(qq))
		def(t, 0xC5|p<<4, "PUSH "+qq.String(), 11, 1, pushPair(qq))
	}

	for cc := range 4 {
		def(t, 0x20|cc<<3, "JR "+ccNames[cc]+",d", 7, 2, jrCond(uint8(cc))) //nolint:gosec // G115: cc < 4
	}

	// Indirect accumulator loads
	def(t, 0x02, "LD (BC),A", 7, 1, func(c *CPU) int {
		c.storeA(c.Registers.BC())
		return 0
	})
	def(t, 0x12, "LD (DE),A", 7, 1, func(c *CPU) int {
		c.storeA(c.Registers.DE())
		return 0
	})
	def(t, 0x0A, "LD A,(BC)", 7, 1, func(c *CPU) int {
		c.loadA(c.Registers.BC())
		return 0
	})
	def(t, 0x1A, "LD A,(DE)", 7, 1, func(c *CPU) int {
		c.loadA(c.Registers.DE())
		return 0
	})
	def(t, 0x22, "LD (nn),HL", 16, 3, ldMemPair(RegHL))
	def(t, 0x2A, "LD HL,(nn)", 16, 3, ldPairMem(RegHL))
	def(t, 0x32, "LD (nn),A", 13, 3, func(c *CPU) int {
		c.storeA(c.fetchWord())
		return 0
	})
	def(t, 0x3A, "LD A,(nn)", 13, 3, func(c *CPU) int {
		c.loadA(c.fetchWord())
		return 0
	})

	for y := range 8 {
		if y == 6 {
			def(t, 0x34, "INC (HL)", 11, 1, incMem(hlAddr))
			def(t, 0x35, "DEC (HL)", 11, 1, decMem(hlAddr))
			def(t, 0x36, "LD (HL),n", 10, 2, ldMemImm(hlAddr))
			continue
		}
		r := Reg8(y) //nolint:gosec // G115: y < 8
		def(t, y<<3|0x04, "INC "+r8Names[y], 4, 1, incReg(r))
		def(t, y<<3|0x05, "DEC "+r8Names[y], 4, 1, decReg(r))
		def(t, y<<3|0x06, "LD "+r8Names[y]+",n", 7, 2, ldRegImm(r))
	}

	// Accumulator rotates
	for y, name := range [4]string{"RLCA", "RRCA", "RLA", "RRA"} {
		op := ShiftOp(y) //nolint:gosec // G115: y < 4
		def(t, y<<3|0x07, name, 4, 1, func(c *CPU) int {
			res, f := RotateA(op, c.Registers.A(), c.Registers.F())
			c.Registers.SetA(res)
			c.Registers.SetF(f)
			return 0
		})
	}

	def(t, 0x27, "DAA", 4, 1, func(c *CPU) int {
		res, f := Daa(c.Registers.A(), c.Registers.F())
		c.Registers.SetA(res)
		c.Registers.SetF(f)
		return 0
	})
	def(t, 0x2F, "CPL", 4, 1, func(c *CPU) int {
		res, f := Cpl(c.Registers.A(), c.Registers.F())
		c.Registers.SetA(res)
		c.Registers.SetF(f)
		return 0
	})
	def(t, 0x37, "SCF", 4, 1, func(c *CPU) int {
		c.Registers.SetF(Scf(c.Registers.A(), c.Registers.F()))
		return 0
	})
	def(t, 0x3F, "CCF", 4, 1, func(c *CPU) int {
		c.Registers.SetF(Ccf(c.Registers.A(), c.Registers.F()))
		return 0
	})

	// LD r,r'
	for op := 0x40; op < 0x80; op++ {
		y, z := op>>3&7, op&7
		dst, src := Reg8(y), Reg8(z) //nolint:gosec // G115: y, z < 8
		name := "LD " + r8Names[y] + "," + r8Names[z]
		switch {
		case op == 0x76:
			def(t, op, "HALT", 4, 1, func(c *CPU) int {
				c.Registers.SetHalted(true)
				return 0
			})
		case z == 6:
			def(t, op, name, 7, 1, ldRegMem(dst, hlAddr))
		case y == 6:
			def(t, op, name, 7, 1, ldMemReg(hlAddr, src))
		default:
			def(t, op, name, 4, 1, ldRegReg(dst, src))
		}
	}

	// 8-bit ALU
	for op := 0x80; op < 0xC0; op++ {
		y, z := op>>3&7, op&7
		aop := ALUOp(y) //nolint:gosec // G115: y < 8
		name := aluNames[y] + r8Names[z]
		if z == 6 {
			def(t, op, name, 7, 1, aluMem(aop, hlAddr))
		} else {
			def(t, op, name, 4, 1, aluReg(aop, Reg8(z))) //nolint:gosec // G115: z < 8
		}
	}

	for y := range 8 {
		cc := uint8(y) //nolint:gosec // G115: y < 8
		def(t, 0xC0|y<<3, "RET "+ccNames[y], 5, 1, retCond(cc))
		def(t, 0xC2|y<<3, "JP "+ccNames[y]+",nn", 10, 3, jpCond(cc))
		def(t, 0xC4|y<<3, "CALL "+ccNames[y]+",nn", 10, 3, callCond(cc))
		def(t, 0xC6|y<<3, aluNames[y]+"n", 7, 2, aluImm(ALUOp(cc)))
		def(t, 0xC7|y<<3, "RST "+hex8(cc<<3), 11, 1, rst(uint16(cc)<<3))
	}

	def(t, 0xC3, "JP nn", 10, 3, jp)
	def(t, 0xC9, "RET", 10, 1, ret)
	def(t, 0xCD, "CALL nn", 17, 3, call)
	def(t, 0xD3, "OUT (n),A", 11, 2, func(c *CPU) int {
		n, a := c.fetchByte(), c.Registers.A()
		c.Bus.WritePort(uint16(a)<<8|uint16(n), a)
		c.Registers.WZ = uint16(a)<<8 | uint16(n+1)
		return 0
	})
	def(t, 0xDB, "IN A,(n)", 11, 2, func(c *CPU) int {
		port := uint16(c.Registers.A())<<8 | uint16(c.fetchByte())
		c.Registers.SetA(c.Bus.ReadPort(port))
		c.Registers.WZ = port + 1
		return 0
	})
	def(t, 0xD9, "EXX", 4, 1, func(c *CPU) int {
		c.Registers.Exx()
		return 0
	})
	def(t, 0xE3, "EX (SP),HL", 19, 1, exStackPair(RegHL))
	def(t, 0xE9, "JP (HL)", 4, 1, jpPair(RegHL))
	def(t, 0xEB, "EX DE,HL", 4, 1, func(c *CPU) int {
		de, hl := c.Registers.DE(), c.Registers.HL()
		c.Registers.SetDE(hl)
		c.Registers.SetHL(de)
		return 0
	})
	def(t, 0xF3, "DI", 4, 1, func(c *CPU) int {
		c.Registers.SetIFF(false, false)
		return 0
	})
	def(t, 0xFB, "EI", 4, 1, func(c *CPU) int {
		c.Registers.SetIFF(true, true)
		c.afterEI = true
		return 0
	})
	def(t, 0xF9, "LD SP,HL", 6, 1, ldSPPair(RegHL))

	// Prefixes are dispatched before the table lookup.
	for _, op := range []int{0xCB, 0xDD, 0xED, 0xFD} {
		t[op] = entry{mnemonic: "prefix " + hex8(uint8(op)), length: 1} //nolint:gosec // G115: op < 256
	}
}

// storeA writes A to addr; MEMPTR gets A in the high byte.
func (c *CPU) storeA(addr uint16) {
	a := c.Registers.A()
	c.Bus.Write(addr, a)
	c.Registers.WZ = uint16(a)<<8 | (addr+1)&0xFF
}

func (c *CPU) loadA(addr uint16) {
	c.Registers.SetA(c.Bus.Read(addr))
	c.Registers.WZ = addr + 1
}

func hex8(v uint8) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[v>>4], digits[v&0x0F], 'H'})
}
