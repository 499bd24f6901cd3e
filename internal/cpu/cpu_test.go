package cpu

import (
	"testing"
)

// mockBus is a flat memory and port space for testing.
type mockBus struct {
	data  [0x10000]uint8
	ports [0x10000]uint8

	portWrites []portWrite
}

type portWrite struct {
	port  uint16
	value uint8
}

func (m *mockBus) Read(addr uint16) uint8 {
	return m.data[addr]
}

func (m *mockBus) Write(addr uint16, value uint8) {
	m.data[addr] = value
}

func (m *mockBus) ReadPort(port uint16) uint8 {
	return m.ports[port]
}

func (m *mockBus) WritePort(port uint16, value uint8) {
	m.ports[port] = value
	m.portWrites = append(m.portWrites, portWrite{port, value})
}

// load copies program bytes to addr.
func (m *mockBus) load(addr uint16, program ...uint8) {
	for i, b := range program {
		m.data[addr+uint16(i)] = b //nolint:gosec // G115: test programs are small
	}
}

// setupCPU creates a zero-filled CPU and mock bus with SP at 0xF000.
func setupCPU(program ...uint8) (*CPU, *mockBus) {
	bus := &mockBus{}
	cpu := New(bus, WithResetFill(0))
	cpu.Registers.SetSP(0xF000)
	bus.load(0, program...)
	return cpu, bus
}

func TestResetDefaults(t *testing.T) {
	cpu := New(&mockBus{})

	for _, id := range []Reg16{RegBC, RegDE, RegHL, RegAF, RegAltBC, RegAltDE, RegAltHL, RegAltAF, RegIX, RegIY, RegSP} {
		if got := cpu.RegisterPair(id); got != 0xFFFF {
			t.Errorf("%s = %04X, want 0xFFFF", id, got)
		}
	}
	for _, id := range []Reg16{RegPC, RegIR} {
		if got := cpu.RegisterPair(id); got != 0 {
			t.Errorf("%s = %04X, want 0x0000", id, got)
		}
	}
	if got := cpu.Register8(RegIMIFF); got != 0 {
		t.Errorf("IMIFF = %02X, want 0x00", got)
	}
	if cpu.Halted() {
		t.Error("CPU should not be halted after reset")
	}

	zero := New(&mockBus{}, WithResetFill(0))
	if got := zero.RegisterPair(RegSP); got != 0 {
		t.Errorf("SP with zero fill = %04X, want 0x0000", got)
	}
}

func TestResetClearsPendingInterrupts(t *testing.T) {
	cpu, _ := setupCPU()
	cpu.RequestInterrupt(0xFF)
	cpu.RequestNMI()
	cpu.Reset()

	if cpu.InterruptPending() {
		t.Error("Reset should drop a pending interrupt")
	}
	cycles := cpu.Step()
	if cycles != 4 || cpu.Registers.PC() != 1 {
		t.Errorf("after reset Step = %d cycles at PC %04X, want a 4 cycle NOP", cycles, cpu.Registers.PC())
	}
}

func TestNOP(t *testing.T) {
	cpu, _ := setupCPU(0x00)
	cpu.Registers.SetF(0xA5)

	cycles := cpu.Step()
	if cycles != 4 {
		t.Errorf("NOP cycles = %d, want 4", cycles)
	}
	if cpu.Registers.PC() != 0x0001 {
		t.Errorf("PC = %04X, want 0x0001", cpu.Registers.PC())
	}
	if cpu.Registers.F() != 0xA5 {
		t.Errorf("F = %02X, want 0xA5 (unchanged)", cpu.Registers.F())
	}
	if cpu.Cycles() != 4 {
		t.Errorf("Cycles() = %d, want 4", cpu.Cycles())
	}
}

func TestLDAndADD(t *testing.T) {
	cpu, _ := setupCPU(
		0x3E, 0x05, // LD A,5
		0xC6, 0x03, // ADD A,3
	)

	if cycles := cpu.Step(); cycles != 7 {
		t.Errorf("LD A,n cycles = %d, want 7", cycles)
	}
	if cycles := cpu.Step(); cycles != 7 {
		t.Errorf("ADD A,n cycles = %d, want 7", cycles)
	}

	if cpu.Registers.A() != 0x08 {
		t.Errorf("A = %02X, want 0x08", cpu.Registers.A())
	}
	for _, f := range []uint8{FlagC, FlagZ, FlagS, FlagN, FlagH, FlagPV} {
		if cpu.Registers.Flag(f) {
			t.Errorf("flag %02X should be clear, F = %02X", f, cpu.Registers.F())
		}
	}
	if cpu.Registers.PC() != 0x0004 {
		t.Errorf("PC = %04X, want 0x0004", cpu.Registers.PC())
	}
}

func TestLDRegisterToRegister(t *testing.T) {
	cpu, bus := setupCPU(
		0x06, 0x42,       // LD B,42h
		0x48,             // LD C,B
		0x21, 0x00, 0x80, // LD HL,8000h
		0x71,             // LD (HL),C
		0x7E,             // LD A,(HL)
	)
	for range 5 {
		cpu.Step()
	}

	if cpu.Registers.Get8(RegC) != 0x42 {
		t.Errorf("C = %02X, want 0x42", cpu.Registers.Get8(RegC))
	}
	if bus.data[0x8000] != 0x42 {
		t.Errorf("(8000h) = %02X, want 0x42", bus.data[0x8000])
	}
	if cpu.Registers.A() != 0x42 {
		t.Errorf("A = %02X, want 0x42", cpu.Registers.A())
	}
}

func TestSUBAndCP(t *testing.T) {
	cpu, _ := setupCPU(
		0xD6, 0x0F, // SUB 0Fh
		0xFE, 0x2F, // CP 2Fh
	)
	cpu.Registers.SetA(0x3E)

	cpu.Step()
	if cpu.Registers.A() != 0x2F {
		t.Errorf("A = %02X, want 0x2F", cpu.Registers.A())
	}
	if !cpu.Registers.Flag(FlagN) || !cpu.Registers.Flag(FlagH) || cpu.Registers.Flag(FlagC) {
		t.Errorf("after SUB F = %02X, want N and H set, C clear", cpu.Registers.F())
	}

	cpu.Step()
	if cpu.Registers.A() != 0x2F {
		t.Errorf("CP changed A to %02X", cpu.Registers.A())
	}
	if !cpu.Registers.Flag(FlagZ) {
		t.Error("CP with equal operands should set Z")
	}
	if f := cpu.Registers.F() & (Flag5 | Flag3); f != 0x2F&(Flag5|Flag3) {
		t.Errorf("CP bits 5/3 = %02X, want them from the operand", f)
	}
}

func TestINCDECOverflow(t *testing.T) {
	cpu, _ := setupCPU(
		0x3C, // INC A
		0x3D, // DEC A
	)
	cpu.Registers.SetA(0x7F)
	cpu.Registers.SetF(FlagC)

	cpu.Step()
	if cpu.Registers.A() != 0x80 {
		t.Errorf("A = %02X, want 0x80", cpu.Registers.A())
	}
	if want := FlagS | FlagH | FlagPV | FlagC; cpu.Registers.F() != want {
		t.Errorf("INC F = %02X, want %02X", cpu.Registers.F(), want)
	}

	cpu.Step()
	if cpu.Registers.A() != 0x7F {
		t.Errorf("A = %02X, want 0x7F", cpu.Registers.A())
	}
	if want := FlagH | FlagPV | FlagN | FlagC | Flag5 | Flag3; cpu.Registers.F() != want {
		t.Errorf("DEC F = %02X, want %02X", cpu.Registers.F(), want)
	}
}

func TestJumps(t *testing.T) {
	tests := []struct {
		name    string
		program []uint8
		flags   uint8
		wantPC  uint16
		wantCyc int
	}{
		{"JP nn", []uint8{0xC3, 0x34, 0x12}, 0, 0x1234, 10},
		{"JP Z taken", []uint8{0xCA, 0x34, 0x12}, FlagZ, 0x1234, 10},
		{"JP Z not taken", []uint8{0xCA, 0x34, 0x12}, 0, 0x0003, 10},
		{"JP PE taken", []uint8{0xEA, 0x00, 0x40}, FlagPV, 0x4000, 10},
		{"JP M not taken", []uint8{0xFA, 0x00, 0x40}, 0, 0x0003, 10},
		{"JR +5", []uint8{0x18, 0x05}, 0, 0x0007, 12},
		{"JR -2", []uint8{0x18, 0xFE}, 0, 0x0000, 12},
		{"JR NZ taken", []uint8{0x20, 0x10}, 0, 0x0012, 12},
		{"JR NZ not taken", []uint8{0x20, 0x10}, FlagZ, 0x0002, 7},
		{"JR C taken", []uint8{0x38, 0x02}, FlagC, 0x0004, 12},
		{"JP (HL)", []uint8{0xE9}, 0, 0xBEEF, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, _ := setupCPU(tt.program...)
			cpu.Registers.SetF(tt.flags)
			cpu.Registers.SetHL(0xBEEF)

			cycles := cpu.Step()
			if cpu.Registers.PC() != tt.wantPC {
				t.Errorf("PC = %04X, want %04X", cpu.Registers.PC(), tt.wantPC)
			}
			if cycles != tt.wantCyc {
				t.Errorf("cycles = %d, want %d", cycles, tt.wantCyc)
			}
		})
	}
}

func TestDJNZ(t *testing.T) {
	cpu, _ := setupCPU(
		0x06, 0x03, // LD B,3
		0x10, 0xFE, // DJNZ $
	)
	cpu.Step()

	for i, want := range []int{13, 13, 8} {
		if cycles := cpu.Step(); cycles != want {
			t.Errorf("DJNZ iteration %d cycles = %d, want %d", i, cycles, want)
		}
	}
	if cpu.Registers.PC() != 0x0004 || cpu.Registers.Get8(RegB) != 0 {
		t.Errorf("PC = %04X, B = %02X, want 0x0004, 0x00", cpu.Registers.PC(), cpu.Registers.Get8(RegB))
	}
}

func TestCALLRET(t *testing.T) {
	cpu, bus := setupCPU(
		0xCD, 0x00, 0x10, // CALL 1000h
	)
	bus.load(0x1000,
		0xC8, // RET Z (not taken)
		0xC9, // RET
	)

	if cycles := cpu.Step(); cycles != 17 {
		t.Errorf("CALL cycles = %d, want 17", cycles)
	}
	if cpu.Registers.PC() != 0x1000 || cpu.Registers.SP() != 0xEFFE {
		t.Errorf("PC = %04X, SP = %04X, want 0x1000, 0xEFFE", cpu.Registers.PC(), cpu.Registers.SP())
	}
	if bus.data[0xEFFE] != 0x03 || bus.data[0xEFFF] != 0x00 {
		t.Errorf("return address = %02X%02X, want 0003", bus.data[0xEFFF], bus.data[0xEFFE])
	}

	if cycles := cpu.Step(); cycles != 5 {
		t.Errorf("RET Z not taken cycles = %d, want 5", cycles)
	}
	if cycles := cpu.Step(); cycles != 10 {
		t.Errorf("RET cycles = %d, want 10", cycles)
	}
	if cpu.Registers.PC() != 0x0003 || cpu.Registers.SP() != 0xF000 {
		t.Errorf("PC = %04X, SP = %04X, want 0x0003, 0xF000", cpu.Registers.PC(), cpu.Registers.SP())
	}
}

func TestConditionalCalls(t *testing.T) {
	tests := []struct {
		name    string
		opcode  uint8
		flags   uint8
		taken   bool
		wantCyc int
	}{
		{"CALL NZ taken", 0xC4, 0, true, 17},
		{"CALL NZ not taken", 0xC4, FlagZ, false, 10},
		{"CALL C taken", 0xDC, FlagC, true, 17},
		{"CALL PO taken", 0xE4, 0, true, 17},
		{"CALL P not taken", 0xF4, FlagS, false, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, _ := setupCPU(tt.opcode, 0x00, 0x20)
			cpu.Registers.SetF(tt.flags)

			cycles := cpu.Step()
			wantPC := uint16(0x0003)
			if tt.taken {
				wantPC = 0x2000
			}
			if cpu.Registers.PC() != wantPC {
				t.Errorf("PC = %04X, want %04X", cpu.Registers.PC(), wantPC)
			}
			if cycles != tt.wantCyc {
				t.Errorf("cycles = %d, want %d", cycles, tt.wantCyc)
			}
		})
	}
}

func TestRST(t *testing.T) {
	cpu, bus := setupCPU()
	cpu.Registers.SetPC(0x0200)
	bus.load(0x0200, 0xEF) // RST 28h

	if cycles := cpu.Step(); cycles != 11 {
		t.Errorf("RST cycles = %d, want 11", cycles)
	}
	if cpu.Registers.PC() != 0x0028 {
		t.Errorf("PC = %04X, want 0x0028", cpu.Registers.PC())
	}
	if got := cpu.readWord(cpu.Registers.SP()); got != 0x0201 {
		t.Errorf("pushed %04X, want 0x0201", got)
	}
}

func TestPUSHPOP(t *testing.T) {
	cpu, _ := setupCPU(
		0xC5, // PUSH BC
		0xF1, // POP AF
	)
	cpu.Registers.SetBC(0x12D7)

	if cycles := cpu.Step(); cycles != 11 {
		t.Errorf("PUSH cycles = %d, want 11", cycles)
	}
	if cycles := cpu.Step(); cycles != 10 {
		t.Errorf("POP cycles = %d, want 10", cycles)
	}
	if cpu.Registers.AF() != 0x12D7 {
		t.Errorf("AF = %04X, want 0x12D7 (F keeps every bit)", cpu.Registers.AF())
	}
}

func TestExchanges(t *testing.T) {
	cpu, bus := setupCPU(
		0xD9, // EXX
		0x08, // EX AF,AF'
		0xEB, // EX DE,HL
		0xE3, // EX (SP),HL
	)
	cpu.Registers.SetBC(0x1111)
	cpu.SetRegisterPair(RegAltBC, 0x2222)
	cpu.SetRegisterPair(RegAltAF, 0x2222)
	bus.load(0xF000, 0xCD, 0xAB)

	cpu.Step()
	if cpu.Registers.BC() != 0x2222 || cpu.RegisterPair(RegAltBC) != 0x1111 {
		t.Errorf("after EXX BC = %04X, BC' = %04X", cpu.Registers.BC(), cpu.RegisterPair(RegAltBC))
	}

	cpu.Registers.SetAF(0x1234)
	cpu.Step()
	if cpu.Registers.AF() != 0x2222 || cpu.RegisterPair(RegAltAF) != 0x1234 {
		t.Errorf("after EX AF,AF' AF = %04X, AF' = %04X", cpu.Registers.AF(), cpu.RegisterPair(RegAltAF))
	}

	cpu.Registers.SetDE(0x0DE0)
	cpu.Registers.SetHL(0x0B0B)
	cpu.Step()
	if cpu.Registers.DE() != 0x0B0B || cpu.Registers.HL() != 0x0DE0 {
		t.Errorf("after EX DE,HL DE = %04X, HL = %04X", cpu.Registers.DE(), cpu.Registers.HL())
	}

	if cycles := cpu.Step(); cycles != 19 {
		t.Errorf("EX (SP),HL cycles = %d, want 19", cycles)
	}
	if cpu.Registers.HL() != 0xABCD || bus.data[0xF000] != 0xE0 || bus.data[0xF001] != 0x0D {
		t.Errorf("after EX (SP),HL HL = %04X, (SP) = %02X%02X", cpu.Registers.HL(), bus.data[0xF001], bus.data[0xF000])
	}
}

func TestDAA(t *testing.T) {
	tests := []struct {
		name  string
		a, b  uint8
		sub   bool
		want  uint8
		wantC bool
		wantZ bool
	}{
		{"15+27", 0x15, 0x27, false, 0x42, false, false},
		{"99+01", 0x99, 0x01, false, 0x00, true, true},
		{"58+46", 0x58, 0x46, false, 0x04, true, false},
		{"42-15", 0x42, 0x15, true, 0x27, false, false},
		{"10-01", 0x10, 0x01, true, 0x09, false, false},
		{"00-01", 0x00, 0x01, true, 0x99, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := uint8(0xC6) // ADD A,n
			if tt.sub {
				op = 0xD6 // SUB n
			}
			cpu, _ := setupCPU(op, tt.b, 0x27)
			cpu.Registers.SetA(tt.a)
			cpu.Step()
			cpu.Step()

			if cpu.Registers.A() != tt.want {
				t.Errorf("A = %02X, want %02X", cpu.Registers.A(), tt.want)
			}
			if cpu.Registers.Flag(FlagC) != tt.wantC {
				t.Errorf("C = %v, want %v", cpu.Registers.Flag(FlagC), tt.wantC)
			}
			if cpu.Registers.Flag(FlagZ) != tt.wantZ {
				t.Errorf("Z = %v, want %v", cpu.Registers.Flag(FlagZ), tt.wantZ)
			}
			if cpu.Registers.Flag(FlagN) != tt.sub {
				t.Errorf("N = %v, want %v", cpu.Registers.Flag(FlagN), tt.sub)
			}
		})
	}
}

func TestAddHL(t *testing.T) {
	cpu, _ := setupCPU(0x09) // ADD HL,BC
	cpu.Registers.SetHL(0x0FFF)
	cpu.Registers.SetBC(0x0001)
	cpu.Registers.SetF(FlagS | FlagZ | FlagPV)

	if cycles := cpu.Step(); cycles != 11 {
		t.Errorf("ADD HL,BC cycles = %d, want 11", cycles)
	}
	if cpu.Registers.HL() != 0x1000 {
		t.Errorf("HL = %04X, want 0x1000", cpu.Registers.HL())
	}
	if want := FlagS | FlagZ | FlagPV | FlagH; cpu.Registers.F() != want {
		t.Errorf("F = %02X, want %02X", cpu.Registers.F(), want)
	}
}

func TestSBCADCHL(t *testing.T) {
	cpu, _ := setupCPU(
		0xED, 0x42, // SBC HL,BC
		0xED, 0x4A, // ADC HL,BC
	)
	cpu.Registers.SetHL(0x8000)
	cpu.Registers.SetBC(0x0001)

	if cycles := cpu.Step(); cycles != 15 {
		t.Errorf("SBC HL,BC cycles = %d, want 15", cycles)
	}
	if cpu.Registers.HL() != 0x7FFF {
		t.Errorf("HL = %04X, want 0x7FFF", cpu.Registers.HL())
	}
	if !cpu.Registers.Flag(FlagPV) || !cpu.Registers.Flag(FlagN) || !cpu.Registers.Flag(FlagH) {
		t.Errorf("SBC F = %02X, want P/V, N and H set", cpu.Registers.F())
	}

	cpu.Step()
	if cpu.Registers.HL() != 0x8000 {
		t.Errorf("HL = %04X, want 0x8000", cpu.Registers.HL())
	}
	if !cpu.Registers.Flag(FlagPV) || !cpu.Registers.Flag(FlagS) || cpu.Registers.Flag(FlagN) {
		t.Errorf("ADC F = %02X, want P/V and S set, N clear", cpu.Registers.F())
	}
}

func TestCBRotate(t *testing.T) {
	cpu, _ := setupCPU(
		0xCB, 0x00, // RLC B
		0xCB, 0x31, // SLL C
	)
	cpu.Registers.Set8(RegB, 0x85)
	cpu.Registers.Set8(RegC, 0x80)

	if cycles := cpu.Step(); cycles != 8 {
		t.Errorf("RLC B cycles = %d, want 8", cycles)
	}
	if cpu.Registers.Get8(RegB) != 0x0B || !cpu.Registers.Flag(FlagC) {
		t.Errorf("B = %02X, C flag = %v, want 0x0B, true", cpu.Registers.Get8(RegB), cpu.Registers.Flag(FlagC))
	}

	cpu.Step()
	if cpu.Registers.Get8(RegC) != 0x01 || !cpu.Registers.Flag(FlagC) {
		t.Errorf("SLL C = %02X, carry %v, want 0x01, true", cpu.Registers.Get8(RegC), cpu.Registers.Flag(FlagC))
	}
}

func TestCBBitSetRes(t *testing.T) {
	cpu, bus := setupCPU(
		0xCB, 0x7E, // BIT 7,(HL)
		0xCB, 0xDE, // SET 3,(HL)
		0xCB, 0x80, // RES 0,B
	)
	cpu.Registers.SetHL(0x9000)
	cpu.Registers.Set8(RegB, 0xFF)
	bus.data[0x9000] = 0x80
	cpu.Registers.WZ = 0x2800

	if cycles := cpu.Step(); cycles != 12 {
		t.Errorf("BIT 7,(HL) cycles = %d, want 12", cycles)
	}
	if want := FlagS | FlagH | Flag5 | Flag3; cpu.Registers.F() != want {
		t.Errorf("F = %02X, want %02X (5/3 from MEMPTR)", cpu.Registers.F(), want)
	}

	if cycles := cpu.Step(); cycles != 15 {
		t.Errorf("SET 3,(HL) cycles = %d, want 15", cycles)
	}
	if bus.data[0x9000] != 0x88 {
		t.Errorf("(HL) = %02X, want 0x88", bus.data[0x9000])
	}

	cpu.Step()
	if cpu.Registers.Get8(RegB) != 0xFE {
		t.Errorf("B = %02X, want 0xFE", cpu.Registers.Get8(RegB))
	}
}

func TestRLDRRD(t *testing.T) {
	cpu, bus := setupCPU(
		0xED, 0x6F, // RLD
		0xED, 0x67, // RRD
	)
	cpu.Registers.SetHL(0x5000)
	cpu.Registers.SetA(0x7A)
	bus.data[0x5000] = 0x31

	if cycles := cpu.Step(); cycles != 18 {
		t.Errorf("RLD cycles = %d, want 18", cycles)
	}
	if cpu.Registers.A() != 0x73 || bus.data[0x5000] != 0x1A {
		t.Errorf("RLD A = %02X, (HL) = %02X, want 0x73, 0x1A", cpu.Registers.A(), bus.data[0x5000])
	}

	cpu.Step()
	if cpu.Registers.A() != 0x7A || bus.data[0x5000] != 0x31 {
		t.Errorf("RRD A = %02X, (HL) = %02X, want 0x7A, 0x31", cpu.Registers.A(), bus.data[0x5000])
	}
}

func TestLDAIReflectsIFF2(t *testing.T) {
	cpu, _ := setupCPU(
		0xFB,       // EI
		0xED, 0x57, // LD A,I
	)
	cpu.Registers.Set8(RegI, 0x80)

	cpu.Step()
	if cycles := cpu.Step(); cycles != 9 {
		t.Errorf("LD A,I cycles = %d, want 9", cycles)
	}
	if cpu.Registers.A() != 0x80 {
		t.Errorf("A = %02X, want 0x80", cpu.Registers.A())
	}
	if !cpu.Registers.Flag(FlagPV) || !cpu.Registers.Flag(FlagS) {
		t.Errorf("F = %02X, want S and P/V set", cpu.Registers.F())
	}
}

func TestRRefresh(t *testing.T) {
	cpu, _ := setupCPU(
		0x00,                   // NOP: +1
		0xCB, 0x00,             // RLC B: +2
		0xDD, 0x23,             // INC IX: +2
		0xDD, 0xCB, 0x00, 0x06, // RLC (IX+0): +2
	)
	cpu.Registers.Set8(RegR, 0xFE)

	for range 4 {
		cpu.Step()
	}
	if got := cpu.Registers.Get8(RegR); got != 0x85 {
		t.Errorf("R = %02X, want 0x85 (bit 7 kept, low 7 bits wrapped)", got)
	}
}

func TestOUTAndIN(t *testing.T) {
	cpu, bus := setupCPU(
		0xD3, 0xFE, // OUT (FEh),A
		0xDB, 0x1F, // IN A,(1Fh)
		0xED, 0x78, // IN A,(C)
		0xED, 0x71, // OUT (C),0
	)
	cpu.Registers.SetA(0x12)
	cpu.Registers.SetBC(0x3456)
	bus.ports[0x121F] = 0x80
	bus.ports[0x3456] = 0x00

	cpu.Step()
	if len(bus.portWrites) != 1 || bus.portWrites[0] != (portWrite{0x12FE, 0x12}) {
		t.Errorf("port writes = %v, want [{12FE 12}]", bus.portWrites)
	}

	cpu.Step()
	if cpu.Registers.A() != 0x80 {
		t.Errorf("IN A,(n) = %02X, want 0x80", cpu.Registers.A())
	}

	if cycles := cpu.Step(); cycles != 12 {
		t.Errorf("IN A,(C) cycles = %d, want 12", cycles)
	}
	if cpu.Registers.A() != 0 || !cpu.Registers.Flag(FlagZ) || !cpu.Registers.Flag(FlagPV) {
		t.Errorf("IN A,(C) A = %02X, F = %02X, want 0 with Z and P/V set", cpu.Registers.A(), cpu.Registers.F())
	}

	bus.ports[0x3456] = 0xFF
	cpu.Step()
	if bus.ports[0x3456] != 0 {
		t.Errorf("OUT (C),0 wrote %02X", bus.ports[0x3456])
	}
}

func TestInvalidRegisterPanics(t *testing.T) {
	cpu, _ := setupCPU()

	defer func() {
		if recover() == nil {
			t.Error("reading register 27 should panic")
		}
	}()
	cpu.Register8(Reg8(NumReg8))
}
