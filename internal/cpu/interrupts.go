package cpu

// Interrupt vectors and acceptance costs in T-states.
const (
	VectorNMI uint16 = 0x0066
	VectorIM1 uint16 = 0x0038

	cyclesNMI = 11
	cyclesIM1 = 13
	cyclesIM2 = 19
	cyclesIM0 = 2 // added to the cost of the instruction on the data bus
)

// RequestInterrupt asserts the maskable interrupt line with data as the byte
// the interrupting device places on the data bus. The request stays latched
// until it is accepted or withdrawn with CancelInterrupt.
func (c *CPU) RequestInterrupt(data uint8) {
	c.intPending = true
	c.intData = data
}

// CancelInterrupt withdraws a pending maskable interrupt request.
func (c *CPU) CancelInterrupt() {
	c.intPending = false
}

// InterruptPending reports whether a maskable request is latched.
func (c *CPU) InterruptPending() bool {
	return c.intPending
}

// RequestNMI latches a non-maskable interrupt edge.
func (c *CPU) RequestNMI() {
	c.nmiPending = true
}

// acceptInterrupt services a pending NMI or maskable interrupt at an
// instruction boundary. It reports false when nothing was accepted.
func (c *CPU) acceptInterrupt() (int, bool) {
	blocked := c.afterEI
	c.afterEI = false
	r := c.Registers

	if c.nmiPending {
		c.nmiPending = false
		r.SetHalted(false)
		r.SetIFF(false, r.IFF2())
		r.incR()
		c.push(r.PC())
		r.SetPC(VectorNMI)
		r.WZ = VectorNMI
		return cyclesNMI, true
	}

	if !c.intPending || blocked || !r.IFF1() {
		return 0, false
	}

	c.intPending = false
	r.SetHalted(false)
	r.SetIFF(false, false)
	r.incR()

	switch r.IM() {
	case 0:
		return c.executeIM0(c.intData) + cyclesIM0, true
	case 1:
		c.push(r.PC())
		r.SetPC(VectorIM1)
		r.WZ = VectorIM1
		return cyclesIM1, true
	default:
		c.push(r.PC())
		addr := uint16(r.Get8(RegI))<<8 | uint16(c.intData)
		pc := c.readWord(addr)
		r.SetPC(pc)
		r.WZ = pc
		return cyclesIM2, true
	}
}

// executeIM0 runs the instruction supplied on the data bus in mode 0. Only
// single-byte instructions can be supplied; anything else is treated as the
// open-bus value 0xFF (RST 38h).
func (c *CPU) executeIM0(data uint8) int {
	e := &baseTable[data]
	if e.exec == nil || e.length != 1 {
		e = &baseTable[0xFF]
	}
	return e.cycles + e.exec(c)
}
