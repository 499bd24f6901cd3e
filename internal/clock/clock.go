// Package clock implements a T-state counter that drives the Z80 maskable
// interrupt line at a fixed period, the way a video frame does on most
// Z80 machines.
//
// Each period the clock raises the line. When a pulse width is set the line
// is released again after that many T-states, which gives the level
// triggered behaviour of real hardware: a CPU that keeps interrupts disabled
// for the whole pulse misses the interrupt.
package clock

// Spectrum48Frame is the number of T-states in one 48K Spectrum frame.
const Spectrum48Frame = 69888

// Spectrum48Pulse is the length of the 48K Spectrum INT pulse in T-states.
const Spectrum48Pulse = 32

// Callback is the function type for line changes.
type Callback func()

// Clock counts T-states and toggles the interrupt line.
type Clock struct {
	period  uint32 // T-states between interrupts, 0 disables the clock
	pulse   uint32 // T-states the line stays raised, 0 holds it until accepted
	counter uint32 // T-states into the current period

	raised bool
	frames uint64

	raise   Callback
	release Callback
}

// New creates a Clock that calls raise every period T-states.
func New(period uint32, raise Callback) *Clock {
	return &Clock{
		period: period,
		raise:  raise,
	}
}

// SetPulse makes the clock call release pulse T-states after each raise.
func (c *Clock) SetPulse(pulse uint32, release Callback) {
	c.pulse = pulse
	c.release = release
}

// Period returns the interrupt period in T-states.
func (c *Clock) Period() uint32 {
	return c.period
}

// Frames returns the number of periods completed since the last reset.
func (c *Clock) Frames() uint64 {
	return c.frames
}

// Update advances the clock by the given number of T-states.
//
// A single update may span several periods when the caller runs the CPU in
// large slices; every boundary crossed fires raise once, and a pending
// release always fires before the next raise.
func (c *Clock) Update(cycles int) {
	if c.period == 0 || cycles <= 0 {
		return
	}

	remaining := uint32(cycles) //nolint:gosec // G115: cycles > 0 checked above
	for remaining > 0 {
		next := c.period - c.counter
		if c.raised && c.pulse > 0 && c.pulse < c.period && c.counter < c.pulse {
			next = c.pulse - c.counter
		}
		if remaining < next {
			c.counter += remaining
			return
		}

		remaining -= next
		c.counter += next
		if c.counter >= c.period {
			c.counter = 0
			c.tick()
		} else {
			c.lower()
		}
	}
}

func (c *Clock) tick() {
	c.frames++
	if c.raised {
		c.lower()
	}
	c.raised = true
	if c.raise != nil {
		c.raise()
	}
}

func (c *Clock) lower() {
	if !c.raised {
		return
	}
	c.raised = false
	if c.pulse > 0 && c.release != nil {
		c.release()
	}
}

// Reset resets the clock to the start of a period with the line released.
func (c *Clock) Reset() {
	c.counter = 0
	c.frames = 0
	c.raised = false
}
