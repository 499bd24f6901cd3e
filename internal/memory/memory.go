// Package memory implements the Z80 address space and I/O port map.
package memory

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// AddressSpace is the size of the Z80 memory map.
const AddressSpace = 0x10000

// floatingBus is the value read from an I/O port nothing drives.
const floatingBus = 0xFF

// PortHandler is a device attached to the I/O space.
type PortHandler interface {
	In(port uint16) uint8
	Out(port uint16, value uint8)
}

// PortFuncs adapts a pair of functions to PortHandler. Either may be nil.
type PortFuncs struct {
	InFunc  func(port uint16) uint8
	OutFunc func(port uint16, value uint8)
}

// In calls InFunc, or reads the floating bus when it is unset.
func (p PortFuncs) In(port uint16) uint8 {
	if p.InFunc == nil {
		return floatingBus
	}
	return p.InFunc(port)
}

// Out calls OutFunc if set.
func (p PortFuncs) Out(port uint16, value uint8) {
	if p.OutFunc != nil {
		p.OutFunc(port, value)
	}
}

// Bus represents a flat 64 KiB Z80 memory map with an optional
// write-protected ROM at the bottom and 256 I/O ports.
type Bus struct {
	// RAM covers the whole address space; the ROM window shadows its start.
	ram [AddressSpace]uint8

	// ROM (0000-len(rom)-1), read-only
	rom []byte

	// I/O ports selected by the low byte of the port address
	ports [256]PortHandler

	log logrus.FieldLogger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for unmapped port traffic.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Bus) {
		b.log = log
	}
}

// NewBus creates a new memory bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ErrImageTooLarge indicates an image does not fit in the address space.
var ErrImageTooLarge = errors.New("image does not fit in 64 KiB address space")

// SetROM installs a write-protected ROM image at address 0000.
func (b *Bus) SetROM(rom []byte) error {
	if len(rom) > AddressSpace {
		return fmt.Errorf("%w: ROM is %d bytes", ErrImageTooLarge, len(rom))
	}
	b.rom = append([]byte(nil), rom...)
	return nil
}

// ROMSize returns the size of the write-protected window.
func (b *Bus) ROMSize() int {
	return len(b.rom)
}

// Load copies data into RAM starting at addr.
func (b *Bus) Load(addr uint16, data []byte) error {
	if int(addr)+len(data) > AddressSpace {
		return fmt.Errorf("%w: %d bytes at %04X", ErrImageTooLarge, len(data), addr)
	}
	copy(b.ram[addr:], data)
	return nil
}

// Read reads a byte from the memory bus.
func (b *Bus) Read(addr uint16) uint8 {
	if int(addr) < len(b.rom) {
		return b.rom[addr]
	}
	return b.ram[addr]
}

// Write writes a byte to the memory bus. Writes into the ROM window are
// ignored.
func (b *Bus) Write(addr uint16, value uint8) {
	if int(addr) < len(b.rom) {
		return
	}
	b.ram[addr] = value
}

// SetPortHandler attaches h to the port whose low address byte is port.
// A nil handler unmaps the port.
func (b *Bus) SetPortHandler(port uint8, h PortHandler) {
	b.ports[port] = h
}

// ReadPort reads from the I/O space. Unmapped ports float high.
func (b *Bus) ReadPort(port uint16) uint8 {
	h := b.ports[port&0xFF]
	if h == nil {
		if b.debug() {
			b.log.WithField("port", fmt.Sprintf("%04X", port)).Debug("read from unmapped port")
		}
		return floatingBus
	}
	return h.In(port)
}

// WritePort writes to the I/O space. Writes to unmapped ports are dropped.
func (b *Bus) WritePort(port uint16, value uint8) {
	h := b.ports[port&0xFF]
	if h == nil {
		if b.debug() {
			b.log.WithFields(logrus.Fields{
				"port":  fmt.Sprintf("%04X", port),
				"value": fmt.Sprintf("%02X", value),
			}).Debug("write to unmapped port")
		}
		return
	}
	h.Out(port, value)
}

// debug reports whether the logger keeps Debug entries. Loggers that
// cannot tell are assumed to.
func (b *Bus) debug() bool {
	switch l := b.log.(type) {
	case *logrus.Logger:
		return l.IsLevelEnabled(logrus.DebugLevel)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(logrus.DebugLevel)
	}
	return true
}

// Reset clears all RAM while keeping the ROM and port handlers attached.
func (b *Bus) Reset() {
	clear(b.ram[:])
}

// Snapshot returns a copy of the address space as the CPU sees it.
func (b *Bus) Snapshot() []byte {
	out := make([]byte, AddressSpace)
	copy(out, b.ram[:])
	copy(out, b.rom)
	return out
}
