package memory

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordingPort struct {
	value  uint8
	writes []uint16
}

func (p *recordingPort) In(uint16) uint8 { return p.value }

func (p *recordingPort) Out(port uint16, value uint8) {
	p.writes = append(p.writes, port)
	p.value = value
}

func TestNewBus(t *testing.T) {
	bus := NewBus()

	if bus == nil {
		t.Fatal("NewBus() returned nil")
	}
	if bus.ROMSize() != 0 {
		t.Errorf("ROMSize() = %d, want 0", bus.ROMSize())
	}
	if bus.Read(0x0000) != 0x00 {
		t.Errorf("Read(0x0000) = %02X, want 0x00", bus.Read(0x0000))
	}
}

func TestRAMAccess(t *testing.T) {
	bus := NewBus()

	tests := []struct {
		addr  uint16
		value uint8
	}{
		{0x0000, 0x01},
		{0x0100, 0x42},
		{0x8000, 0x84},
		{0xFFFF, 0xCD},
	}
	for _, tt := range tests {
		bus.Write(tt.addr, tt.value)
		if got := bus.Read(tt.addr); got != tt.value {
			t.Errorf("Read(%04X) = %02X, want %02X", tt.addr, got, tt.value)
		}
	}
}

func TestROMIsWriteProtected(t *testing.T) {
	bus := NewBus()
	if err := bus.SetROM([]byte{0x3E, 0x42}); err != nil {
		t.Fatalf("SetROM() error = %v", err)
	}

	bus.Write(0x0000, 0xFF)
	if got := bus.Read(0x0000); got != 0x3E {
		t.Errorf("ROM should be read-only, got %02X", got)
	}

	bus.Write(0x0002, 0x77)
	if got := bus.Read(0x0002); got != 0x77 {
		t.Errorf("Read(0x0002) = %02X, want 0x77 (RAM above ROM)", got)
	}
}

func TestLoad(t *testing.T) {
	bus := NewBus()

	if err := bus.Load(0x0100, []byte{0xC3, 0x00, 0x01}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if bus.Read(0x0100) != 0xC3 || bus.Read(0x0102) != 0x01 {
		t.Error("image not copied to 0x0100")
	}

	if err := bus.Load(0xFFFF, []byte{0x00}); err != nil {
		t.Errorf("one byte at FFFF should fit: %v", err)
	}

	err := bus.Load(0xFFFF, []byte{0x00, 0x00})
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Load past FFFF error = %v, want ErrImageTooLarge", err)
	}

	err = bus.SetROM(make([]byte, AddressSpace+1))
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("SetROM oversize error = %v, want ErrImageTooLarge", err)
	}
}

func TestUnmappedPortsFloatHigh(t *testing.T) {
	bus := NewBus()

	for _, port := range []uint16{0x0000, 0x00FE, 0x7FFD, 0xFFFF} {
		if got := bus.ReadPort(port); got != 0xFF {
			t.Errorf("ReadPort(%04X) = %02X, want 0xFF", port, got)
		}
	}
	bus.WritePort(0x00FE, 0x12) // dropped
}

func TestUnmappedPortLogging(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)
	bus := NewBus(WithLogger(log))

	allocs := testing.AllocsPerRun(100, func() {
		bus.ReadPort(0x0010)
		bus.WritePort(0x0010, 0x55)
	})
	if allocs != 0 {
		t.Errorf("unmapped port access allocates %.0f times above Debug level", allocs)
	}
	if len(hook.AllEntries()) != 0 {
		t.Errorf("logged %d entries above Debug level", len(hook.AllEntries()))
	}

	log.SetLevel(logrus.DebugLevel)
	bus.ReadPort(0x1234)
	bus.WritePort(0x00FE, 0x07)
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if entries[0].Data["port"] != "1234" || entries[1].Data["value"] != "07" {
		t.Errorf("fields %v and %v", entries[0].Data, entries[1].Data)
	}

	hook.Reset()
	entry := NewBus(WithLogger(log.WithField("component", "bus")))
	log.SetLevel(logrus.WarnLevel)
	entry.ReadPort(0x0001)
	if len(hook.AllEntries()) != 0 {
		t.Error("entry logger ignored its level")
	}
}

func TestPortHandlersDecodeLowByte(t *testing.T) {
	bus := NewBus()
	dev := &recordingPort{}
	bus.SetPortHandler(0xFE, dev)

	bus.WritePort(0x12FE, 0x34)
	bus.WritePort(0xABFE, 0x56)
	if len(dev.writes) != 2 || dev.writes[0] != 0x12FE || dev.writes[1] != 0xABFE {
		t.Errorf("device saw %04X, want full port addresses", dev.writes)
	}
	if got := bus.ReadPort(0x00FE); got != 0x56 {
		t.Errorf("ReadPort(0x00FE) = %02X, want 0x56", got)
	}
	if got := bus.ReadPort(0x00FD); got != 0xFF {
		t.Errorf("neighbouring port = %02X, want 0xFF", got)
	}

	bus.SetPortHandler(0xFE, nil)
	if got := bus.ReadPort(0x00FE); got != 0xFF {
		t.Errorf("unmapped port = %02X, want 0xFF", got)
	}
}

func TestPortFuncs(t *testing.T) {
	var out uint8
	bus := NewBus()
	bus.SetPortHandler(0x01, PortFuncs{
		OutFunc: func(_ uint16, v uint8) { out = v },
	})

	bus.WritePort(0x0001, 0x99)
	if out != 0x99 {
		t.Errorf("OutFunc got %02X, want 0x99", out)
	}
	if got := bus.ReadPort(0x0001); got != 0xFF {
		t.Errorf("nil InFunc read %02X, want 0xFF", got)
	}
}

func TestResetKeepsROM(t *testing.T) {
	bus := NewBus()
	_ = bus.SetROM([]byte{0xAA})
	bus.Write(0x4000, 0x55)

	bus.Reset()
	if bus.Read(0x4000) != 0x00 {
		t.Error("Reset should clear RAM")
	}
	if bus.Read(0x0000) != 0xAA {
		t.Error("Reset should keep ROM")
	}
}

func TestSnapshot(t *testing.T) {
	bus := NewBus()
	_ = bus.SetROM([]byte{0x11, 0x22})
	bus.Write(0x1234, 0x56)

	snap := bus.Snapshot()
	if len(snap) != AddressSpace {
		t.Fatalf("len(Snapshot()) = %d, want %d", len(snap), AddressSpace)
	}
	if snap[0] != 0x11 || snap[1] != 0x22 || snap[0x1234] != 0x56 {
		t.Errorf("snapshot = %02X %02X .. %02X", snap[0], snap[1], snap[0x1234])
	}

	snap[0x1234] = 0
	if bus.Read(0x1234) != 0x56 {
		t.Error("Snapshot should be a copy")
	}
}
