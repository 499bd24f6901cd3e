package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/richardwooding/z80core/internal/clock"
	"github.com/richardwooding/z80core/internal/cpu"
	"github.com/richardwooding/z80core/internal/emulator"
	"github.com/richardwooding/z80core/internal/loader"
	"github.com/richardwooding/z80core/internal/snapshot"
)

// spectrumInterruptData is what the 48K Spectrum's floating bus supplies
// during an interrupt acknowledge.
const spectrumInterruptData = 0xFF

// buildMachine creates a machine for img. CP/M programs get BDOS
// emulation, snapshots get the 48K frame interrupt and raw images load at
// org. A non-nil rom is mapped read-only at 0000.
func buildMachine(img *loader.Image, rom []byte, org uint16, opts ...emulator.Option) (*emulator.Machine, error) {
	switch img.Format {
	case loader.FormatSNA:
		snap, err := snapshot.Decode(img.Data)
		if err != nil {
			return nil, err
		}
		// Caller options come last so they can change the interrupt rate.
		opts = append([]emulator.Option{
			emulator.WithInterruptPeriod(clock.Spectrum48Frame, clock.Spectrum48Pulse, spectrumInterruptData),
		}, opts...)
		m, err := newMachine(rom, opts...)
		if err != nil {
			return nil, err
		}
		if err := snap.Apply(m.CPU, m.Memory); err != nil {
			return nil, err
		}
		return m, nil

	case loader.FormatCOM:
		if rom != nil {
			return nil, fmt.Errorf("%w: cannot map a ROM under a CP/M program", emulator.ErrPageZeroROM)
		}
		m, err := newMachine(nil, append(opts, emulator.WithCPM())...)
		if err != nil {
			return nil, err
		}
		origin, _ := img.Format.Origin()
		return m, m.LoadProgram(origin, img.Data)

	default:
		m, err := newMachine(rom, opts...)
		if err != nil {
			return nil, err
		}
		return m, m.LoadProgram(org, img.Data)
	}
}

// setArguments hands args to a CP/M program as its command tail, upper
// cased and with the leading space the CCP leaves in place.
func setArguments(m *emulator.Machine, img *loader.Image, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if img.Format != loader.FormatCOM {
		return fmt.Errorf("%w: %s is not a CP/M program", ErrArgumentsIgnored, img.Name)
	}
	return m.SetCommandTail(" " + strings.ToUpper(strings.Join(args, " ")))
}

func newMachine(rom []byte, opts ...emulator.Option) (*emulator.Machine, error) {
	m := emulator.New(opts...)
	if rom != nil {
		if err := m.Memory.SetROM(rom); err != nil {
			return nil, fmt.Errorf("failed to map ROM: %w", err)
		}
	}
	return m, nil
}

// saveSnapshot writes the machine state to path in SNA format.
func saveSnapshot(path string, m *emulator.Machine) error {
	snap, err := snapshot.Capture(m.CPU, m.Memory, 0)
	if err != nil {
		return err
	}

	// #nosec G304 - path is provided by the user via CLI argument
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := snap.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// printSnapshot prints the registers a snapshot restores.
func printSnapshot(img *loader.Image) error {
	snap, err := snapshot.Decode(img.Data)
	if err != nil {
		return err
	}

	fmt.Printf("\nSnapshot:\n")
	fmt.Printf("  SP:       %04X\n", snap.SP())
	fmt.Printf("  IM:       %d\n", snap.IM())
	fmt.Printf("  IFF2:     %v\n", snap.IFF2())
	fmt.Printf("  Border:   %d\n", snap.Border())
	fmt.Printf("\nRegisters:\n")
	printRegisters(snap.Register)
	return nil
}

// printRegisters prints every 8-bit register cell in the stable numbering.
func printRegisters(get func(cpu.Reg8) uint8) {
	for id := range cpu.NumReg8 {
		r := cpu.Reg8(id) //nolint:gosec // G115: id < NumReg8
		fmt.Printf("  %-6s %02X", r.String()+":", get(r))
		if id%8 == 7 {
			fmt.Println()
		}
	}
	fmt.Println()
}
