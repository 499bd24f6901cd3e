// Package testbench compares two Z80 implementations instruction by
// instruction. Each opcode of each family runs from the same random state
// on both processors and the resulting registers, memory and port writes
// must agree.
package testbench

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80core/internal/cpu"
)

// Instruction placement.
const (
	StartPC = 0x8000
	StartSP = 0x7FFE
)

// ErrMismatch indicates the processors disagreed.
var ErrMismatch = errors.New("processors disagree")

// Family is a group of opcodes sharing a prefix.
type Family struct {
	Name   string
	Prefix []uint8
	// Displaced families take a displacement byte between the prefix and
	// the opcode.
	Displaced bool
	skip      func(op uint8) bool
	flagMask  func(op uint8) uint8
}

func allFlags(uint8) uint8 { return 0xFF }

// bitFlagMask hides the flags BIT derives from the internal address latch.
func bitFlagMask(op uint8) uint8 {
	if op >= 0x40 && op < 0x80 {
		return 0x53
	}
	return 0xFF
}

// Families lists every opcode family in test order.
var Families = []Family{
	{Name: "base", skip: skipBase, flagMask: allFlags},
	{Name: "CB", Prefix: []uint8{0xCB}, skip: skipNone, flagMask: bitFlagMask},
	{Name: "ED", Prefix: []uint8{0xED}, skip: skipED, flagMask: edFlagMask},
	{Name: "DD", Prefix: []uint8{0xDD}, skip: skipIndexed, flagMask: allFlags},
	{Name: "FD", Prefix: []uint8{0xFD}, skip: skipIndexed, flagMask: allFlags},
	{Name: "DDCB", Prefix: []uint8{0xDD, 0xCB}, Displaced: true, skip: skipNone, flagMask: bitFlagMask},
	{Name: "FDCB", Prefix: []uint8{0xFD, 0xCB}, Displaced: true, skip: skipNone, flagMask: bitFlagMask},
}

// FamilyByName finds a family, ignoring case.
func FamilyByName(name string) (Family, bool) {
	for _, f := range Families {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Family{}, false
}

func skipNone(uint8) bool { return false }

// skipBase leaves out prefixes and HALT, whose stopped PC differs between
// implementations by design.
func skipBase(op uint8) bool {
	switch op {
	case 0x76, 0xCB, 0xDD, 0xED, 0xFD:
		return true
	}
	return false
}

// skipIndexed leaves out prefix chains, the DDCB family and HALT.
func skipIndexed(op uint8) bool {
	switch op {
	case 0x76, 0xCB, 0xDD, 0xED, 0xFD:
		return true
	}
	return false
}

// skipED tests the defined 40-7F rows and the block instructions only.
// LD A,R depends on the refresh counter, which is not compared.
func skipED(op uint8) bool {
	switch {
	case op == 0x5F || op == 0x77 || op == 0x7F:
		return true
	case op >= 0x40 && op < 0x80:
		return false
	case op >= 0xA0 && op < 0xC0:
		return op&0x04 != 0
	}
	return true
}

func edFlagMask(op uint8) uint8 {
	switch op {
	case 0x57: // LD A,I: P/V copies IFF2, sampled differently
		return ^uint8(cpu.FlagPV)
	case 0xA2, 0xA3, 0xAA, 0xAB, 0xB2, 0xB3, 0xBA, 0xBB:
		return 0x43
	}
	return 0xFF
}

// Mismatch describes one disagreement.
type Mismatch struct {
	Family string
	Opcode uint8
	Round  int
	What   string
	Want   string
	Got    string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("%s %02X round %d: %s = %s, reference %s", m.Family, m.Opcode, m.Round, m.What, m.Got, m.Want)
}

// Unwrap lets errors.Is match ErrMismatch.
func (m *Mismatch) Unwrap() error { return ErrMismatch }

// Limited is implemented by processors that cannot run every opcode the
// families cover. The bench skips an opcode either processor rejects.
type Limited interface {
	Unsupported(fam Family, op uint8) bool
}

func unsupported(p Processor, fam Family, op uint8) bool {
	l, ok := p.(Limited)
	return ok && l.Unsupported(fam, op)
}

// Bench runs the comparison.
type Bench struct {
	Subject   Processor
	Reference Processor
	Rounds    int
	Families  []Family
	Log       logrus.FieldLogger

	rng *rand.Rand
}

// New creates a bench comparing subject against reference.
func New(subject, reference Processor, seed uint64) *Bench {
	return &Bench{
		Subject:   subject,
		Reference: reference,
		Rounds:    10,
		Families:  Families,
		Log:       logrus.StandardLogger(),
		rng:       rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)), //nolint:gosec // G404: reproducible test data
	}
}

// Report summarises a run.
type Report struct {
	Tested  int
	Skipped int
	Failed  int
	errs    *multierror.Error
}

// Err returns every mismatch as one error, or nil.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

// Run compares every opcode of every family. It returns the report and the
// aggregated mismatches.
func (b *Bench) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	var before, want, got State

	for _, fam := range b.Families {
		failedBefore := report.Failed
		for op := range 256 {
			opcode := uint8(op) //nolint:gosec // G115: op < 256
			if fam.skip(opcode) || unsupported(b.Subject, fam, opcode) || unsupported(b.Reference, fam, opcode) {
				report.Skipped++
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}

			report.Tested++
			for round := range b.Rounds {
				b.randomize(&before, fam, opcode)
				b.execute(b.Reference, &before, &want)
				b.execute(b.Subject, &before, &got)

				if errs := compare(fam, opcode, round, &want, &got); len(errs) > 0 {
					report.Failed++
					report.errs = multierror.Append(report.errs, errs...)
					break
				}
			}
		}
		b.Log.WithFields(logrus.Fields{
			"family": fam.Name,
			"failed": report.Failed - failedBefore,
		}).Info("family compared")
	}
	return report, report.Err()
}

func (b *Bench) execute(p Processor, before, after *State) {
	p.Load(before)
	p.Step()
	p.Save(after)
}

// randomize fills s with random registers and memory and places the
// instruction at StartPC.
func (b *Bench) randomize(s *State, fam Family, op uint8) {
	for i := 0; i < len(s.Memory); i += 8 {
		v := b.rng.Uint64()
		for j := range 8 {
			s.Memory[i+j] = uint8(v >> (8 * j)) //nolint:gosec // G115: byte extraction
		}
	}
	for i := range s.Regs {
		s.Regs[i] = uint8(b.rng.Uint32()) //nolint:gosec // G115: random byte
	}

	s.Regs[cpu.RegPCH], s.Regs[cpu.RegPCL] = StartPC>>8, StartPC&0xFF
	s.Regs[cpu.RegSPH], s.Regs[cpu.RegSPL] = StartSP>>8, StartSP&0xFF
	// Interrupt flip-flops and mode random, never halted.
	s.Regs[cpu.RegIMIFF] = s.Regs[cpu.RegIMIFF]&0x03 | uint8(b.rng.IntN(3))<<2 //nolint:gosec // G115: IntN(3) < 3

	addr := StartPC
	for _, p := range fam.Prefix {
		s.Memory[addr] = p
		addr++
	}
	if fam.Displaced {
		addr++ // displacement stays random
	}
	s.Memory[addr] = op
	s.Writes = s.Writes[:0]
}

// compare checks got against the reference state want.
func compare(fam Family, op uint8, round int, want, got *State) []error {
	var errs []error
	mismatch := func(what, w, g string) {
		errs = append(errs, &Mismatch{Family: fam.Name, Opcode: op, Round: round, What: what, Want: w, Got: g})
	}

	mask := fam.flagMask(op)
	for id := range cpu.NumReg8 {
		reg := cpu.Reg8(id) //nolint:gosec // G115: id < NumReg8
		if reg == cpu.RegR {
			continue
		}
		w, g := want.Regs[id], got.Regs[id]
		if reg == cpu.RegF {
			w, g = w&mask, g&mask
		}
		if w != g {
			mismatch(reg.String(), fmt.Sprintf("%02X", w), fmt.Sprintf("%02X", g))
		}
	}

	if xxhash.Sum64(want.Memory[:]) != xxhash.Sum64(got.Memory[:]) {
		for addr := range want.Memory {
			if want.Memory[addr] != got.Memory[addr] {
				mismatch(fmt.Sprintf("(%04X)", addr),
					fmt.Sprintf("%02X", want.Memory[addr]), fmt.Sprintf("%02X", got.Memory[addr]))
			}
		}
	}

	if len(want.Writes) != len(got.Writes) {
		mismatch("port writes", fmt.Sprint(len(want.Writes)), fmt.Sprint(len(got.Writes)))
	} else {
		for i := range want.Writes {
			if want.Writes[i] != got.Writes[i] {
				mismatch(fmt.Sprintf("OUT #%d", i),
					fmt.Sprintf("%02X<-%02X", want.Writes[i].Port, want.Writes[i].Value),
					fmt.Sprintf("%02X<-%02X", got.Writes[i].Port, got.Writes[i].Value))
			}
		}
	}
	return errs
}
