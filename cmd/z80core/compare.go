package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80core/internal/testbench"
)

var (
	// ErrUnknownFamily indicates an opcode family name that does not exist.
	ErrUnknownFamily = errors.New("unknown opcode family")

	// ErrComparisonFailed indicates the processors disagreed on some opcodes.
	ErrComparisonFailed = errors.New("comparison failed")
)

// CompareCmd runs the differential test bench.
type CompareCmd struct {
	Rounds  int      `help:"Random states tried per opcode." default:"10"`
	Seed    uint64   `help:"Random seed; the same seed replays the same states." default:"1"`
	Family  []string `help:"Opcode families to compare (base, CB, ED, DD, FD, DDCB, FDCB). Default: all."`
	Verbose bool     `short:"v" help:"List every mismatch."`
}

// Run executes the compare command.
func (c *CompareCmd) Run(log *logrus.Logger) error {
	families, err := c.families()
	if err != nil {
		return err
	}

	bench := testbench.New(testbench.NewCore(), testbench.NewKoron(), c.Seed)
	bench.Rounds = c.Rounds
	bench.Families = families
	bench.Log = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Comparing %s against %s (seed %d)\n", bench.Subject.Name(), bench.Reference.Name(), c.Seed)
	report, err := bench.Run(ctx)
	fmt.Printf("Tested: %d  Skipped: %d  Failed: %d\n", report.Tested, report.Skipped, report.Failed)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, testbench.ErrMismatch):
		if c.Verbose {
			fmt.Printf("\n%v\n", err)
		}
		return fmt.Errorf("%w: %d opcodes differ", ErrComparisonFailed, report.Failed)
	default:
		return err
	}
}

func (c *CompareCmd) families() ([]testbench.Family, error) {
	if len(c.Family) == 0 {
		return testbench.Families, nil
	}
	out := make([]testbench.Family, 0, len(c.Family))
	for _, name := range c.Family {
		fam, ok := testbench.FamilyByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
		}
		out = append(out, fam)
	}
	return out, nil
}
