package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80core/internal/emulator"
	"github.com/richardwooding/z80core/internal/loader"
	"github.com/richardwooding/z80core/internal/luahost"
)

// ScriptCmd runs a Lua script with a machine in scope.
type ScriptCmd struct {
	Script string `arg:"" type:"existingfile" help:"Path to Lua script."`
	Load   string `type:"existingfile" help:"Program image to load before the script starts."`
	Org    uint16 `help:"Load address for raw images." default:"0"`
}

// Run executes the script command.
func (c *ScriptCmd) Run(log *logrus.Logger) error {
	m := emulator.New(emulator.WithLogger(log))
	if c.Load != "" {
		img, err := loader.Load(c.Load)
		if err != nil {
			return err
		}
		if m, err = buildMachine(img, nil, c.Org, emulator.WithLogger(log)); err != nil {
			return err
		}
	}

	host := luahost.New(m, luahost.WithOutput(os.Stdout), luahost.WithLogger(log))
	defer host.Close()

	return host.Run(c.Script)
}
