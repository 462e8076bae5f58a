// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cfgdump reads a textual instruction listing, runs it through the
// control-flow graph builder, optimizer and assembler, and prints whatever
// stage the caller asked for. It exists to exercise and inspect the
// pipeline from the command line, the way bbcdisasm's own CLI front end
// exercises its disassembler.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	cli "github.com/urfave/cli/v2"

	"github.com/go-interpreter/flowcfg/assemble"
	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/optimize"
)

func loadListing(path string) ([]cfg.Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseListing(f)
}

// loadConsts reads one constant per line: an integer, a float, "true",
// "false", or a double-quoted string. Blank lines and lines starting with
// "#" are skipped; the rest are appended in order, so the Nth such line
// becomes constant-pool index N-1 — the index a LOAD_CONST oparg in the
// listing is expected to name.
func loadConsts(path string) (*cfg.ConstantPool, error) {
	if path == "" {
		return cfg.NewConstantPool(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var values []interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		values = append(values, parseConst(text))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg.NewConstantPool(values), nil
}

func parseConst(text string) interface{} {
	if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	if text == "true" || text == "false" {
		return text == "true"
	}
	if n, err := strconv.ParseInt(text, 0, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}

func dumpGraph(c *cli.Context, runOptimizer bool) error {
	instrs, err := loadListing(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}
	consts, err := loadConsts(c.String("consts"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	g, err := cfg.Build(instrs)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if runOptimizer {
		if _, err := optimize.Run(g, consts); err != nil {
			return cli.Exit(err, 1)
		}
	} else if _, err := g.Analyze(); err != nil {
		return cli.Exit(err, 1)
	}

	if err := g.Dump(os.Stdout); err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Printf("constants:\n")
	for i := 0; i < consts.Len(); i++ {
		fmt.Printf("  %3d: %#v\n", i, consts.Get(i))
	}
	return nil
}

func assembleGraph(c *cli.Context) error {
	instrs, err := loadListing(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}
	consts, err := loadConsts(c.String("consts"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	g, err := cfg.Build(instrs)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if _, err := optimize.Run(g, consts); err != nil {
		return cli.Exit(err, 1)
	}

	out, err := assemble.Assemble(g, int32(c.Int("first-line")))
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Printf("bytecode (%d bytes):\n", len(out.Bytecode))
	fmt.Printf("  % x\n", out.Bytecode)
	fmt.Printf("lnotab (%d bytes):\n", len(out.Lnotab))
	fmt.Printf("  % x\n", out.Lnotab)
	fmt.Printf("max stack depth: %d\n", out.MaxStackDepth)

	fmt.Printf("line table:\n")
	for _, e := range assemble.DecodeLnotab(out.Lnotab, int32(c.Int("first-line"))) {
		fmt.Printf("  offset %4d: line %d\n", e.Offset, e.Line)
	}
	return nil
}

func main() {
	constsFlag := &cli.StringFlag{
		Name:  "consts",
		Usage: "file listing constant-pool values, one per line",
	}

	app := cli.NewApp()
	app.Name = "cfgdump"
	app.Usage = "build, optimize and assemble a textual bytecode listing"
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c)
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "build",
			Usage:     "parse a listing and print the resulting control-flow graph",
			ArgsUsage: "listing",
			Flags:     []cli.Flag{constsFlag},
			Action: func(c *cli.Context) error {
				if c.Args().Len() < 1 {
					return cli.Exit("missing listing argument", 1)
				}
				return dumpGraph(c, false)
			},
		},
		{
			Name:      "optimize",
			Aliases:   []string{"opt"},
			Usage:     "parse, optimize, and print the resulting control-flow graph",
			ArgsUsage: "listing",
			Flags:     []cli.Flag{constsFlag},
			Action: func(c *cli.Context) error {
				if c.Args().Len() < 1 {
					return cli.Exit("missing listing argument", 1)
				}
				return dumpGraph(c, true)
			},
		},
		{
			Name:      "assemble",
			Aliases:   []string{"asm"},
			Usage:     "parse, optimize and assemble a listing into bytecode and lnotab",
			ArgsUsage: "listing",
			Flags: []cli.Flag{
				constsFlag,
				&cli.IntFlag{
					Name:  "first-line",
					Value: 1,
					Usage: "source line number of the first instruction",
				},
			},
			Action: func(c *cli.Context) error {
				if c.Args().Len() < 1 {
					return cli.Exit("missing listing argument", 1)
				}
				return assembleGraph(c)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
