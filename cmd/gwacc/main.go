package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xplshn/gwacc/pkg/cache"
	"github.com/xplshn/gwacc/pkg/cli"
	"github.com/xplshn/gwacc/pkg/config"
	"github.com/xplshn/gwacc/pkg/driver"
	"github.com/xplshn/gwacc/pkg/util"
)

func main() {
	app := cli.NewApp("gwacc")
	app.Synopsis = "[options] <input.json> ..."
	app.Description = "Semantic analyzer and ARMv6 code generator for WACC. Reads programs as JSON syntax trees and writes GNU assembler source."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gwacc>"

	var (
		outFile     string
		configFile  string
		cachePath   string
		includeDirs []string
		registers   int
		jobs        int
		dumpIR      bool
		run         bool
		noCache     bool
		allWarnings bool
	)

	cfg := config.NewConfig()
	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the assembly into <file> (single input only).", "file")
	fs.String(&configFile, "config", "c", "", "Read settings from a YAML file before applying flags.", "file")
	fs.String(&cachePath, "cache", "", "", "Reuse generated assembly stored in this SQLite database.", "file")
	fs.List(&includeDirs, "include", "I", nil, "Add a directory searched for included fragments.", "path")
	fs.Int(&registers, "registers", "r", 0, "Limit the expression register pool (3-8).", "n")
	fs.Int(&jobs, "jobs", "j", 0, "Compile up to <n> files in parallel.", "n")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Print the assembly to stdout instead of writing files.")
	fs.Bool(&run, "run", "", false, "Execute the program in the built-in emulator after compiling.")
	fs.Bool(&noCache, "no-cache", "", false, "Ignore any configured cache.")
	fs.Bool(&allWarnings, "Wall", "", false, "Enable every warning.")
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	status := driver.ExitOK
	app.Action = func(inputs []string) error {
		if configFile != "" {
			if err := cfg.LoadFile(configFile); err != nil { return err }
		}
		if allWarnings {
			if err := cfg.ApplyFlag("-Wall"); err != nil { return err }
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if registers != 0 {
			if err := cfg.SetRegisters(registers); err != nil { return err }
		}
		if jobs != 0 {
			cfg.SetJobs(jobs)
		}
		if cachePath != "" {
			cfg.CachePath = cachePath
		}

		if len(inputs) == 0 { return fmt.Errorf("no input files specified") }
		if outFile != "" && len(inputs) > 1 { return fmt.Errorf("-o cannot be used with %d inputs", len(inputs)) }
		if run && len(inputs) > 1 { return fmt.Errorf("--run takes a single input") }

		ctx := context.Background()
		opts := driver.Options{Config: cfg, IncludeDirs: includeDirs}
		// The emulator needs the instruction stream, which cached units lack.
		if cfg.CachePath != "" && !noCache && !run {
			c, err := cache.Open(ctx, cfg.CachePath)
			if err != nil { return err }
			defer c.Close()
			opts.Cache = c
		}

		units, err := driver.CompileAll(ctx, inputs, opts)
		if err != nil { return err }
		for _, u := range units {
			driver.Report(os.Stderr, u, cfg)
		}
		if status = driver.ExitCode(units); status != driver.ExitOK { return nil }

		for _, u := range units {
			switch {
			case run:
				code, err := driver.Execute(u, os.Stdin, os.Stdout)
				if err != nil { return err }
				status = code
			case dumpIR:
				fmt.Print(u.Asm)
			default:
				path, err := driver.WriteAsm(u, outFile)
				if err != nil { return err }
				cached := ""
				if u.Cached {
					cached = " (cached)"
				}
				util.Info(os.Stderr, "wrote %s%s", path, cached)
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gwacc: error: %v\n", err)
		os.Exit(driver.ExitFailure)
	}
	os.Exit(status)
}
