// Copyright 2026 The nitfmeta Authors
// SPDX-License-Identifier: MIT

// nitfinfo prints the header and subheader fields of a NITF file.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bgrewell/usage"
	"github.com/fatih/color"
	"github.com/gonitf/nitfmeta"
	"github.com/gonitf/nitfmeta/internal/logging"
	"golang.org/x/term"
)

func main() {
	u := usage.NewUsage(
		usage.WithApplicationName("nitfinfo"),
		usage.WithApplicationDescription("nitfinfo prints the file header and segment subheader fields of a NITF 2.1 file."),
	)
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Log the decode phases", "optional", nil)
	sorted := u.AddBooleanOption("s", "sorted", false, "Print the fields of each section sorted by tag", "optional", nil)
	noColor := u.AddBooleanOption("n", "no-color", false, "Disable colored output", "optional", nil)
	path := u.AddArgument(1, "nitf-path", "Path to the NITF file", "")
	configPath := u.AddArgument(2, "config", "Optional config.toml", "")

	if !u.Parse() {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}
	if *help {
		u.PrintUsage()
		os.Exit(0)
	}
	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the NITF file <nitf-path> must be provided"))
		os.Exit(1)
	}

	cfg := defaultConfig()
	if configPath != nil && *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath, cfg); err != nil {
			u.PrintError(err)
			os.Exit(1)
		}
	}
	if *verbose {
		cfg.Verbosity = max(cfg.Verbosity, 1)
	}
	if *sorted {
		cfg.Sorted = true
	}
	if *noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		cfg.Color = false
	}

	if err := run(cfg, *path, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "nitfinfo: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config, path string, stdout, stderr io.Writer) error {
	logger := logging.New(stderr, cfg.Verbosity, cfg.Color).WithName("nitfinfo")

	f, err := nitfmeta.DecodeFile(path, nitfmeta.Options{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	opts := nitfmeta.PrintOptions{SortKeys: cfg.Sorted}
	if cfg.Color {
		key := color.New(color.FgCyan, color.Bold)
		key.EnableColor()
		opts.FormatKey = func(s string) string {
			return key.Sprint(s)
		}
	}

	return f.Print(stdout, opts)
}
