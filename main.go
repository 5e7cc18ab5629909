// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Command minitar creates, lists, appends to, updates and extracts ustar archives.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
)

const name = "minitar"

var stdout io.Writer = os.Stdout

// globalOptions apply to every verb.
type globalOptions struct {
	Verbose  bool   `short:"v" long:"verbose" description:"Log every member (same as --log-level=debug)"`
	LogLevel string `long:"log-level" env:"MINITAR_LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Minimum level of log messages"`
}

func (g *globalOptions) logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if g.Verbose {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)
	return l
}

func newParser() *flags.Parser {
	g := new(globalOptions)
	parser := flags.NewNamedParser(name, flags.HelpFlag|flags.PassDoubleDash)
	parser.AddGroup("Global options", "", g)

	parser.AddCommand("c", createDescription, createHelp, &createCommand{g: g})
	parser.AddCommand("a", appendDescription, appendHelp, &appendCommand{g: g})
	parser.AddCommand("t", listDescription, listHelp, &listCommand{g: g})
	parser.AddCommand("u", updateDescription, updateHelp, &updateCommand{g: g})
	parser.AddCommand("x", extractDescription, extractHelp, &extractCommand{g: g})
	parser.AddCommand("sum", sumDescription, sumHelp, &sumCommand{g: g})
	parser.AddCommand("index", indexDescription, indexHelp, &indexCommand{g: g})
	parser.AddCommand("get", getDescription, getHelp, &getCommand{g: g})
	return parser
}

func run(args []string) error {
	_, err := newParser().ParseArgs(args)
	return err
}

func main() {
	err := run(os.Args[1:])
	if err == nil {
		return
	}

	if e, ok := err.(*flags.Error); ok {
		if e.Type == flags.ErrHelp {
			os.Stdout.WriteString(e.Message + "\n")
			return
		}
		if e.Type == flags.ErrCommandRequired {
			newParser().WriteHelp(os.Stderr)
		} else {
			os.Stderr.WriteString(name + ": " + e.Message + "\n")
		}
		os.Exit(1)
	}

	slog.Error("commandFailed", "err", err)
	os.Exit(1)
}
