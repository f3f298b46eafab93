// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() { _ = cmd.Execute() }

var cmd = &cobra.Command{
	Use:   "stackcat",
	Short: "Copy framed well-log files to standard output",
}

var flag = struct {
	Offset   int64
	LogLevel string
	Verbose  bool
	Mmap     bool
}{}

func init() {
	cmd.PersistentFlags().Int64Var(&flag.Offset, "offset", 0, "Byte offset to treat as the start of the input")
	cmd.PersistentFlags().StringVar(&flag.LogLevel, "log-level", "error", "Log level")
	cmd.PersistentFlags().BoolVarP(&flag.Verbose, "verbose", "v", false, "Report a copy summary on stderr")
	cmd.PersistentFlags().BoolVar(&flag.Mmap, "mmap", false, "Map the input into memory instead of streaming it")

	cmd.AddCommand(rawCmd, tapeCmd, envelopeCmd)
}

func logger() zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	l := zerolog.New(w).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(flag.LogLevel)
	if err != nil {
		l.Warn().Str("level", flag.LogLevel).Msg("Unknown log level, using error")
		level = zerolog.ErrorLevel
	}
	if flag.Verbose && level > zerolog.InfoLevel {
		// the copy summary is logged at info level
		level = zerolog.InfoLevel
	}
	return l.Level(level)
}

func check(err error) {
	if err == nil {
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: ")
	color.New(color.FgRed).Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(1)
}
