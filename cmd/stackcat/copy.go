// Copyright 2026 The Stackfile Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gitlab.com/welldata/stackfile/pkg/errors"
	"gitlab.com/welldata/stackfile/pkg/stack"
)

var rawCmd = &cobra.Command{
	Use:   "raw <file>",
	Short: "Copy a file to stdout as-is",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		run(args[0], nil)
	},
}

var tapeCmd = &cobra.Command{
	Use:   "tape <file>",
	Short: "Copy a tape-image-wrapped file to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		run(args[0], stack.OpenTapeImage)
	},
}

var envelopeCmd = &cobra.Command{
	Use:   "envelope <file>",
	Short: "Copy a visible-envelope-wrapped file to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		run(args[0], stack.OpenVisibleEnvelope)
	},
}

func open(path string) (stack.Protocol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if flag.Mmap {
		p, err := stack.OpenMmap(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if flag.Offset != 0 {
			if err := p.Seek(flag.Offset); err != nil {
				_ = p.Close()
				return nil, err
			}
		}
		return p, nil
	}
	return stack.OpenFileAt(f, flag.Offset)
}

func run(path string, wrap func(stack.Protocol) (stack.Protocol, error)) {
	log := logger()

	p, err := open(path)
	check(err)
	if wrap != nil {
		p, err = wrap(p)
		check(err)
	}
	defer func() { check(stack.Close(p)) }()

	var total uint64
	var recovered bool
	buf := make([]byte, 1<<16)
	for {
		n, err := p.ReadInto(buf)
		if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
			check(werr)
		}
		total += uint64(n)

		switch code := errors.Code(err); code {
		case errors.OK:
			continue
		case errors.OKIncomplete:
			if p.EOF() {
				report(log, total, recovered)
				return
			}
			log.Debug().Int("read", n).Msg("Short read, retrying")
			continue
		case errors.TryRecovery:
			if !recovered {
				log.Warn().Msg("Framing was patched in memory; data comes from a repaired stream")
				recovered = true
			}
			if p.EOF() {
				report(log, total, recovered)
				return
			}
			continue
		case errors.EOF:
			report(log, total, recovered)
			return
		default:
			check(err)
		}
	}
}

func report(log zerolog.Logger, total uint64, recovered bool) {
	if !flag.Verbose {
		return
	}
	log.Info().Msgf("Copied %s (%d bytes), recovered=%v", humanize.IBytes(total), total, recovered)
}
