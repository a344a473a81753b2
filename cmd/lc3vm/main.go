// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/lassandro/lc3vm/internal/translate"
	"github.com/lassandro/lc3vm/pkg/encoding"
	"github.com/lassandro/lc3vm/pkg/keyboard"
	"github.com/lassandro/lc3vm/pkg/machine"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

var f = translate.From

type options struct {
	Images []string `arg:"" type:"existingfile" help:"Object files to load, in order."`
	Entry  string   `placeholder:"0xADDR" help:"Start address. Defaults to the origin of the first image."`
	Strict bool     `help:"Stop on reserved opcodes instead of ignoring them."`
	Trace  bool     `help:"Log every executed instruction to stderr."`
	Raw    bool     `negatable:"" default:"true" help:"Put an interactive terminal in raw mode while running."`
}

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

// lc3vm runs the command until the program halts or ctx is cancelled.
func lc3vm(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) int {
	var opts options

	parser, err := kong.New(&opts,
		kong.Name("lc3vm"),
		kong.Description(f("Runs LC-3 object files until they halt.")),
		kong.UsageOnError(),
	)
	if err != nil {
		log.Println(err)
		return exitError
	}

	if _, err := parser.Parse(args); err != nil {
		log.Println(err)
		return exitError
	}

	var mc machine.Machine
	mc.State.Reset()
	mc.Strict = opts.Strict

	if opts.Trace {
		mc.Trace = log.New(log.Writer(), log.Prefix(), 0)
	}

	var entry uint16

	for i, path := range opts.Images {
		span, err := mc.LoadFile(path)
		if err != nil {
			log.Println(err)
			return exitError
		}

		if i == 0 {
			entry = uint16(span.Start)
		}
	}

	if opts.Entry != "" {
		if entry, err = encoding.DecodeHex(opts.Entry); err != nil {
			log.Println(f("--entry %v: %v", opts.Entry, err))
			return exitError
		}
	}

	mc.State.Program = entry

	if file, ok := stdin.(*os.File); ok && opts.Raw && term.IsTerminal(int(file.Fd())) {
		restore, err := enterRawTerm(file.Fd())
		if err != nil {
			log.Println(err)
			return exitError
		}

		defer restore()
	}

	interrupted := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cell := keyboard.NewCell()
	poller := keyboard.Poller{Input: stdin, Cell: cell}

	var pollers errgroup.Group
	pollers.Go(func() error {
		return poller.Run(ctx)
	})

	display := bufio.NewWriter(stdout)
	mc.Devices = &machine.DeviceHandler{Keyboard: cell, Display: display}

	err = mc.Run(ctx)

	// The poller must be off the terminal before raw mode is undone.
	cancel()
	pollers.Wait()

	if flushErr := display.Flush(); err == nil {
		err = flushErr
	}

	switch {
	case err == nil:
		return exitOK

	case interrupted.Err() != nil, errors.Is(err, context.Canceled):
		fmt.Fprintln(stdout)
		return exitInterrupted

	default:
		log.Println(err)
		return exitError
	}
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)

	code := lc3vm(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()

	os.Exit(code)
}
