// Package console interprets line-oriented sheet commands. it backs both the
// script runner and the interactive repl.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/vogtb/cellcore"
	"github.com/vogtb/cellcore/internal/render"
)

var (
	ErrQuit           = errors.New("quit")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

const helpText = `commands:
  set <cell> <text>   store text (a leading = makes it a formula)
  get <cell>          show the text an editor would open
  show <cell>         show the rendered value
  clear <cell>        empty a cell, keeping it in the sheet
  free <cell>         remove a cell from the sheet
  deps <cell>         list the cells that reference <cell>
  grid                draw every rendered cell
  stats               show store statistics
  reset               discard every cell
  help                show this text
  quit                leave the repl
lines starting with # are ignored`

// Interpreter executes commands against one sheet. the grid must be one of
// the sheet's renderers for the grid command to show anything.
type Interpreter struct {
	sheet  *cellcore.Sheet
	grid   *render.Grid
	out    io.Writer
	logger *slog.Logger
}

func New(sheet *cellcore.Sheet, grid *render.Grid, out io.Writer, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if grid == nil {
		grid = render.NewGrid()
	}
	return &Interpreter{
		sheet:  sheet,
		grid:   grid,
		out:    out,
		logger: logger,
	}
}

// Exec runs a single line
func (in *Interpreter) Exec(line string) error {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	command, rest, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	switch strings.ToLower(command) {
	case "set":
		address, text, _ := strings.Cut(strings.TrimLeft(rest, " \t"), " ")
		if address == "" {
			return fmt.Errorf("%w: set <cell> <text>", ErrUsage)
		}
		return in.sheet.SetAddress(address, text)
	case "get":
		return in.withCell(rest, func(pos cellcore.Position) error {
			text, err := in.sheet.GetTextualValue(pos)
			if err != nil {
				return err
			}
			fmt.Fprintln(in.out, text)
			return nil
		})
	case "show":
		return in.withCell(rest, func(pos cellcore.Position) error {
			text, err := in.sheet.Display(pos)
			if err != nil {
				return err
			}
			fmt.Fprintln(in.out, text)
			return nil
		})
	case "clear":
		return in.withCell(rest, in.sheet.Clear)
	case "free":
		return in.withCell(rest, in.sheet.Free)
	case "deps":
		return in.withCell(rest, func(pos cellcore.Position) error {
			deps, err := in.sheet.Dependents(pos)
			if err != nil {
				return err
			}
			names := make([]string, len(deps))
			for i, d := range deps {
				names[i] = d.String()
			}
			sort.Strings(names)
			fmt.Fprintln(in.out, strings.Join(names, " "))
			return nil
		})
	case "grid":
		if view := in.grid.View(); view != "" {
			fmt.Fprintln(in.out, view)
		}
		return nil
	case "stats":
		st := in.sheet.Stats()
		fmt.Fprintf(in.out, "cells=%d buckets=%d longest_chain=%d edges=%d\n",
			st.Cells, st.Buckets, st.LongestChain, st.Edges)
		return nil
	case "reset":
		in.sheet.Destroy()
		in.sheet.Init()
		in.grid.Reset()
		return nil
	case "help":
		fmt.Fprintln(in.out, helpText)
		return nil
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func (in *Interpreter) withCell(arg string, fn func(cellcore.Position) error) error {
	pos, err := cellcore.ParseAddress(strings.TrimSpace(arg))
	if err != nil {
		return err
	}
	return fn(pos)
}

// Run executes lines from r until EOF, quit or cancellation. command errors
// are reported on the output and do not stop the run.
func (in *Interpreter) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++
		err := in.Exec(scanner.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			in.Report(err)
			in.logger.Debug("command failed", "line", lineNo, "error", err)
		}
	}
	return scanner.Err()
}

// Report prints a command error the way the repl shows it
func (in *Interpreter) Report(err error) {
	fmt.Fprintf(in.out, "error: %v\n", err)
}
