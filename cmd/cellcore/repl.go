package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/vogtb/cellcore/internal/console"
)

const prompt = "cellcore> "

var commandNames = []string{
	"clear ", "deps ", "exit", "free ", "get ", "grid", "help",
	"quit", "reset", "set ", "show ", "stats",
}

func complete(line string) []string {
	var matches []string
	lower := strings.ToLower(line)
	for _, name := range commandNames {
		if strings.HasPrefix(name, lower) {
			matches = append(matches, name)
		}
	}
	return matches
}

func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runRepl(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	a, err := newApp(out)
	if err != nil {
		return err
	}
	defer a.Close()

	interp := a.console(out)
	if !isInteractive() {
		return interp.Run(cmd.Context(), cmd.InOrStdin())
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	for {
		input, err := line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		err = interp.Exec(input)
		if errors.Is(err, console.ErrQuit) {
			return nil
		}
		if err != nil {
			interp.Report(err)
		}
	}
}
