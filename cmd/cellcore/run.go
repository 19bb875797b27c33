package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func runScript(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	a, err := newApp(out)
	if err != nil {
		return err
	}
	defer a.Close()

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	return a.console(out).Run(cmd.Context(), in)
}
