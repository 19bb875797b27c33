package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	echo       bool

	rootCmd = &cobra.Command{
		Use:   "cellcore",
		Short: "A small spreadsheet engine with formulas and dependency tracking",
		Long: `cellcore stores cells addressed as A1, B3, ... whose content is a number,
text, or a formula (=A1+A2+3). Editing a cell recomputes the formulas that
reference it.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run [script]",
		Short: "Execute console commands from a script file, or stdin when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScript,
	}

	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Edit a sheet interactively",
		Args:  cobra.NoArgs,
		RunE:  runRepl,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve a sheet over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "cellcore.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&echo, "echo", false, "print every render call")
	replCmd.Flags().BoolVar(&echo, "echo", false, "print every render call")

	rootCmd.AddCommand(runCmd, replCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
