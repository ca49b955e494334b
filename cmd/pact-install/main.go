package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code. A failed
// command prints exactly one error line.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stdout)
		return 0
	}

	var err error
	switch args[0] {
	case "--version", "version":
		fmt.Fprintf(stdout, "pact-install %s\n", Version)
		return 0
	case "--help", "-h", "help":
		printHelp(stdout)
		return 0
	case "install":
		err = runInstall(args[1:], stdout)
	case "resolve":
		err = runResolve(args[1:], stdout)
	case "init":
		err = runInit(args[1:], stdout)
	default:
		fmt.Fprintf(stderr, "Error: unknown command: %s\n", args[0])
		printHelp(stderr)
		return 2
	}

	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "pact-install - install the Pact Ruby standalone tools")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pact-install --version               Show version information")
	fmt.Fprintln(w, "  pact-install install --dest DIR      Download and unpack the tools into DIR")
	fmt.Fprintln(w, "  pact-install resolve                 Show the artifact selected for this host")
	fmt.Fprintln(w, "  pact-install init [--output FILE]    Write a default "+configFileHint)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pact-install <command> --help' for command flags.")
}
