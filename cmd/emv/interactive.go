package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/emverrors"
)

// runInteractive drives a REPL of the same subcommands batch mode
// exposes, against the one App/WC already opened by PersistentPreRunE.
// Per spec.md §6, interactive mode engages only when no action was named
// on the command line and stdin is a terminal; EOF (Ctrl-D) is a clean
// exit, not an error, and cancellation at the prompt is never surfaced
// as a failure.
func runInteractive(root *cobra.Command) error {
	fmt.Fprintln(os.Stdout, "emv interactive mode — type a command, or 'quit' (Ctrl-D to exit)")

	cmds := make(map[string]*cobra.Command)
	for _, c := range root.Commands() {
		cmds[c.Name()] = c
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "emv> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name, rest := fields[0], fields[1:]
		if name == "quit" || name == "exit" {
			return nil
		}

		c, ok := cmds[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "emv: unknown command %q\n", name)
			continue
		}
		if err := c.ParseFlags(rest); err != nil {
			fmt.Fprintln(os.Stderr, "emv:", err)
			continue
		}
		if c.RunE == nil {
			continue
		}
		if err := c.RunE(c, c.Flags().Args()); err != nil {
			if emverrors.KindOf(err) == emverrors.KindCancelled {
				continue
			}
			fmt.Fprintln(os.Stderr, "emv:", err)
		}
	}
}
