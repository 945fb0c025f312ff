package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

var (
	flagURL         string
	flagRev         string
	flagBranch      string
	flagMessage     string
	flagMessageFile string
	flagExtensions  string
	flagWithRevprop []string
	flagUI          string
	flagDBPath      string
)

var rootCmd = &cobra.Command{
	Use:           "emv",
	Short:         "emv is an element-identity branch-and-move tracking engine",
	Long:          "emv (element-mover) drives the core element/branch/replay/workspace engine: checkout, edit, merge and commit against a repository addressed with -U.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "completion":
			return nil
		}
		a, err := initApp(context.Background(), flagURL, branch.ID(flagBranch), flagRev, flagUI, flagDBPath)
		if err != nil {
			return err
		}
		a.Interactive = isInteractiveInput()
		app = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
			app = nil
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if isInteractiveInput() {
			return runInteractive(cmd)
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagURL, "url", "U", "", "repository URL / backing store location (required)")
	rootCmd.PersistentFlags().StringVarP(&flagRev, "revision", "r", "", "peg revision: a number or head")
	rootCmd.PersistentFlags().StringVarP(&flagBranch, "branch", "B", "", "branch id (^B<id> form accepted on individual args too)")
	rootCmd.PersistentFlags().StringVarP(&flagMessage, "message", "m", "", "commit log message")
	rootCmd.PersistentFlags().StringVarP(&flagMessageFile, "file", "F", "", "read commit log message from file")
	rootCmd.PersistentFlags().StringVarP(&flagExtensions, "extensions", "X", "", "extra diff/presentation options")
	rootCmd.PersistentFlags().StringArrayVar(&flagWithRevprop, "with-revprop", nil, "NAME=VALUE revision property, may be repeated")
	rootCmd.PersistentFlags().StringVar(&flagUI, "ui", "", "output mode: eids, paths or serial")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the local sqlite-backed repository (default .emv/emv.db)")

	for _, c := range []*cobra.Command{
		infoWCCmd, lsCmd, branchesCmd, lsBrRCmd, logCmd, diffCmd, statusCmd,
		tbranchCmd, branchCmd, branchIntoCmd, mkbranchCmd,
		mkdirCmd, putCmd, catCmd,
		cpCmd, mvCmd, rmCmd, copyAndDeleteCmd, branchAndDeleteCmd, branchIntoAndDeleteCmd,
		mergeCmd, commitCmd, updateCmd, switchCmd, revertCmd, migrateCmd,
	} {
		rootCmd.AddCommand(c)
	}
}

// Execute runs the root command; main's sole entry point.
func Execute() error {
	return rootCmd.Execute()
}

// isInteractiveInput reports whether stdin is a terminal; it does not
// look at whether a subcommand was named on the command line.
func isInteractiveInput() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// resolveRevprops merges -m/-F message acquisition with --with-revprop
// pairs into the map passed to Repo.GetCommitTxn. Message acquisition
// itself (reading a file, invoking $EDITOR) is the CLI driver's job per
// spec.md §1; the core only ever sees the resulting map.
func resolveRevprops() (map[string]string, error) {
	props := make(map[string]string)
	msg := flagMessage
	if msg == "" && flagMessageFile != "" {
		raw, err := os.ReadFile(flagMessageFile)
		if err != nil {
			return nil, emverrors.Wrap(emverrors.KindIO, "resolve_revprops", flagMessageFile, err)
		}
		msg = string(raw)
	}
	if msg != "" {
		props["log"] = msg
	}
	for _, kv := range flagWithRevprop {
		name, val, ok := splitKV(kv)
		if !ok {
			return nil, emverrors.New(emverrors.KindIncorrectParams, "resolve_revprops", kv)
		}
		props[name] = val
	}
	return props, nil
}

func splitKV(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// wrapCommand centralizes the sequence_point-first/audit-log-always
// discipline every command in spec.md §4.6 shares.
func wrapCommand(name string, args []string, fn func() error) error {
	if app.WC != nil {
		if err := app.WC.WorkingTxn().SequencePoint(); err != nil {
			app.logCommand(name, args, err)
			return err
		}
	}
	err := fn()
	app.logCommand(name, args, err)
	return err
}

func fatalf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
