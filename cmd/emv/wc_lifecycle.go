package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "bring the working copy forward to the latest revision, merging local edits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("update", args, func() error {
			conflicts, err := app.WC.Update(app.Ctx)
			if err != nil {
				if emverrors.KindOf(err) == emverrors.KindMergeConflicts {
					fmt.Print(renderConflicts(app.UIMode, conflicts))
				}
				return err
			}
			fmt.Printf("updated to r%d\n", app.WC.BaseRevision())
			return nil
		})
	},
}

var switchRev string

var switchCmd = &cobra.Command{
	Use:   "switch NEWBID",
	Short: "switch the working copy to a different branch, merging local edits forward",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("switch", args, func() error {
			rev := branch.Invalid
			if switchRev != "" {
				var err error
				rev, err = parseRevArg(app.Ctx, app.Store, switchRev)
				if err != nil {
					return err
				}
			} else {
				latest, err := app.Store.GetLatestRevnum(app.Ctx)
				if err != nil {
					return err
				}
				rev = latest
			}
			conflicts, err := app.WC.Switch(app.Ctx, branch.ID(args[0]), rev)
			if err != nil {
				if emverrors.KindOf(err) == emverrors.KindMergeConflicts {
					fmt.Print(renderConflicts(app.UIMode, conflicts))
				}
				return err
			}
			fmt.Printf("switched to %s @ r%d\n", app.WC.BID(), app.WC.BaseRevision())
			return nil
		})
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "discard every local edit, restoring the working copy to its base revision",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("revert", args, func() error {
			return app.WC.Revert(app.Ctx)
		})
	},
}

func init() {
	switchCmd.Flags().StringVar(&switchRev, "rev", "", "revision to switch to (default: latest)")
}
