package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/replay"
)

var mergeCmd = &cobra.Command{
	Use:   "merge YCA SRC",
	Short: "3-way merge YCA and SRC into the working copy's current branch",
	Long:  "YCA and SRC each resolve to an element whose subtree is merged element-wise into the current branch's working tree, YCA standing in for the common ancestor and SRC for the incoming change.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("merge", args, func() error {
			ycaBranch, ycaEID, err := requireExisting(args[0])
			if err != nil {
				return err
			}
			srcBranch, srcEID, err := requireExisting(args[1])
			if err != nil {
				return err
			}
			tgtBranch, ok := app.WC.WorkingTxn().GetBranchByID(app.WC.BID())
			if !ok {
				return fatalf("no such branch: %s", app.WC.BID())
			}

			ycaSub, err := ycaBranch.GetSubtree(ycaEID)
			if err != nil {
				return err
			}
			srcSub, err := srcBranch.GetSubtree(srcEID)
			if err != nil {
				return err
			}

			conflicts, err := replay.Merge(tgtBranch, subtreeToTree(ycaSub), subtreeToTree(srcSub))
			if err != nil {
				return err
			}
			if !conflicts.Empty() {
				fmt.Print(renderConflicts(app.UIMode, conflicts))
				return emverrors.New(emverrors.KindMergeConflicts, "merge", "")
			}
			fmt.Println("merge applied cleanly")
			return nil
		})
	},
}
