package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
)

var tbranchCmd = &cobra.Command{
	Use:   "tbranch NEWBID",
	Short: "create a brand-new, empty top-level branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("tbranch", args, func() error {
			txn := app.WC.WorkingTxn()
			bid := branch.ID(args[0])
			if _, exists := txn.GetBranchByID(bid); exists {
				return fatalf("branch already open: %s", bid)
			}
			rootEID, err := txn.NewEID()
			if err != nil {
				return err
			}
			_, err = txn.OpenBranch(nil, bid, rootEID)
			if err != nil {
				return err
			}
			fmt.Printf("created %s (root=%d)\n", bid, rootEID)
			return nil
		})
	},
}

var mkbranchCmd = &cobra.Command{
	Use:   "mkbranch PATH",
	Short: "create a brand-new, empty subbranch nested at PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("mkbranch", args, func() error {
			txn := app.WC.WorkingTxn()
			b, _, ref, err := requireAbsent(args[0])
			if err != nil {
				return err
			}
			parentEID, name, err := splitParentName(ref, b)
			if err != nil {
				return err
			}
			anchorEID, err := txn.NewEID()
			if err != nil {
				return err
			}
			if err := b.AlterOne(anchorEID, parentEID, name, element.NewSubbranchRootPayload()); err != nil {
				return err
			}
			rootEID, err := txn.NewEID()
			if err != nil {
				return err
			}
			subID := b.SubbranchID(anchorEID)
			if _, err := txn.OpenBranch(nil, subID, rootEID); err != nil {
				return err
			}
			fmt.Printf("created %s at %s (root=%d)\n", subID, args[0], rootEID)
			return nil
		})
	},
}

var branchCmd = &cobra.Command{
	Use:   "branch SRC NEWBID",
	Short: "branch SRC to a new top-level branch, preserving element identity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("branch", args, func() error {
			txn := app.WC.WorkingTxn()
			srcBranch, srcEID, err := requireExisting(args[0])
			if err != nil {
				return err
			}
			newBID := branch.ID(args[1])
			if _, exists := txn.GetBranchByID(newBID); exists {
				return fatalf("branch already open: %s", newBID)
			}
			nb, err := doBranch(txn, srcBranch, srcEID, newBID)
			if err != nil {
				return err
			}
			fmt.Printf("created %s from %s (root=%d)\n", nb.BID(), args[0], nb.RootEID())
			return nil
		})
	},
}

var branchIntoCmd = &cobra.Command{
	Use:   "branch-into SRC DST",
	Short: "branch SRC as a new subbranch nested at DST, preserving element identity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("branch-into", args, func() error {
			txn := app.WC.WorkingTxn()
			srcBranch, srcEID, err := requireExisting(args[0])
			if err != nil {
				return err
			}
			dstBranch, _, dstRef, err := requireAbsent(args[1])
			if err != nil {
				return err
			}
			dstParentEID, dstName, err := splitParentName(dstRef, dstBranch)
			if err != nil {
				return err
			}
			nb, err := doBranchInto(txn, srcBranch, srcEID, dstBranch, dstParentEID, dstName)
			if err != nil {
				return err
			}
			fmt.Printf("created %s at %s (root=%d)\n", nb.BID(), args[1], nb.RootEID())
			return nil
		})
	},
}
