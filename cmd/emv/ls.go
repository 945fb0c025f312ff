package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/config"
	"github.com/untoldecay/elembranch/internal/element"
)

var lsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "list the direct children of an element",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("ls", args, func() error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			b, eid, err := requireExisting(target)
			if err != nil {
				return err
			}
			for _, child := range b.Tree().Children(eid) {
				c, _ := b.Tree().Get(child)
				kind := "file"
				switch c.Payload.Kind {
				case element.KindDir:
					kind = "dir"
				case element.KindSubbranchRoot:
					kind = "subbranch"
				}
				label := c.Name
				if app.UIMode == config.UIEids {
					label = fmt.Sprintf("%d", child)
				}
				fmt.Printf("%-10s %-24s eid=%d\n", kind, label, child)
			}
			return nil
		})
	},
}

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "list every branch currently loaded in the working txn",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("branches", args, func() error {
			for _, b := range app.WC.WorkingTxn().Branches() {
				pred := "(none)"
				if p := b.Predecessor(); p != nil {
					pred = fmt.Sprintf("r%d/%s", p.Rev, p.BID)
				}
				fmt.Printf("%-16s root=%d predecessor=%s\n", b.BID(), b.RootEID(), pred)
			}
			return nil
		})
	},
}

var lsBrRCmd = &cobra.Command{
	Use:   "ls-br-r",
	Short: "recursively list the current branch and every nested subbranch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("ls-br-r", args, func() error {
			b, ok := app.WC.WorkingTxn().GetBranchByID(app.WC.BID())
			if !ok {
				return fatalf("no such branch: %s", app.WC.BID())
			}
			printBranchTree(app.WC.WorkingTxn(), b, 0)
			return nil
		})
	},
}

func printBranchTree(txn *branch.Txn, b *branch.Branch, depth int) {
	fmt.Printf("%*s%s\n", depth*2, "", b.BID())
	for _, eid := range b.Tree().EIDs() {
		if !b.IsSubbranchRoot(eid) {
			continue
		}
		sub, ok := b.GetSubbranchAtEID(eid)
		if !ok {
			continue
		}
		printBranchTree(txn, sub, depth+1)
	}
}
