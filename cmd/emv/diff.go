package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
)

var diffCmd = &cobra.Command{
	Use:   "diff [SRC] [DST]",
	Short: "show the structural difference between two element trees",
	Long:  "With no arguments, diffs the current branch's working tree against its base revision. With one argument, narrows that same comparison to the named subtree. With two, diffs any two resolvable refs against each other.",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("diff", args, func() error {
			switch len(args) {
			case 0:
				return diffWorkingVsBase(app.WC.BID(), element.EID(-1))
			case 1:
				_, eid, err := requireExisting(args[0])
				if err != nil {
					return err
				}
				return diffWorkingVsBase(app.WC.BID(), eid)
			default:
				leftB, leftEID, err := requireExisting(args[0])
				if err != nil {
					return err
				}
				rightB, rightEID, err := requireExisting(args[1])
				if err != nil {
					return err
				}
				leftSub, err := leftB.GetSubtree(leftEID)
				if err != nil {
					return err
				}
				rightSub, err := rightB.GetSubtree(rightEID)
				if err != nil {
					return err
				}
				leftTree := subtreeToTree(leftSub)
				rightTree := subtreeToTree(rightSub)
				diffs := element.Differences(leftTree, rightTree)
				fmt.Print(renderDiffs(app.UIMode, diffs, func(eid element.EID) string {
					p, _ := rightB.GetPathByEID(eid)
					return p
				}))
				return nil
			}
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show every local edit in the working copy against its base revision",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("status", args, func() error {
			return diffWorkingVsBase("", -1)
		})
	},
}

// diffWorkingVsBase diffs bid's working tree against its base-revision
// counterpart; an empty bid diffs every branch in the working txn against
// its base counterpart, or an empty tree when the base lacks it (status's
// whole-WC view); branches only in the base are not listed. narrowTo, when >= 0, restricts the
// comparison to the subtree rooted there (diff PATH).
func diffWorkingVsBase(bid branch.ID, narrowTo element.EID) error {
	working := app.WC.WorkingTxn()
	base := app.WC.BaseTxn()

	bids := []branch.ID{bid}
	if bid == "" {
		seen := make(map[branch.ID]bool)
		bids = nil
		for _, b := range working.Branches() {
			if !seen[b.BID()] {
				seen[b.BID()] = true
				bids = append(bids, b.BID())
			}
		}
	}

	any := false
	for _, id := range bids {
		w, hasW := working.GetBranchByID(id)
		b, hasB := base.GetBranchByID(id)
		if !hasW && !hasB {
			continue
		}
		var leftTree, rightTree *element.Tree
		if narrowTo >= 0 {
			if !hasW || !hasB {
				continue
			}
			ls, err := b.GetSubtree(narrowTo)
			if err != nil {
				return err
			}
			rs, err := w.GetSubtree(narrowTo)
			if err != nil {
				return err
			}
			leftTree, rightTree = subtreeToTree(ls), subtreeToTree(rs)
		} else {
			leftTree = element.New(0, element.NewDirPayload(nil))
			if hasB {
				leftTree = b.Tree()
			}
			rightTree = element.New(0, element.NewDirPayload(nil))
			if hasW {
				rightTree = w.Tree()
			}
		}
		diffs := element.Differences(leftTree, rightTree)
		if len(diffs) == 0 {
			continue
		}
		any = true
		fmt.Println(branchHeading(app.UIMode, id, app.WC.BaseRevision()))
		fmt.Print(renderDiffs(app.UIMode, diffs, func(eid element.EID) string {
			if hasW {
				if p, ok := w.GetPathByEID(eid); ok {
					return p
				}
			}
			if hasB {
				if p, ok := b.GetPathByEID(eid); ok {
					return p
				}
			}
			return ""
		}))
	}
	if !any {
		fmt.Println("(no local changes)")
	}
	return nil
}

// subtreeToTree flattens a Subtree into a standalone element.Tree rooted
// at s.Root. The root's content is normalized to parent NoParent, name ""
// regardless of what it carried in the branch it was collected from — a
// Subtree.Root always becomes the resulting tree's root.
func subtreeToTree(s *branch.Subtree) *element.Tree {
	t := element.New(s.Root, element.NewDirPayload(nil))
	for eid, c := range s.Contents {
		if eid == s.Root {
			c.Parent = element.NoParent
			c.Name = ""
		}
		t.Set(eid, c)
	}
	return t
}
