package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/repo"
	"github.com/untoldecay/elembranch/internal/workspace"
)

// askMovePolicy satisfies workspace.MovePolicyResolver: cmd/emv's
// concrete, huh-backed answer to the engine's cross-branch-move question.
var _ workspace.MovePolicyResolver = askMovePolicy

var cpCmd = &cobra.Command{
	Use:   "cp SRC DST",
	Short: "duplicate SRC's subtree at DST with fresh element identity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("cp", args, func() error {
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
			subtree, err := srcBranch.GetSubtree(srcEID)
			if err != nil {
				return err
			}
			return copySubtreeInto(app.WC.WorkingTxn(), dstBranch, dstParentEID, dstName, subtree)
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "delete the element at PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("rm", args, func() error {
			b, eid, err := requireExisting(args[0])
			if err != nil {
				return err
			}
			return b.DeleteOne(eid)
		})
	},
}

var mvVia string

var mvCmd = &cobra.Command{
	Use:   "mv SRC DST",
	Short: "move SRC to DST, reparenting in place or crossing branches",
	Long: "Within one branch, mv is a plain reparent/rename. Across branches it " +
		"has no single well-defined meaning and is resolved by --via=copy|branch|branch-into, " +
		"or by an interactive prompt when --via is omitted and the session is interactive.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("mv", args, func() error {
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

			if srcBranch.BID() == dstBranch.BID() {
				if err := verifyNotChildOfSelf(txn, "mv", srcBranch.BID(), srcEID, dstBranch.BID(), dstParentEID); err != nil {
					return err
				}
				existing, _ := srcBranch.GetElement(srcEID)
				return srcBranch.AlterOne(srcEID, dstParentEID, dstName, existing.Payload)
			}

			policy, err := resolveCrossBranchPolicy(repo.ElRevID{BID: srcBranch.BID(), EID: srcEID}, dstBranch.BID(), dstParentEID, dstName)
			if err != nil {
				return err
			}
			switch policy {
			case workspace.CopyAndDelete:
				return doCopyAndDelete(txn, srcBranch, srcEID, dstBranch, dstParentEID, dstName)
			case workspace.BranchIntoAndDelete:
				_, err := doBranchIntoAndDelete(txn, srcBranch, srcEID, dstBranch, dstParentEID, dstName)
				return err
			case workspace.BranchAndDelete:
				newBID := nextTopLevelBID(txn)
				_, err := doBranchAndDelete(txn, srcBranch, srcEID, newBID)
				return err
			default:
				return emverrors.New(emverrors.KindIncorrectParams, "mv", "unresolved cross-branch policy")
			}
		})
	},
}

var copyAndDeleteCmd = &cobra.Command{
	Use:   "copy-and-delete SRC DST",
	Short: "copy SRC to DST with fresh identity, then delete SRC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("copy-and-delete", args, func() error {
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
			return doCopyAndDelete(app.WC.WorkingTxn(), srcBranch, srcEID, dstBranch, dstParentEID, dstName)
		})
	},
}

var branchAndDeleteCmd = &cobra.Command{
	Use:   "branch-and-delete SRC NEWBID",
	Short: "branch SRC to a new top-level branch preserving identity, then delete SRC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("branch-and-delete", args, func() error {
			srcBranch, srcEID, err := requireExisting(args[0])
			if err != nil {
				return err
			}
			nb, err := doBranchAndDelete(app.WC.WorkingTxn(), srcBranch, srcEID, branch.ID(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("created %s (root=%d)\n", nb.BID(), nb.RootEID())
			return nil
		})
	},
}

var branchIntoAndDeleteCmd = &cobra.Command{
	Use:   "branch-into-and-delete SRC DST",
	Short: "branch SRC into a new subbranch at DST preserving identity, then delete SRC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("branch-into-and-delete", args, func() error {
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
			nb, err := doBranchIntoAndDelete(app.WC.WorkingTxn(), srcBranch, srcEID, dstBranch, dstParentEID, dstName)
			if err != nil {
				return err
			}
			fmt.Printf("created %s (root=%d)\n", nb.BID(), nb.RootEID())
			return nil
		})
	},
}

func init() {
	mvCmd.Flags().StringVar(&mvVia, "via", "", "cross-branch resolution: copy, branch or branch-into")
}

// resolveCrossBranchPolicy turns --via into a CrossBranchMovePolicy, or,
// when it's unset, prompts interactively; a non-interactive session with
// no --via is an error rather than a silent default, since none of the
// three alternatives is more "obviously right" than the others.
func resolveCrossBranchPolicy(src repo.ElRevID, dstBID branch.ID, dstParent element.EID, dstName string) (workspace.CrossBranchMovePolicy, error) {
	switch mvVia {
	case "copy":
		return workspace.CopyAndDelete, nil
	case "branch":
		return workspace.BranchAndDelete, nil
	case "branch-into":
		return workspace.BranchIntoAndDelete, nil
	case "":
		// fall through to interactive/ask-user below
	default:
		return workspace.AskUser, emverrors.New(emverrors.KindIncorrectParams, "mv", "--via must be copy, branch or branch-into")
	}

	if !app.Interactive {
		return workspace.AskUser, emverrors.New(emverrors.KindIncorrectParams, "mv",
			"moving across branches requires --via=copy|branch|branch-into in non-interactive use")
	}
	return askMovePolicy(src, dstBID, dstParent, dstName)
}

// askMovePolicy is the huh-backed interactive implementation of
// workspace.MovePolicyResolver, invoked only when mv crosses a branch
// boundary with no --via given in an interactive session.
func askMovePolicy(src repo.ElRevID, dstBID branch.ID, dstParent element.EID, dstName string) (workspace.CrossBranchMovePolicy, error) {
	srcBranch, ok := app.WC.WorkingTxn().GetBranchByID(src.BID)
	srcPath := ""
	if ok {
		srcPath, _ = srcBranch.GetPathByEID(src.EID)
	}
	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("%s/%s crosses into branch %s — how should the move be resolved?", src.BID, srcPath, dstBID)).
			Options(
				huh.NewOption("copy the subtree with fresh identity, then delete the source", "copy"),
				huh.NewOption("branch the subtree to a new top-level branch, then delete the source", "branch"),
				huh.NewOption("nest the subtree as a new subbranch at the destination, then delete the source", "branch-into"),
			).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return workspace.AskUser, emverrors.New(emverrors.KindCancelled, "mv", "move canceled")
		}
		return workspace.AskUser, emverrors.Wrap(emverrors.KindCancelled, "mv", "interactive prompt", err)
	}
	switch choice {
	case "copy":
		return workspace.CopyAndDelete, nil
	case "branch":
		return workspace.BranchAndDelete, nil
	case "branch-into":
		return workspace.BranchIntoAndDelete, nil
	default:
		return workspace.AskUser, emverrors.New(emverrors.KindCancelled, "mv", "no choice made")
	}
}
