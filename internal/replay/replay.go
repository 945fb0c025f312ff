// Package replay implements the L3 structural diff replay: translating
// the element-wise difference between two trees into branch mutations,
// recursively across nested subbranches, plus its inverse (revert).
package replay

import (
	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// SubtreeReplay computes differences(left, right) and applies it to
// editBranch via AlterOne/DeleteOne, so that editBranch's tree — which
// must equal left before this call — equals right afterward. Application
// order is internally consistent: an element whose parent is itself
// being created in this pass is deferred until the parent exists in the
// edit tree. If no such ordering exists (the right tree has a parent
// cycle), it fails with TreeCycle.
func SubtreeReplay(editBranch *branch.Branch, left, right *element.Tree) error {
	diffs := element.Differences(left, right)

	for eid, d := range diffs {
		if d.Right == nil {
			if err := editBranch.DeleteOne(eid); err != nil {
				return err
			}
		}
	}

	pending := make(map[element.EID]*element.Content, len(diffs))
	for eid, d := range diffs {
		if d.Right != nil {
			c := *d.Right
			pending[eid] = &c
		}
	}

	for len(pending) > 0 {
		progressed := false
		for eid, c := range pending {
			if !parentReady(editBranch, eid, c.Parent) {
				continue
			}
			if err := editBranch.AlterOne(eid, c.Parent, c.Name, c.Payload); err != nil {
				return err
			}
			delete(pending, eid)
			progressed = true
		}
		if !progressed {
			return emverrors.New(emverrors.KindTreeCycle, "subtree_replay", "no element in the remaining set has a resolvable parent")
		}
	}
	return nil
}

func parentReady(b *branch.Branch, eid, parent element.EID) bool {
	if eid == b.RootEID() {
		return parent == element.NoParent
	}
	if parent == element.NoParent {
		return false
	}
	_, ok := b.GetElement(parent)
	return ok
}

// BranchReplay recursively replays left -> right into target, which must
// already equal leftSnapshot before this call (the top-level caller
// either seeds target to equal leftSnapshot beforehand, as commit does,
// or — for revert — target and the branch underlying leftSnapshot are
// the same object and the snapshot was captured just before calling in).
//
// left may be nil when there is no left-side branch at all (a wholly new
// subbranch); right nil means "emit nothing" — the outer subbranch-root
// deletion already removes this branch's anchor.
func BranchReplay(editTxn *branch.Txn, target *branch.Branch, leftSnapshot *element.Tree, left *branch.Branch, right *branch.Branch) error {
	if right == nil {
		return nil
	}
	if err := SubtreeReplay(target, leftSnapshot, right.Tree()); err != nil {
		return err
	}

	subEIDs := unionSubbranchRootEIDs(leftSnapshot, right.Tree())
	for eid := range subEIDs {
		var leftSub *branch.Branch
		if left != nil {
			leftSub, _ = left.GetSubbranchAtEID(eid)
		}
		rightSub, hasRight := right.GetSubbranchAtEID(eid)
		if !hasRight {
			continue
		}

		subID := target.SubbranchID(eid)
		editSub, exists := editTxn.GetBranchByID(subID)
		if !exists {
			var err error
			editSub, err = editTxn.OpenBranch(rightSub.Predecessor(), subID, rightSub.RootEID())
			if err != nil {
				return err
			}
		}

		var nestedLeftSnapshot *element.Tree
		if leftSub != nil {
			nestedLeftSnapshot = leftSub.Tree().Clone()
		} else {
			nestedLeftSnapshot = element.New(rightSub.RootEID(), element.NewDirPayload(nil))
		}
		editSub.Seed(nestedLeftSnapshot)

		if err := BranchReplay(editTxn, editSub, nestedLeftSnapshot, leftSub, rightSub); err != nil {
			return err
		}
	}
	return nil
}

func unionSubbranchRootEIDs(left, right *element.Tree) map[element.EID]bool {
	out := make(map[element.EID]bool)
	for _, eid := range left.EIDs() {
		if c, ok := left.Get(eid); ok && c.Payload.Kind == element.KindSubbranchRoot {
			out[eid] = true
		}
	}
	for _, eid := range right.EIDs() {
		if c, ok := right.Get(eid); ok && c.Payload.Kind == element.KindSubbranchRoot {
			out[eid] = true
		}
	}
	return out
}

// Revert replays working -> base within working's own txn, so working
// ends up equal to base: the inverse direction of a normal commit
// replay.
func Revert(editTxn *branch.Txn, working *branch.Branch, base *branch.Branch) error {
	snapshot := working.Tree().Clone()
	return BranchReplay(editTxn, working, snapshot, working, base)
}
