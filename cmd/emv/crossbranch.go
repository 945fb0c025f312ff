package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// nextTopLevelBID scans txn's already-loaded branches for the lowest
// unused top-level B<n> id.
func nextTopLevelBID(txn *branch.Txn) branch.ID {
	used := make(map[int]bool)
	for _, b := range txn.Branches() {
		id := string(b.BID())
		if strings.HasPrefix(id, "B") && !strings.Contains(id, ".") {
			if n, err := strconv.Atoi(id[1:]); err == nil {
				used[n] = true
			}
		}
	}
	n := 0
	for used[n] {
		n++
	}
	return branch.TopLevel(n)
}

// ancestryContains reports whether walking up the parent chain from
// start within tree — inclusive of start itself — passes through target
// before reaching the tree's root.
func ancestryContains(tree *element.Tree, start, target element.EID) bool {
	cur := start
	seen := make(map[element.EID]bool)
	for {
		if cur == target {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		if cur == tree.RootEID {
			return false
		}
		c, ok := tree.Get(cur)
		if !ok || c.Parent == element.NoParent {
			return false
		}
		cur = c.Parent
	}
}

// verifyNotChildOfSelf rejects a destination (dstBID, dstEID) that is
// nested inside the source (srcBID, srcEID), crossing subbranch
// boundaries via their anchor elements the same way branch nesting
// itself does. Mirrors svnmover's VERIFY_NOT_CHILD_OF_SELF.
func verifyNotChildOfSelf(txn *branch.Txn, op string, srcBID branch.ID, srcEID element.EID, dstBID branch.ID, dstEID element.EID) error {
	curBID, curEID := dstBID, dstEID
	for {
		if curBID == srcBID {
			curBranch, ok := txn.GetBranchByID(curBID)
			if ok && ancestryContains(curBranch.Tree(), curEID, srcEID) {
				return emverrors.New(emverrors.KindBranching, op, "the specified target is nested inside the source")
			}
			return nil
		}
		outerBID, anchorEID, isSub := curBID.Outer()
		if !isSub {
			return nil
		}
		curBID, curEID = outerBID, anchorEID
	}
}

// copySubtreeInto duplicates src into dstBranch rooted at
// (dstParent, dstName), allocating a fresh EID for every element —
// including nested subbranch roots — so identity does not cross the
// copy. This is the engine underneath `cp` and CopyAndDelete.
func copySubtreeInto(txn *branch.Txn, dstBranch *branch.Branch, dstParent element.EID, dstName string, src *branch.Subtree) error {
	return copyTreeNode(txn, dstBranch, src.Root, dstParent, dstName, src)
}

func copyTreeNode(txn *branch.Txn, dstBranch *branch.Branch, oldEID element.EID, newParent element.EID, newName string, src *branch.Subtree) error {
	content, ok := src.Contents[oldEID]
	if !ok {
		return emverrors.New(emverrors.KindBranching, "cp", "inconsistent subtree")
	}
	newEID, err := txn.NewEID()
	if err != nil {
		return err
	}
	if err := dstBranch.AlterOne(newEID, newParent, newName, content.Payload); err != nil {
		return err
	}

	if nested, isSub := src.Subbranches[oldEID]; isSub {
		newSubRoot, err := txn.NewEID()
		if err != nil {
			return err
		}
		newSub, err := txn.OpenBranch(nil, dstBranch.SubbranchID(newEID), newSubRoot)
		if err != nil {
			return err
		}
		for _, childEID := range subtreeChildren(nested, nested.Root) {
			c := nested.Contents[childEID]
			if err := copyTreeNode(txn, newSub, childEID, newSubRoot, c.Name, nested); err != nil {
				return err
			}
		}
	}

	for _, childEID := range subtreeChildren(src, oldEID) {
		c := src.Contents[childEID]
		if err := copyTreeNode(txn, dstBranch, childEID, newEID, c.Name, src); err != nil {
			return err
		}
	}
	return nil
}

func subtreeChildren(st *branch.Subtree, parent element.EID) []element.EID {
	var out []element.EID
	for eid, c := range st.Contents {
		if eid != st.Root && c.Parent == parent {
			out = append(out, eid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return st.Contents[out[i]].Name < st.Contents[out[j]].Name })
	return out
}

// doCopyAndDelete duplicates src's subtree at (dstBranch, dstParent,
// dstName) with fresh identity, then removes the source.
func doCopyAndDelete(txn *branch.Txn, srcBranch *branch.Branch, srcEID element.EID, dstBranch *branch.Branch, dstParent element.EID, dstName string) error {
	if err := verifyNotChildOfSelf(txn, "copy-and-delete", srcBranch.BID(), srcEID, dstBranch.BID(), dstParent); err != nil {
		return err
	}
	subtree, err := srcBranch.GetSubtree(srcEID)
	if err != nil {
		return err
	}
	if err := copySubtreeInto(txn, dstBranch, dstParent, dstName, subtree); err != nil {
		return err
	}
	return srcBranch.DeleteOne(srcEID)
}

// doBranch deep-copies src into a brand-new top-level branch newBID,
// preserving src's own EID as the new branch's root (element identity
// crosses the branch boundary intact), without touching the source.
func doBranch(txn *branch.Txn, srcBranch *branch.Branch, srcEID element.EID, newBID branch.ID) (*branch.Branch, error) {
	predecessor := &branch.RevBID{Rev: txn.BaseRevisionRoot().Rev, BID: srcBranch.BID()}
	return txn.BranchFrom(srcBranch, srcEID, predecessor, newBID)
}

// doBranchAndDelete is doBranch followed by removing the source. newBID
// names a brand-new branch, so nesting can only arise if the caller gave
// it a dotted (subbranch) id whose anchor already sits inside src's own
// subtree; a plain top-level id ("B<n>") can never be nested in src.
func doBranchAndDelete(txn *branch.Txn, srcBranch *branch.Branch, srcEID element.EID, newBID branch.ID) (*branch.Branch, error) {
	if outerBID, anchorEID, isSub := newBID.Outer(); isSub {
		if err := verifyNotChildOfSelf(txn, "branch-and-delete", srcBranch.BID(), srcEID, outerBID, anchorEID); err != nil {
			return nil, err
		}
	}
	nb, err := doBranch(txn, srcBranch, srcEID, newBID)
	if err != nil {
		return nil, err
	}
	if err := srcBranch.DeleteOne(srcEID); err != nil {
		return nil, err
	}
	return nb, nil
}

// doBranchInto nests src as a new subbranch anchored at (dstBranch,
// dstParent, dstName). Two distinct EIDs are involved: a freshly
// allocated anchorEID carries the subbranch-root marker in dstBranch and
// gives the subbranch its bid, while srcEID is preserved as the nested
// branch's own root, the same way doBranch preserves it across a
// top-level branch boundary. The anchor and the nested root are never
// the same identity, mirroring mkbranchCmd.
func doBranchInto(txn *branch.Txn, srcBranch *branch.Branch, srcEID element.EID, dstBranch *branch.Branch, dstParent element.EID, dstName string) (*branch.Branch, error) {
	anchorEID, err := txn.NewEID()
	if err != nil {
		return nil, err
	}
	if err := dstBranch.AlterOne(anchorEID, dstParent, dstName, element.NewSubbranchRootPayload()); err != nil {
		return nil, err
	}
	predecessor := &branch.RevBID{Rev: txn.BaseRevisionRoot().Rev, BID: srcBranch.BID()}
	subID := dstBranch.SubbranchID(anchorEID)
	nb, err := txn.BranchFrom(srcBranch, srcEID, predecessor, subID)
	if err != nil {
		return nil, err
	}
	return nb, nil
}

// doBranchIntoAndDelete is doBranchInto followed by removing the source.
func doBranchIntoAndDelete(txn *branch.Txn, srcBranch *branch.Branch, srcEID element.EID, dstBranch *branch.Branch, dstParent element.EID, dstName string) (*branch.Branch, error) {
	if err := verifyNotChildOfSelf(txn, "branch-into-and-delete", srcBranch.BID(), srcEID, dstBranch.BID(), dstParent); err != nil {
		return nil, err
	}
	nb, err := doBranchInto(txn, srcBranch, srcEID, dstBranch, dstParent, dstName)
	if err != nil {
		return nil, err
	}
	if err := srcBranch.DeleteOne(srcEID); err != nil {
		return nil, err
	}
	return nb, nil
}
