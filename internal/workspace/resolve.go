package workspace

import (
	"context"
	"strings"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/repo"
)

// FindElRevID resolves ref to the element it names, following spec.md's
// find_el_rev: an unset Rev resolves against the WC's working txn, a set
// Rev loads the named historical revision read-only. EID NoParent (-1) is
// a valid result meaning "no element at this path" — callers that require
// absence check for it rather than treating it as an error.
func (wc *WC) FindElRevID(ctx context.Context, ref Ref) (repo.ElRevID, error) {
	_, b, eid, err := wc.loadRefBranch(ctx, ref)
	if err != nil {
		return repo.ElRevID{}, err
	}
	rev := branch.Invalid
	if ref.Rev.IsSet() {
		rev, err = wc.resolveRevSpec(ctx, ref.Rev)
		if err != nil {
			return repo.ElRevID{}, err
		}
	}
	return repo.ElRevID{Rev: rev, BID: b.BID(), EID: eid}, nil
}

// loadRefBranch resolves ref down to the txn, branch and EID it names:
// the txn the working/historical branch was loaded into (needed by
// callers, like merge, that must read the branch's tree directly), the
// branch the path resolution ended in (which may differ from ref.BID if
// the path crossed a subbranch boundary), and the resolved EID (NoParent
// if absent).
func (wc *WC) loadRefBranch(ctx context.Context, ref Ref) (*branch.Txn, *branch.Branch, element.EID, error) {
	bid := ref.BID
	if bid == "" {
		bid = wc.bid
	}

	if !ref.Rev.IsSet() {
		b, ok := wc.workingTxn.GetBranchByID(bid)
		if !ok {
			return nil, nil, 0, emverrors.New(emverrors.KindBranching, "find_el_rev", "no such branch in working txn: "+string(bid))
		}
		eid, finalBID, err := resolvePath(wc.workingTxn, b, ref.RelPath)
		if err != nil {
			return nil, nil, 0, err
		}
		final, _ := wc.workingTxn.GetBranchByID(finalBID)
		return wc.workingTxn, final, eid, nil
	}

	rev, err := wc.resolveRevSpec(ctx, ref.Rev)
	if err != nil {
		return nil, nil, 0, err
	}
	txn, err := wc.repo.LoadBranchingState(ctx, rev, wc.infoDir)
	if err != nil {
		return nil, nil, 0, err
	}
	b, ok := txn.GetBranchByID(bid)
	if !ok {
		return nil, nil, 0, emverrors.New(emverrors.KindBranching, "find_el_rev", "no such branch at rev: "+string(bid))
	}
	eid, finalBID, err := resolvePath(txn, b, ref.RelPath)
	if err != nil {
		return nil, nil, 0, err
	}
	final, _ := txn.GetBranchByID(finalBID)
	return txn, final, eid, nil
}

// resolveRevSpec turns a parsed peg revision into a concrete RevNum.
// "committed" approximates the last-changed revision of the target; since
// no per-element last-changed tracking is kept, it falls back to the WC's
// base revision, same as "base".
func (wc *WC) resolveRevSpec(ctx context.Context, rs RevSpec) (branch.RevNum, error) {
	if !rs.set {
		return wc.baseRev, nil
	}
	switch rs.named {
	case "head":
		return wc.repo.GetLatestRevnum(ctx)
	case "base", "committed":
		return wc.baseRev, nil
	default:
		return rs.num, nil
	}
}

// resolvePath walks relpath's components from b's root, crossing into a
// nested subbranch whenever the current element is a subbranch-root and a
// further component remains. It returns NoParent, not an error, when a
// component is missing partway through.
func resolvePath(txn *branch.Txn, b *branch.Branch, relpath string) (element.EID, branch.ID, error) {
	cur := b
	curEID := b.RootEID()
	relpath = strings.Trim(relpath, "/")
	if relpath == "" {
		return curEID, cur.BID(), nil
	}

	for _, comp := range strings.Split(relpath, "/") {
		if comp == "" {
			continue
		}
		if cur.IsSubbranchRoot(curEID) {
			sub, ok := txn.GetBranchByID(cur.SubbranchID(curEID))
			if !ok {
				return 0, "", emverrors.New(emverrors.KindBranching, "find_el_rev", "subbranch not loaded: "+string(cur.SubbranchID(curEID)))
			}
			cur = sub
			curEID = sub.RootEID()
		}

		next, ok := childNamed(cur, curEID, comp)
		if !ok {
			return element.NoParent, cur.BID(), nil
		}
		curEID = next
	}
	return curEID, cur.BID(), nil
}

func childNamed(b *branch.Branch, parent element.EID, name string) (element.EID, bool) {
	for _, child := range b.Tree().Children(parent) {
		c, _ := b.Tree().Get(child)
		if c.Name == name {
			return child, true
		}
	}
	return 0, false
}
