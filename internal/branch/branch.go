package branch

import (
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// Branch is a mutable element tree plus identity, predecessor and
// subbranch links. RootEID is fixed for the branch's lifetime; the
// element at RootEID may have its payload altered but never reparented
// or deleted.
type Branch struct {
	id          ID
	predecessor *RevBID
	rootEID     element.EID
	tree        *element.Tree
	txn         *Txn
}

// BID returns the branch's identifier.
func (b *Branch) BID() ID { return b.id }

// Predecessor returns the (revision, branch-id) this branch was derived
// from, or nil for a branch with no predecessor (a fresh topbranch).
func (b *Branch) Predecessor() *RevBID { return b.predecessor }

// RootEID returns the branch's fixed root element id.
func (b *Branch) RootEID() element.EID { return b.rootEID }

// Tree exposes the branch's underlying element tree for read-only
// traversal (diff, replay, merge). Mutation must go through AlterOne/
// DeleteOne so invariants and the txn state machine stay consistent.
func (b *Branch) Tree() *element.Tree { return b.tree }

// Seed replaces b's tree wholesale with a clone of t, without going
// through AlterOne for every element. The replay layer uses it to start a
// fresh edit subbranch from a known left-side snapshot (rather than the
// empty just-the-root tree OpenBranch installs), and merge uses it to
// install an element whose name clashes with a sibling; the workspace and
// the repository store use it to install a whole loaded tree.
func (b *Branch) Seed(t *element.Tree) { b.tree = t.Clone() }

// GetElement delegates to the underlying tree.
func (b *Branch) GetElement(eid element.EID) (element.Content, bool) {
	return b.tree.Get(eid)
}

// GetPathByEID delegates to the underlying tree.
func (b *Branch) GetPathByEID(eid element.EID) (string, bool) {
	return b.tree.GetPath(eid)
}

func (b *Branch) requireOpenTxn(op string) error {
	if b.txn == nil {
		return emverrors.New(emverrors.KindBranching, op, "branch has no owning txn (txn completed, aborted, or arena released)")
	}
	return b.txn.requireMutable(op)
}

// AlterOne upserts eid's content within this branch: parent_eid must be
// -1 iff eid == RootEID, name must be non-empty iff parent_eid != -1,
// and the post-op sibling-name set under parent must stay unique.
func (b *Branch) AlterOne(eid element.EID, parent element.EID, name string, payload element.Payload) error {
	const op = "alter_one"
	if err := b.requireOpenTxn(op); err != nil {
		return err
	}
	if eid == b.rootEID {
		if parent != element.NoParent {
			return emverrors.New(emverrors.KindRootReparent, op, "cannot reparent the branch root")
		}
		if name != "" {
			return emverrors.New(emverrors.KindRootReparent, op, "branch root must have an empty name")
		}
	} else {
		if parent == element.NoParent {
			return emverrors.New(emverrors.KindBadParent, op, "only the branch root may have parent -1")
		}
		if name == "" {
			return emverrors.New(emverrors.KindBadParent, op, "non-root element must have a non-empty name")
		}
		if _, ok := b.tree.Get(parent); !ok {
			return emverrors.New(emverrors.KindBadParent, op, "parent element does not exist in this branch")
		}
	}

	// Sibling-name uniqueness: check non-orphan siblings under parent,
	// excluding eid itself (we're about to overwrite it).
	if parent != element.NoParent {
		for _, sib := range b.tree.Children(parent) {
			if sib == eid {
				continue
			}
			if b.tree.IsOrphan(sib) {
				continue
			}
			c, _ := b.tree.Get(sib)
			if c.Name == name {
				return emverrors.New(emverrors.KindNameClash, op, name)
			}
		}
	}

	b.tree.Set(eid, element.Content{Parent: parent, Name: name, Payload: payload})
	return nil
}

// DeleteOne removes eid's content. Descendants become orphans: their
// entries remain in the map (so a later AlterOne in the same txn can
// resurrect them by reparenting) but they lose their path.
func (b *Branch) DeleteOne(eid element.EID) error {
	const op = "delete_one"
	if err := b.requireOpenTxn(op); err != nil {
		return err
	}
	if eid == b.rootEID {
		return emverrors.New(emverrors.KindBranching, op, "cannot delete the branch root")
	}
	if _, ok := b.tree.Get(eid); !ok {
		return emverrors.New(emverrors.KindBranching, op, "element does not exist")
	}
	b.tree.Unset(eid)
	return nil
}

// IsSubbranchRoot reports whether eid's payload is the subbranch-root
// marker.
func (b *Branch) IsSubbranchRoot(eid element.EID) bool {
	c, ok := b.tree.Get(eid)
	return ok && c.Payload.Kind == element.KindSubbranchRoot
}

// SubbranchID returns the deterministic ID a subbranch anchored at eid
// would have, regardless of whether that subbranch is currently loaded
// in any txn.
func (b *Branch) SubbranchID(eid element.EID) ID {
	return Sub(b.id, eid)
}

// OuterBranchAndEID returns the branch ID and anchoring EID b itself was
// derived from, if b is a subbranch.
func (b *Branch) OuterBranchAndEID() (ID, element.EID, bool) {
	return b.id.Outer()
}
