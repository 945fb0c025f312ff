package branch

import (
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// Subtree is a portion of a branch's element tree rooted at a given EID,
// together with any nested subbranches reachable from it. Used by
// copy/branch operations (BranchFrom) and by the command layer's `cp`.
type Subtree struct {
	Root     element.EID
	Contents map[element.EID]element.Content
	// Subbranches maps an EID within this subtree whose payload is the
	// subbranch-root marker to the Subtree of the nested branch it
	// anchors.
	Subbranches map[element.EID]*Subtree
}

// GetSubtree collects every element reachable from eid within b's tree
// (by descending Children), plus, for every subbranch-root element
// found, the corresponding nested branch's full subtree if that
// subbranch happens to be loaded in the same txn.
func (b *Branch) GetSubtree(eid element.EID) (*Subtree, error) {
	if _, ok := b.tree.Get(eid); !ok {
		return nil, emverrors.New(emverrors.KindBranching, "get_subtree", "element does not exist")
	}
	st := &Subtree{
		Root:        eid,
		Contents:    make(map[element.EID]element.Content),
		Subbranches: make(map[element.EID]*Subtree),
	}
	b.collectSubtree(eid, st)
	return st, nil
}

func (b *Branch) collectSubtree(eid element.EID, st *Subtree) {
	c, ok := b.tree.Get(eid)
	if !ok {
		return
	}
	st.Contents[eid] = c.Clone()
	if c.Payload.Kind == element.KindSubbranchRoot {
		if sub, ok := b.GetSubbranchAtEID(eid); ok {
			if nested, err := sub.GetSubtree(sub.RootEID()); err == nil {
				st.Subbranches[eid] = nested
			}
		}
	}
	for _, child := range b.tree.Children(eid) {
		b.collectSubtree(child, st)
	}
}

// copyInto installs every element of s.Contents into tree, preserving
// EIDs verbatim; the nested subtrees in s.Subbranches are not installed. The
// subtree's own root is normalized to parent NoParent, name "" — it is
// becoming tree's root and must satisfy the root invariant regardless of
// what parent/name it had in the branch it was copied from.
func (s *Subtree) copyInto(tree *element.Tree) {
	for eid, c := range s.Contents {
		if eid == s.Root {
			c.Parent = element.NoParent
			c.Name = ""
		}
		tree.Set(eid, c)
	}
}

// GetSubbranchAtEID returns the subbranch anchored at eid, if eid's
// payload is the subbranch-root marker and that subbranch happens to be
// loaded into the same txn as b.
func (b *Branch) GetSubbranchAtEID(eid element.EID) (*Branch, bool) {
	if !b.IsSubbranchRoot(eid) {
		return nil, false
	}
	if b.txn == nil {
		return nil, false
	}
	return b.txn.GetBranchByID(b.SubbranchID(eid))
}
