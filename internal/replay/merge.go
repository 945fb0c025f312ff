package replay

import (
	"sort"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// SingleElementConflict records one EID whose content changed
// differently on src and tgt relative to their common ancestor yca.
type SingleElementConflict struct {
	EID element.EID
	YCA *element.Content
	Src *element.Content
	Tgt *element.Content
}

// NameClashConflict records one (parent, name) pair claimed by more than
// one non-orphan sibling after element-wise merge.
type NameClashConflict struct {
	Parent element.EID
	Name   string
	EIDs   []element.EID
}

// OrphanConflict records one non-deleted element whose ancestor chain
// does not terminate at the branch root after element-wise merge.
type OrphanConflict struct {
	EID element.EID
}

// ConflictStorage aggregates every conflict a merge produced. A non-empty
// ConflictStorage means the caller should abort the containing operation
// — this package never auto-resolves.
type ConflictStorage struct {
	SingleElement []SingleElementConflict
	NameClash     []NameClashConflict
	Orphan        []OrphanConflict
}

// Count returns the total number of individual conflict records.
func (c *ConflictStorage) Count() int {
	if c == nil {
		return 0
	}
	return len(c.SingleElement) + len(c.NameClash) + len(c.Orphan)
}

func (c *ConflictStorage) Empty() bool { return c.Count() == 0 }

// Merge performs a non-recursive, element-keyed 3-way merge of yca
// (common ancestor) and src into tgt, mutating tgt's tree in place and
// returning the set of conflicts found. The caller is responsible for
// recursing into subbranches when their EIDs appear on both sides (spec
// says merge itself does not recurse at the top call).
func Merge(tgt *branch.Branch, yca, src *element.Tree) (*ConflictStorage, error) {
	conflicts := &ConflictStorage{}

	union := make(map[element.EID]bool)
	for _, eid := range yca.EIDs() {
		union[eid] = true
	}
	for _, eid := range src.EIDs() {
		union[eid] = true
	}
	for _, eid := range tgt.Tree().EIDs() {
		union[eid] = true
	}

	// Fast-forwarded elements (t == y, adopting s) are collected rather than
	// applied immediately: a plain range over union can visit a newly
	// created child before the parent it fast-forwards alongside, and
	// AlterOne requires the parent to already exist in tgt. Deletions are
	// order-independent and are applied once the scan is done, before any
	// alter; alters are deferred to a parentReady retry loop, the same
	// deferral SubtreeReplay uses.
	var pendingDeletes []element.EID
	pendingAlters := make(map[element.EID]*element.Content)

	for eid := range union {
		y, _ := yca.Get(eid)
		s, sOK := src.Get(eid)
		t, tOK := tgt.Tree().Get(eid)
		_, yOK := yca.Get(eid)

		var yPtr, sPtr, tPtr *element.Content
		if yOK {
			yPtr = &y
		}
		if sOK {
			sPtr = &s
		}
		if tOK {
			tPtr = &t
		}

		switch {
		case contentEqual(sPtr, yPtr):
			// s == y: target's own change (or lack of one) wins; leave t.
		case contentEqual(tPtr, yPtr):
			// t == y: fast-forward onto src's change.
			if sPtr == nil {
				pendingDeletes = append(pendingDeletes, eid)
			} else {
				c := *sPtr
				pendingAlters[eid] = &c
			}
		case contentEqual(sPtr, tPtr):
			// identical independent changes: nothing to do.
		default:
			conflicts.SingleElement = append(conflicts.SingleElement, SingleElementConflict{
				EID: eid, YCA: yPtr, Src: sPtr, Tgt: tPtr,
			})
		}
	}

	for _, eid := range pendingDeletes {
		if err := applyOption(tgt, eid, nil); err != nil {
			return nil, err
		}
	}

	for len(pendingAlters) > 0 {
		progressed := false
		for eid, c := range pendingAlters {
			if !parentReady(tgt, eid, c.Parent) {
				continue
			}
			if err := tgt.AlterOne(eid, c.Parent, c.Name, c.Payload); err != nil {
				if emverrors.KindOf(err) != emverrors.KindNameClash {
					return nil, err
				}
				// A sibling-name clash is a merge conflict, not a failure:
				// install the element anyway so validateMergedTree records it.
				merged := tgt.Tree().Clone()
				merged.Set(eid, *c)
				tgt.Seed(merged)
			}
			delete(pendingAlters, eid)
			progressed = true
		}
		if !progressed {
			return nil, emverrors.New(emverrors.KindTreeCycle, "merge", "no fast-forwarded element has a resolvable parent")
		}
	}

	validateMergedTree(tgt, conflicts)
	sortConflicts(conflicts)
	return conflicts, nil
}

func contentEqual(a, b *element.Content) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func applyOption(tgt *branch.Branch, eid element.EID, c *element.Content) error {
	if c == nil {
		if _, ok := tgt.GetElement(eid); !ok {
			return nil
		}
		return tgt.DeleteOne(eid)
	}
	return tgt.AlterOne(eid, c.Parent, c.Name, c.Payload)
}

func validateMergedTree(tgt *branch.Branch, conflicts *ConflictStorage) {
	tree := tgt.Tree()
	siblings := make(map[element.EID]map[string][]element.EID)

	for _, eid := range tree.EIDs() {
		if eid == tgt.RootEID() {
			continue
		}
		if tree.IsOrphan(eid) {
			conflicts.Orphan = append(conflicts.Orphan, OrphanConflict{EID: eid})
			continue
		}
		c, _ := tree.Get(eid)
		m, ok := siblings[c.Parent]
		if !ok {
			m = make(map[string][]element.EID)
			siblings[c.Parent] = m
		}
		m[c.Name] = append(m[c.Name], eid)
	}

	for parent, byName := range siblings {
		for name, eids := range byName {
			if len(eids) > 1 {
				conflicts.NameClash = append(conflicts.NameClash, NameClashConflict{
					Parent: parent, Name: name, EIDs: eids,
				})
			}
		}
	}
}

func sortConflicts(c *ConflictStorage) {
	sort.Slice(c.SingleElement, func(i, j int) bool { return c.SingleElement[i].EID < c.SingleElement[j].EID })
	sort.Slice(c.Orphan, func(i, j int) bool { return c.Orphan[i].EID < c.Orphan[j].EID })
	sort.Slice(c.NameClash, func(i, j int) bool {
		if c.NameClash[i].Parent != c.NameClash[j].Parent {
			return c.NameClash[i].Parent < c.NameClash[j].Parent
		}
		return c.NameClash[i].Name < c.NameClash[j].Name
	})
	for i := range c.NameClash {
		sort.Slice(c.NameClash[i].EIDs, func(a, b int) bool { return c.NameClash[i].EIDs[a] < c.NameClash[i].EIDs[b] })
	}
}
