// Package migrate replays a range of legacy, pre-move-tracking revisions
// through a shim editor that infers element moves from a
// repository-provided move-info table, producing element mutations in an
// edit txn.
package migrate

import (
	"context"
	"path"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/repo"
)

// MoveInfo records that, at a legacy revision, the item that ends up at
// NewPath was moved (rather than independently added) from OldPath. A
// repository-provided table of these is how the shim recovers element
// identity the legacy path-based format never recorded.
type MoveInfo struct {
	Rev      branch.RevNum
	OldPath  string
	NewPath  string
}

// MoveTable indexes MoveInfo by (rev, new path) for the shim's lookup
// during AddFile/AddDir, precomputing the structure once per pass rather
// than rescanning per call.
type MoveTable struct {
	byRevAndPath map[branch.RevNum]map[string]MoveInfo
}

// NewMoveTable builds a MoveTable from a flat slice of entries.
func NewMoveTable(entries []MoveInfo) *MoveTable {
	mt := &MoveTable{byRevAndPath: make(map[branch.RevNum]map[string]MoveInfo)}
	for _, e := range entries {
		m, ok := mt.byRevAndPath[e.Rev]
		if !ok {
			m = make(map[string]MoveInfo)
			mt.byRevAndPath[e.Rev] = m
		}
		m[e.NewPath] = e
	}
	return mt
}

func (mt *MoveTable) lookup(rev branch.RevNum, newPath string) (MoveInfo, bool) {
	m, ok := mt.byRevAndPath[rev]
	if !ok {
		return MoveInfo{}, false
	}
	mi, ok := m[newPath]
	return mi, ok
}

// MigrationShim implements repo.LegacyEditor for a single revision,
// translating path-based AddFile/AddDir/OpenFile/DeleteEntry calls into
// AlterOne/DeleteOne mutations against target, consulting moves to
// recover element identity across a move rather than emitting a
// delete+add pair. eidByPath is owned by the caller and shared across
// every revision in a replay range, since path resolution for a legacy
// op routinely depends on paths added in an earlier revision.
type MigrationShim struct {
	rev       branch.RevNum
	target    *branch.Branch
	moves     *MoveTable
	eidByPath map[string]element.EID
	nextTxn   *branch.Txn
}

// NewMigrationShim constructs a shim for one revision's replay, resolving
// paths against the shared eidByPath accumulated by prior revisions.
func NewMigrationShim(txn *branch.Txn, target *branch.Branch, rev branch.RevNum, moves *MoveTable, eidByPath map[string]element.EID) *MigrationShim {
	return &MigrationShim{
		rev:       rev,
		target:    target,
		moves:     moves,
		eidByPath: eidByPath,
		nextTxn:   txn,
	}
}

func (s *MigrationShim) OpenRoot() error {
	if _, ok := s.eidByPath[""]; !ok {
		s.eidByPath[""] = s.target.RootEID()
	}
	return nil
}

func (s *MigrationShim) resolveParent(p string) (element.EID, error) {
	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	eid, ok := s.eidByPath[dir]
	if !ok {
		return 0, emverrors.New(emverrors.KindBranching, "migrate", "legacy parent directory not yet seen: "+dir)
	}
	return eid, nil
}

// AddFile adds content at path, reusing the source element's EID (so
// downstream diff/log sees a move, not a delete+add) when moves records
// this path as the destination of a rename at this revision.
func (s *MigrationShim) AddFile(p string, content []byte) error {
	parent, err := s.resolveParent(p)
	if err != nil {
		return err
	}
	name := path.Base(p)
	eid, err := s.eidForNewEntry(p)
	if err != nil {
		return err
	}
	if err := s.target.AlterOne(eid, parent, name, element.NewFilePayload(nil, content)); err != nil {
		return err
	}
	s.eidByPath[p] = eid
	return nil
}

func (s *MigrationShim) AddDir(p string) error {
	parent, err := s.resolveParent(p)
	if err != nil {
		return err
	}
	name := path.Base(p)
	eid, err := s.eidForNewEntry(p)
	if err != nil {
		return err
	}
	if err := s.target.AlterOne(eid, parent, name, element.NewDirPayload(nil)); err != nil {
		return err
	}
	s.eidByPath[p] = eid
	return nil
}

// eidForNewEntry returns the moved-from element's EID when moves
// identifies p as a move destination at this revision, otherwise
// allocates a fresh one.
func (s *MigrationShim) eidForNewEntry(p string) (element.EID, error) {
	if s.moves != nil {
		if mi, ok := s.moves.lookup(s.rev, p); ok {
			if eid, ok := s.eidByPath[mi.OldPath]; ok {
				return eid, nil
			}
		}
	}
	return s.nextTxn.NewEID()
}

func (s *MigrationShim) OpenFile(p string, content []byte) error {
	eid, ok := s.eidByPath[p]
	if !ok {
		return emverrors.New(emverrors.KindBranching, "migrate", "OpenFile on unseen path: "+p)
	}
	c, ok := s.target.GetElement(eid)
	if !ok {
		return emverrors.New(emverrors.KindBranching, "migrate", "element vanished before OpenFile: "+p)
	}
	return s.target.AlterOne(eid, c.Parent, c.Name, element.NewFilePayload(c.Payload.Props, content))
}

// DeleteEntry removes the element at p from the tree. The eidByPath entry
// itself is left in place rather than deleted: a legacy delta represents
// a move as a delete of the old path followed by an add at the new one,
// and eidForNewEntry needs OldPath still resolvable when that add runs.
func (s *MigrationShim) DeleteEntry(p string) error {
	eid, ok := s.eidByPath[p]
	if !ok {
		return emverrors.New(emverrors.KindBranching, "migrate", "DeleteEntry on unseen path: "+p)
	}
	return s.target.DeleteOne(eid)
}

func (s *MigrationShim) CloseEdit() error { return nil }

// Run drives repo.ReplayRange across [from, to], opening one
// MigrationShim per revision against target and sequence-pointing editTxn
// between revisions so path resolution stays consistent across the
// replay. The path map starts from the paths already present in target,
// so a range can continue where an earlier Run against target stopped.
func Run(ctx context.Context, r repo.Repo, editTxn *branch.Txn, target *branch.Branch, from, to branch.RevNum, moves *MoveTable) error {
	eidByPath := make(map[string]element.EID)
	for _, eid := range target.Tree().EIDs() {
		if p, ok := target.GetPathByEID(eid); ok {
			eidByPath[p] = eid
		}
	}
	return r.ReplayRange(ctx, from, to,
		func(rev branch.RevNum) (repo.LegacyEditor, error) {
			return NewMigrationShim(editTxn, target, rev, moves, eidByPath), nil
		},
		func(rev branch.RevNum) error {
			return editTxn.SequencePoint()
		},
	)
}
