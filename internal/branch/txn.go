package branch

import (
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// State is a Txn's position in the Open -> SequencePointed ->
// Completed|Aborted state machine.
type State int

const (
	Open State = iota
	SequencePointed
	Completed
	Aborted
)

func (s State) String() string {
	switch s {
	case Open:
		return "Open"
	case SequencePointed:
		return "SequencePointed"
	case Completed:
		return "Completed"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// CompletionReport is returned by Complete for an edit txn tied to a
// commit: the synchronous replacement for a callback-driven commit notification.
type CompletionReport struct {
	Revision RevNum
}

// CommitFunc persists an edit txn's accumulated mutations and returns the
// new revision. The workspace/repo layer supplies this when it opens a
// commit txn; a base-revision (read-only) txn never sets it.
type CommitFunc func(t *Txn) (RevNum, error)

// AbortFunc informs the backing repository that a commit txn's changes
// should be discarded.
type AbortFunc func(t *Txn) error

// Txn is a transactional grouping of branches with a monotone EID
// allocator. A base-revision txn represents a persisted revision; an edit
// txn accumulates mutations. Txn itself does not tell the two apart and
// does not reject mutation of a base-revision txn; CommitFn is set only
// on a commit txn opened by the repository.
type Txn struct {
	Rev       RevNum
	state     State
	branches  map[ID]*Branch
	nextEID   element.EID
	arena     *arena
	baseRoot  *Txn // the base-revision txn this edit txn was checked out from, if any
	CommitFn  CommitFunc
	AbortFn   AbortFunc
}

// New constructs a fresh txn with no branches, starting EID allocation at
// firstEID.
func New(rev RevNum, firstEID element.EID) *Txn {
	return &Txn{
		Rev:      rev,
		state:    Open,
		branches: make(map[ID]*Branch),
		nextEID:  firstEID,
		arena:    newArena(),
	}
}

// State returns the txn's current state.
func (t *Txn) State() State { return t.state }

// BaseRevisionRoot returns the read-only txn this edit txn was checked
// out from, or t itself when no base txn was set.
func (t *Txn) BaseRevisionRoot() *Txn {
	if t.baseRoot != nil {
		return t.baseRoot
	}
	return t
}

// SetBaseRevisionRoot associates this edit txn with the base-revision txn
// it was checked out from.
func (t *Txn) SetBaseRevisionRoot(base *Txn) { t.baseRoot = base }

func (t *Txn) requireMutable(op string) error {
	switch t.state {
	case Open, SequencePointed:
		t.state = Open
		return nil
	default:
		return emverrors.New(emverrors.KindBranching, op, "txn is "+t.state.String()+", not Open or SequencePointed")
	}
}

// NewEID allocates a fresh, strictly increasing EID from this txn's
// counter.
func (t *Txn) NewEID() (element.EID, error) {
	if err := t.requireMutable("new_eid"); err != nil {
		return 0, err
	}
	eid := t.nextEID
	t.nextEID++
	return eid, nil
}

// AllocatedCount reports how many EIDs NewEID has handed out from the
// txn's starting point; used by commit to replicate the same count of
// fresh EIDs into the repository's commit txn.
func (t *Txn) AllocatedCount(firstEID element.EID) int {
	return int(t.nextEID - firstEID)
}

// GetBranchByID returns the branch with the given id, if loaded into
// this txn.
func (t *Txn) GetBranchByID(id ID) (*Branch, bool) {
	b, ok := t.branches[id]
	return b, ok
}

// Branches returns every branch loaded into this txn, in unspecified
// order.
func (t *Txn) Branches() []*Branch {
	out := make([]*Branch, 0, len(t.branches))
	for _, b := range t.branches {
		out = append(out, b)
	}
	return out
}

// OpenBranch creates an empty-tree branch carrying only its root
// element, registers it in the txn, and returns it. The caller follows
// with AlterOne calls to populate it.
func (t *Txn) OpenBranch(predecessor *RevBID, id ID, rootEID element.EID) (*Branch, error) {
	if err := t.requireMutable("open_branch"); err != nil {
		return nil, err
	}
	if _, exists := t.branches[id]; exists {
		return nil, emverrors.New(emverrors.KindBranching, "open_branch", "branch id already open in this txn: "+string(id))
	}
	b := &Branch{
		id:          id,
		predecessor: predecessor,
		rootEID:     rootEID,
		tree:        element.New(rootEID, element.NewDirPayload(nil)),
		txn:         t,
	}
	t.branches[id] = b
	t.arena.track(b)
	return b, nil
}

// BranchFrom deep-copies the subtree identified by (source, sourceEID)
// into a new branch with id newID, preserving every EID so element
// identity crosses the branch boundary intact. Nested subbranches under
// the subtree are not opened for the new branch: their subbranch-root
// elements are copied as markers only.
func (t *Txn) BranchFrom(source *Branch, sourceEID element.EID, predecessor *RevBID, newID ID) (*Branch, error) {
	if err := t.requireMutable("branch_from"); err != nil {
		return nil, err
	}
	if _, exists := t.branches[newID]; exists {
		return nil, emverrors.New(emverrors.KindBranching, "branch_from", "branch id already open in this txn: "+string(newID))
	}
	sub, err := source.GetSubtree(sourceEID)
	if err != nil {
		return nil, err
	}
	tree := element.New(sourceEID, element.NewDirPayload(nil))
	sub.copyInto(tree)
	b := &Branch{
		id:          newID,
		predecessor: predecessor,
		rootEID:     sourceEID,
		tree:        tree,
		txn:         t,
	}
	t.branches[newID] = b
	t.arena.track(b)
	return b, nil
}

// SequencePoint flushes pending implicit work so subsequent path->EID
// resolution sees a consistent view. Idempotent when already
// SequencePointed.
func (t *Txn) SequencePoint() error {
	switch t.state {
	case Open:
		t.state = SequencePointed
		return nil
	case SequencePointed:
		return nil
	default:
		return emverrors.New(emverrors.KindBranching, "sequence_point", "txn is "+t.state.String())
	}
}

// Complete transitions Open|SequencePointed -> Completed. For an edit txn
// tied to a commit (CommitFn set), this persists the txn via CommitFn and
// returns the new revision in the report.
func (t *Txn) Complete() (CompletionReport, error) {
	if t.state != Open && t.state != SequencePointed {
		return CompletionReport{}, emverrors.New(emverrors.KindBranching, "complete", "txn is "+t.state.String())
	}
	if t.CommitFn != nil {
		rev, err := t.CommitFn(t)
		if err != nil {
			return CompletionReport{}, err
		}
		t.Rev = rev
		t.state = Completed
		t.arena.release()
		return CompletionReport{Revision: rev}, nil
	}
	t.state = Completed
	t.arena.release()
	return CompletionReport{Revision: t.Rev}, nil
}

// Abort transitions to Aborted. For a commit edit txn, informs the
// repository (via AbortFn) to discard accumulated changes.
func (t *Txn) Abort() error {
	if t.state == Completed || t.state == Aborted {
		return emverrors.New(emverrors.KindBranching, "abort", "txn is already "+t.state.String())
	}
	if t.AbortFn != nil {
		if err := t.AbortFn(t); err != nil {
			return err
		}
	}
	t.state = Aborted
	t.arena.release()
	return nil
}
