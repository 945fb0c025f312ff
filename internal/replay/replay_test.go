package replay

import (
	"testing"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
)

func newBranchWithTree(t *testing.T, txn *branch.Txn, id branch.ID, rootEID element.EID) *branch.Branch {
	t.Helper()
	b, err := txn.OpenBranch(nil, id, rootEID)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustAlter(t *testing.T, b *branch.Branch, eid, parent element.EID, name string, p element.Payload) {
	t.Helper()
	if err := b.AlterOne(eid, parent, name, p); err != nil {
		t.Fatalf("AlterOne(%d): %v", eid, err)
	}
}

// TestDiffReplayRoundTrip checks that replaying differences(A, B) into a
// copy of A yields a tree equal to B.
func TestDiffReplayRoundTrip(t *testing.T) {
	srcTxn := branch.New(1, 100)
	a := newBranchWithTree(t, srcTxn, branch.TopLevel(0), 1)
	mustAlter(t, a, 2, 1, "dir", element.NewDirPayload(nil))
	mustAlter(t, a, 3, 2, "file", element.NewFilePayload(nil, []byte("hi")))

	bTxn := branch.New(2, 100)
	bBranch := newBranchWithTree(t, bTxn, branch.TopLevel(0), 1)
	mustAlter(t, bBranch, 2, 1, "dir", element.NewDirPayload(nil))
	mustAlter(t, bBranch, 3, 2, "renamed", element.NewFilePayload(nil, []byte("bye")))
	mustAlter(t, bBranch, 4, 1, "new", element.NewDirPayload(nil))

	editTxn := branch.New(3, 100)
	editBranch := newBranchWithTree(t, editTxn, branch.TopLevel(1), 1)
	mustAlter(t, editBranch, 2, 1, "dir", element.NewDirPayload(nil))
	mustAlter(t, editBranch, 3, 2, "file", element.NewFilePayload(nil, []byte("hi")))

	if err := SubtreeReplay(editBranch, editBranch.Tree(), bBranch.Tree()); err != nil {
		t.Fatalf("SubtreeReplay: %v", err)
	}

	diffs := element.Differences(editBranch.Tree(), bBranch.Tree())
	if len(diffs) != 0 {
		t.Fatalf("expected replayed tree to equal B exactly, got %d remaining diffs: %+v", len(diffs), diffs)
	}
}

// TestSimpleMoveScenario mirrors a move scenario.
func TestSimpleMoveScenario(t *testing.T) {
	txn := branch.New(1, 100)
	b0 := newBranchWithTree(t, txn, branch.TopLevel(0), 1)
	mustAlter(t, b0, 2, 1, "a", element.NewDirPayload(nil))
	mustAlter(t, b0, 3, 2, "b", element.NewFilePayload(nil, []byte("hi")))

	// mv a/b c: single alter_one on e3, changing parent+name.
	if err := b0.AlterOne(3, 1, "c", element.NewFilePayload(nil, []byte("hi"))); err != nil {
		t.Fatalf("mv: %v", err)
	}
	path, _ := b0.GetPathByEID(3)
	if path != "c" {
		t.Fatalf("path after mv = %q, want c", path)
	}
}

func TestRevertIsInverse(t *testing.T) {
	baseTxn := branch.New(1, 100)
	base := newBranchWithTree(t, baseTxn, branch.TopLevel(0), 1)
	mustAlter(t, base, 2, 1, "a", element.NewDirPayload(nil))

	workTxn := branch.New(2, 100)
	working := newBranchWithTree(t, workTxn, branch.TopLevel(0), 1)
	mustAlter(t, working, 2, 1, "a", element.NewDirPayload(nil))
	mustAlter(t, working, 3, 2, "b", element.NewFilePayload(nil, []byte("hi")))

	if err := Revert(workTxn, working, base); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	diffs := element.Differences(working.Tree(), base.Tree())
	if len(diffs) != 0 {
		t.Fatalf("revert should reproduce the base tree exactly, got diffs: %+v", diffs)
	}
}

func TestMergeIdentity(t *testing.T) {
	// merge(yca=X, src=X, tgt=Y) yields Y unchanged with zero conflicts.
	xTxn := branch.New(1, 100)
	x := newBranchWithTree(t, xTxn, branch.TopLevel(0), 1)
	mustAlter(t, x, 2, 1, "a", element.NewDirPayload(nil))

	yTxn := branch.New(2, 100)
	y := newBranchWithTree(t, yTxn, branch.TopLevel(0), 1)
	mustAlter(t, y, 2, 1, "a", element.NewDirPayload(nil))
	mustAlter(t, y, 3, 2, "b", element.NewFilePayload(nil, []byte("hi")))
	snapshot := y.Tree().Clone()

	conflicts, err := Merge(y, x.Tree(), x.Tree())
	if err != nil {
		t.Fatal(err)
	}
	if !conflicts.Empty() {
		t.Fatalf("expected zero conflicts, got %+v", conflicts)
	}
	if diffs := element.Differences(y.Tree(), snapshot); len(diffs) != 0 {
		t.Fatalf("tgt should be unchanged, got diffs: %+v", diffs)
	}
}

func TestMergeNameClash(t *testing.T) {
	// src renames e2 to y, tgt adds e3 named y.
	ycaTxn := branch.New(1, 100)
	yca := newBranchWithTree(t, ycaTxn, branch.TopLevel(0), 1)
	mustAlter(t, yca, 2, 1, "x", element.NewDirPayload(nil))

	srcTxn := branch.New(2, 100)
	src := newBranchWithTree(t, srcTxn, branch.TopLevel(0), 1)
	mustAlter(t, src, 2, 1, "y", element.NewDirPayload(nil))

	tgtTxn := branch.New(3, 100)
	tgt := newBranchWithTree(t, tgtTxn, branch.TopLevel(0), 1)
	mustAlter(t, tgt, 2, 1, "x", element.NewDirPayload(nil))
	mustAlter(t, tgt, 3, 1, "y", element.NewFilePayload(nil, []byte("new")))

	conflicts, err := Merge(tgt, yca.Tree(), src.Tree())
	if err != nil {
		t.Fatal(err)
	}
	if len(conflicts.NameClash) != 1 {
		t.Fatalf("expected exactly one name-clash conflict, got %+v", conflicts.NameClash)
	}
	nc := conflicts.NameClash[0]
	if nc.Parent != 1 || nc.Name != "y" || len(nc.EIDs) != 2 {
		t.Fatalf("unexpected name clash record: %+v", nc)
	}
}

func TestMergeRenameVsRenameConflict(t *testing.T) {
	ycaTxn := branch.New(1, 100)
	yca := newBranchWithTree(t, ycaTxn, branch.TopLevel(0), 1)
	mustAlter(t, yca, 2, 1, "n0", element.NewDirPayload(nil))

	srcTxn := branch.New(2, 100)
	src := newBranchWithTree(t, srcTxn, branch.TopLevel(0), 1)
	mustAlter(t, src, 2, 1, "n1", element.NewDirPayload(nil))

	tgtTxn := branch.New(3, 100)
	tgt := newBranchWithTree(t, tgtTxn, branch.TopLevel(0), 1)
	mustAlter(t, tgt, 2, 1, "n2", element.NewDirPayload(nil))

	conflicts, err := Merge(tgt, yca.Tree(), src.Tree())
	if err != nil {
		t.Fatal(err)
	}
	if len(conflicts.SingleElement) != 1 || conflicts.SingleElement[0].EID != 2 {
		t.Fatalf("expected a single-element conflict on EID 2, got %+v", conflicts.SingleElement)
	}
}

// TestMergeFastForwardsRootPayload verifies that a prop-only change to the
// branch root itself (legal, since it touches neither Parent nor Name)
// flows through merge like any other element instead of being dropped.
func TestMergeFastForwardsRootPayload(t *testing.T) {
	ycaTxn := branch.New(1, 100)
	yca := newBranchWithTree(t, ycaTxn, branch.TopLevel(0), 1)

	srcTxn := branch.New(2, 100)
	src := newBranchWithTree(t, srcTxn, branch.TopLevel(0), 1)
	mustAlter(t, src, 1, element.NoParent, "", element.NewDirPayload(map[string][]byte{"k": []byte("v")}))

	tgtTxn := branch.New(3, 100)
	tgt := newBranchWithTree(t, tgtTxn, branch.TopLevel(0), 1)
	mustAlter(t, tgt, 2, 1, "a", element.NewDirPayload(nil))

	conflicts, err := Merge(tgt, yca.Tree(), src.Tree())
	if err != nil {
		t.Fatal(err)
	}
	if !conflicts.Empty() {
		t.Fatalf("expected zero conflicts, got %+v", conflicts)
	}
	root, ok := tgt.GetElement(1)
	if !ok {
		t.Fatalf("root must still exist after merge")
	}
	if string(root.Payload.Props["k"]) != "v" {
		t.Fatalf("root prop change from src should have fast-forwarded, got props %+v", root.Payload.Props)
	}
	if root.Parent != element.NoParent || root.Name != "" {
		t.Fatalf("root must remain parent=NoParent name=\"\" after merge, got parent=%d name=%q", root.Parent, root.Name)
	}
}

// TestMergeFastForwardsNewParentAndChildTogether covers a merge where src
// both creates a new directory and a new file inside it relative to yca,
// with tgt untouched — both elements fast-forward (t == y, both absent).
// Applying fast-forwards in arbitrary map-iteration order must not choke
// on the child arriving before its new parent exists in tgt.
func TestMergeFastForwardsNewParentAndChildTogether(t *testing.T) {
	ycaTxn := branch.New(1, 100)
	yca := newBranchWithTree(t, ycaTxn, branch.TopLevel(0), 1)

	srcTxn := branch.New(2, 100)
	src := newBranchWithTree(t, srcTxn, branch.TopLevel(0), 1)
	mustAlter(t, src, 2, 1, "newdir", element.NewDirPayload(nil))
	mustAlter(t, src, 3, 2, "newfile", element.NewFilePayload(nil, []byte("hi")))

	tgtTxn := branch.New(3, 100)
	tgt := newBranchWithTree(t, tgtTxn, branch.TopLevel(0), 1)

	conflicts, err := Merge(tgt, yca.Tree(), src.Tree())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !conflicts.Empty() {
		t.Fatalf("expected zero conflicts, got %+v", conflicts)
	}
	path, ok := tgt.GetPathByEID(3)
	if !ok || path != "newdir/newfile" {
		t.Fatalf("expected newdir/newfile to fast-forward into tgt, got path=%q ok=%v", path, ok)
	}
}

func TestMergeSymmetry(t *testing.T) {
	ycaTxn := branch.New(1, 100)
	yca := newBranchWithTree(t, ycaTxn, branch.TopLevel(0), 1)
	mustAlter(t, yca, 2, 1, "n0", element.NewDirPayload(nil))

	bTxn := branch.New(2, 100)
	bSide := newBranchWithTree(t, bTxn, branch.TopLevel(0), 1)
	mustAlter(t, bSide, 2, 1, "n1", element.NewDirPayload(nil))

	cTxn := branch.New(3, 100)
	cSide := newBranchWithTree(t, cTxn, branch.TopLevel(0), 1)
	mustAlter(t, cSide, 2, 1, "n2", element.NewDirPayload(nil))

	conflicts1, err := Merge(cSide, yca.Tree(), bSide.Tree())
	if err != nil {
		t.Fatal(err)
	}

	cTxn2 := branch.New(4, 100)
	cSide2 := newBranchWithTree(t, cTxn2, branch.TopLevel(0), 1)
	mustAlter(t, cSide2, 2, 1, "n2", element.NewDirPayload(nil))
	conflicts2, err := Merge(bSide, yca.Tree(), cSide2.Tree())
	if err != nil {
		t.Fatal(err)
	}

	if len(conflicts1.SingleElement) != len(conflicts2.SingleElement) {
		t.Fatalf("merge symmetry broken: %d vs %d single-element conflicts", len(conflicts1.SingleElement), len(conflicts2.SingleElement))
	}
}
