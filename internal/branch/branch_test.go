package branch

import (
	"testing"

	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

func openSimpleBranch(t *testing.T, txn *Txn, id ID) *Branch {
	t.Helper()
	b, err := txn.OpenBranch(nil, id, 1)
	if err != nil {
		t.Fatalf("OpenBranch: %v", err)
	}
	return b
}

func TestTxnStateMachine(t *testing.T) {
	txn := New(1, 100)
	if txn.State() != Open {
		t.Fatalf("new txn should start Open")
	}
	if err := txn.SequencePoint(); err != nil {
		t.Fatalf("SequencePoint: %v", err)
	}
	if txn.State() != SequencePointed {
		t.Fatalf("expected SequencePointed")
	}
	if err := txn.SequencePoint(); err != nil {
		t.Fatalf("SequencePoint should be idempotent: %v", err)
	}
	report, err := txn.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if report.Revision != txn.Rev {
		t.Fatalf("CompletionReport.Revision = %d, want %d", report.Revision, txn.Rev)
	}
	if txn.State() != Completed {
		t.Fatalf("expected Completed")
	}
	if err := txn.Abort(); err == nil {
		t.Fatalf("Abort after Complete should fail")
	}
}

func TestEIDMonotonicity(t *testing.T) {
	txn := New(1, 100)
	prev, err := txn.NewEID()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		next, err := txn.NewEID()
		if err != nil {
			t.Fatal(err)
		}
		if next <= prev {
			t.Fatalf("EIDs not strictly increasing: %d then %d", prev, next)
		}
		prev = next
	}
}

func TestAlterOneEnforcesRootReparent(t *testing.T) {
	txn := New(1, 100)
	b := openSimpleBranch(t, txn, TopLevel(0))
	err := b.AlterOne(b.RootEID(), 5, "", element.NewDirPayload(nil))
	if emverrors.KindOf(err) != emverrors.KindRootReparent {
		t.Fatalf("expected RootReparent, got %v", err)
	}
}

func TestAlterOneEnforcesSiblingUniqueness(t *testing.T) {
	txn := New(1, 100)
	b := openSimpleBranch(t, txn, TopLevel(0))
	if err := b.AlterOne(2, b.RootEID(), "a", element.NewDirPayload(nil)); err != nil {
		t.Fatal(err)
	}
	err := b.AlterOne(3, b.RootEID(), "a", element.NewDirPayload(nil))
	if emverrors.KindOf(err) != emverrors.KindNameClash {
		t.Fatalf("expected NameClash, got %v", err)
	}
}

func TestAlterOneRenameIsSingleMutation(t *testing.T) {
	// mv a/b c is one alter_one on the
	// moved element, not a delete+add.
	txn := New(1, 100)
	b := openSimpleBranch(t, txn, TopLevel(0))
	mustAlter(t, b, 2, b.RootEID(), "a", element.NewDirPayload(nil))
	mustAlter(t, b, 3, 2, "b", element.NewFilePayload(nil, []byte("hi")))

	if err := b.AlterOne(3, b.RootEID(), "c", element.NewFilePayload(nil, []byte("hi"))); err != nil {
		t.Fatalf("rename via alter_one: %v", err)
	}
	path, ok := b.GetPathByEID(3)
	if !ok || path != "c" {
		t.Fatalf("GetPathByEID(3) = %q, %v; want c, true", path, ok)
	}
}

func TestDeleteOneOrphansDescendants(t *testing.T) {
	txn := New(1, 100)
	b := openSimpleBranch(t, txn, TopLevel(0))
	mustAlter(t, b, 2, b.RootEID(), "dir", element.NewDirPayload(nil))
	mustAlter(t, b, 3, 2, "file", element.NewFilePayload(nil, []byte("x")))

	if err := b.DeleteOne(2); err != nil {
		t.Fatalf("DeleteOne: %v", err)
	}
	if !b.Tree().IsOrphan(3) {
		t.Fatalf("descendant of deleted element should be orphaned, not removed")
	}
	if _, ok := b.Tree().Get(3); !ok {
		t.Fatalf("orphaned descendant must remain in the tree map")
	}
}

func TestDeleteOneRejectsRoot(t *testing.T) {
	txn := New(1, 100)
	b := openSimpleBranch(t, txn, TopLevel(0))
	if err := b.DeleteOne(b.RootEID()); emverrors.KindOf(err) != emverrors.KindBranching {
		t.Fatalf("expected Branching error deleting root, got %v", err)
	}
}

func TestSubbranchIDDerivation(t *testing.T) {
	outer := TopLevel(0)
	sub := Sub(outer, 42)
	if sub != "B0.42" {
		t.Fatalf("Sub(B0, 42) = %q, want B0.42", sub)
	}
	gotOuter, gotEID, ok := sub.Outer()
	if !ok || gotOuter != outer || gotEID != 42 {
		t.Fatalf("Outer() = %q, %d, %v; want %q, 42, true", gotOuter, gotEID, ok, outer)
	}
}

func TestBranchFromPreservesEIDs(t *testing.T) {
	txn := New(1, 100)
	src := openSimpleBranch(t, txn, TopLevel(0))
	mustAlter(t, src, 2, src.RootEID(), "dir", element.NewDirPayload(nil))
	mustAlter(t, src, 3, 2, "file", element.NewFilePayload(nil, []byte("hi")))

	dst, err := txn.BranchFrom(src, 2, nil, TopLevel(1))
	if err != nil {
		t.Fatalf("BranchFrom: %v", err)
	}
	if dst.RootEID() != 2 {
		t.Fatalf("new branch root should be the source EID 2, got %d", dst.RootEID())
	}
	root, ok := dst.GetElement(2)
	if !ok {
		t.Fatalf("new branch missing its own root element")
	}
	if root.Parent != element.NoParent || root.Name != "" {
		t.Fatalf("new branch root must be normalized to parent=NoParent name=\"\", got parent=%d name=%q", root.Parent, root.Name)
	}
	if _, ok := dst.GetElement(3); !ok {
		t.Fatalf("BranchFrom should preserve descendant EIDs")
	}
}

func TestMutationRejectedAfterComplete(t *testing.T) {
	txn := New(1, 100)
	b := openSimpleBranch(t, txn, TopLevel(0))
	if _, err := txn.Complete(); err != nil {
		t.Fatal(err)
	}
	if err := b.AlterOne(2, b.RootEID(), "a", element.NewDirPayload(nil)); err == nil {
		t.Fatalf("mutation after Complete should fail")
	}
}

func mustAlter(t *testing.T, b *Branch, eid, parent element.EID, name string, p element.Payload) {
	t.Helper()
	if err := b.AlterOne(eid, parent, name, p); err != nil {
		t.Fatalf("AlterOne(%d): %v", eid, err)
	}
}
