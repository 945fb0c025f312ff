package migrate

import (
	"context"
	"testing"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/testutil"
)

func TestRunPlainAddsWithoutMoves(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore(t, "file:///tmp/repo")

	if err := store.InsertLegacyOp(ctx, 1, 0, "add_dir", "a", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertLegacyOp(ctx, 1, 1, "add_file", "a/b", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	txn := branch.New(1, 10)
	target, err := txn.OpenBranch(nil, branch.TopLevel(0), 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, store, txn, target, 1, 1, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	eid, ok := target.Tree().GetByPath("a/b")
	if !ok {
		t.Fatalf("a/b not found after replay")
	}
	content, ok := target.GetElement(eid)
	if !ok || string(content.Payload.Text) != "hello" {
		t.Fatalf("a/b content = %+v, %v; want \"hello\"", content, ok)
	}
}

func TestRunRenameReusesEIDAcrossRevisions(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore(t, "file:///tmp/repo")

	// Revision 1: create a directory and a file inside it.
	if err := store.InsertLegacyOp(ctx, 1, 0, "add_dir", "a", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertLegacyOp(ctx, 1, 1, "add_file", "a/b", []byte("v1")); err != nil {
		t.Fatal(err)
	}

	// Revision 2: rename a/b to a/c, expressed as the legacy format
	// always expresses a move: delete of the old path, add at the new.
	if err := store.InsertLegacyOp(ctx, 2, 0, "delete", "a/b", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertLegacyOp(ctx, 2, 1, "add_file", "a/c", []byte("v1")); err != nil {
		t.Fatal(err)
	}

	txn := branch.New(1, 10)
	target, err := txn.OpenBranch(nil, branch.TopLevel(0), 1)
	if err != nil {
		t.Fatal(err)
	}

	moves := NewMoveTable([]MoveInfo{{Rev: 2, OldPath: "a/b", NewPath: "a/c"}})

	if err := Run(ctx, store, txn, target, 1, 1, nil); err != nil {
		t.Fatalf("Run rev1: %v", err)
	}
	bEID, ok := target.Tree().GetByPath("a/b")
	if !ok {
		t.Fatalf("a/b not found after rev 1")
	}

	if err := Run(ctx, store, txn, target, 2, 2, moves); err != nil {
		t.Fatalf("Run rev2: %v", err)
	}

	if _, ok := target.Tree().GetByPath("a/b"); ok {
		t.Fatalf("a/b still present after rename")
	}
	cEID, ok := target.Tree().GetByPath("a/c")
	if !ok {
		t.Fatalf("a/c not found after rename")
	}
	if cEID != bEID {
		t.Fatalf("rename allocated a fresh EID (%d) instead of reusing the source element's (%d)", cEID, bEID)
	}
}

func TestRunWithoutMoveTableTreatsRenameAsDeleteAndAdd(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore(t, "file:///tmp/repo")

	if err := store.InsertLegacyOp(ctx, 1, 0, "add_dir", "a", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertLegacyOp(ctx, 1, 1, "add_file", "a/b", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertLegacyOp(ctx, 2, 0, "delete", "a/b", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertLegacyOp(ctx, 2, 1, "add_file", "a/c", []byte("v1")); err != nil {
		t.Fatal(err)
	}

	txn := branch.New(1, 10)
	target, err := txn.OpenBranch(nil, branch.TopLevel(0), 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, store, txn, target, 1, 1, nil); err != nil {
		t.Fatalf("Run rev1: %v", err)
	}
	bEID, _ := target.Tree().GetByPath("a/b")

	if err := Run(ctx, store, txn, target, 2, 2, nil); err != nil {
		t.Fatalf("Run rev2: %v", err)
	}

	cEID, ok := target.Tree().GetByPath("a/c")
	if !ok {
		t.Fatalf("a/c not found")
	}
	if cEID == bEID {
		t.Fatalf("expected a fresh EID without a move table, got the same EID %d reused", cEID)
	}
}
