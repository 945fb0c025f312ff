package reposqlite

import (
	"context"
	"testing"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/repo"
)

func openMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", "file:///tmp/repo")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSerializeParseBranchRoundTrip(t *testing.T) {
	txn := branch.New(1, 100)
	b, err := txn.OpenBranch(nil, branch.TopLevel(0), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AlterOne(2, 1, "dir", element.NewDirPayload(map[string][]byte{"k": []byte("v")})); err != nil {
		t.Fatal(err)
	}
	if err := b.AlterOne(3, 2, "file", element.NewFilePayload(nil, []byte("hello\tworld\n"))); err != nil {
		t.Fatal(err)
	}

	text := serializeBranch(b)
	id, rootEID, predecessor, contents, err := parseBranch(text)
	if err != nil {
		t.Fatalf("parseBranch: %v", err)
	}
	if id != b.BID() || rootEID != b.RootEID() || predecessor != nil {
		t.Fatalf("header mismatch: id=%v root=%v pred=%v", id, rootEID, predecessor)
	}
	for eid := range contents {
		want, _ := b.GetElement(eid)
		got := contents[eid]
		if !want.Equal(got) {
			t.Fatalf("element %d round-trip mismatch: want %+v got %+v", eid, want, got)
		}
	}
	if len(contents) != b.Tree().Len() {
		t.Fatalf("round trip lost elements: got %d want %d", len(contents), b.Tree().Len())
	}
}

func TestCommitThenLoadBranchingState(t *testing.T) {
	ctx := context.Background()
	store := openMemStore(t)

	txn, err := store.GetCommitTxn(ctx, map[string]string{"log": "first commit"}, nil, "")
	if err != nil {
		t.Fatalf("GetCommitTxn: %v", err)
	}
	b, err := txn.OpenBranch(nil, branch.TopLevel(0), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AlterOne(2, 1, "a", element.NewDirPayload(nil)); err != nil {
		t.Fatal(err)
	}
	if err := b.AlterOne(3, 2, "b", element.NewFilePayload(nil, []byte("content"))); err != nil {
		t.Fatal(err)
	}
	report, err := txn.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if report.Revision != 1 {
		t.Fatalf("Revision = %d, want 1", report.Revision)
	}

	latest, err := store.GetLatestRevnum(ctx)
	if err != nil || latest != 1 {
		t.Fatalf("GetLatestRevnum = %d, %v; want 1, nil", latest, err)
	}

	loaded, err := store.LoadBranchingState(ctx, 1, "")
	if err != nil {
		t.Fatalf("LoadBranchingState: %v", err)
	}
	loadedBranch, ok := loaded.GetBranchByID(branch.TopLevel(0))
	if !ok {
		t.Fatalf("loaded txn missing branch %s", branch.TopLevel(0))
	}
	path, ok := loadedBranch.GetPathByEID(3)
	if !ok || path != "a/b" {
		t.Fatalf("GetPathByEID(3) = %q, %v; want a/b, true", path, ok)
	}

	revprops, err := store.GetRevprops(ctx, 1)
	if err != nil || revprops["log"] != "first commit" {
		t.Fatalf("GetRevprops = %+v, %v; want log=first commit", revprops, err)
	}

	content, err := store.ReadFile(ctx, 1, branch.TopLevel(0), 3)
	if err != nil || string(content) != "content" {
		t.Fatalf("ReadFile = %q, %v; want \"content\", nil", content, err)
	}
}

func TestReplayRangeDrivesLegacyOps(t *testing.T) {
	ctx := context.Background()
	store := openMemStore(t)

	if err := store.InsertLegacyOp(ctx, 1, 0, "add_dir", "a", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertLegacyOp(ctx, 1, 1, "add_file", "a/b", []byte("hi")); err != nil {
		t.Fatal(err)
	}

	var seenOps []string
	fake := &fakeEditor{onOp: func(kind string) { seenOps = append(seenOps, kind) }}

	err := store.ReplayRange(ctx, 1, 1,
		func(rev branch.RevNum) (repo.LegacyEditor, error) { return fake, nil },
		func(rev branch.RevNum) error { return nil },
	)
	if err != nil {
		t.Fatalf("ReplayRange: %v", err)
	}
	if len(seenOps) != 4 || seenOps[0] != "open_root" || seenOps[1] != "add_dir" || seenOps[2] != "add_file" || seenOps[3] != "close" {
		t.Fatalf("unexpected op sequence: %v", seenOps)
	}
}

type fakeEditor struct {
	onOp func(string)
}

func (f *fakeEditor) OpenRoot() error                        { f.onOp("open_root"); return nil }
func (f *fakeEditor) AddFile(p string, c []byte) error        { f.onOp("add_file"); return nil }
func (f *fakeEditor) AddDir(p string) error                   { f.onOp("add_dir"); return nil }
func (f *fakeEditor) OpenFile(p string, c []byte) error       { f.onOp("open_file"); return nil }
func (f *fakeEditor) DeleteEntry(p string) error              { f.onOp("delete"); return nil }
func (f *fakeEditor) CloseEdit() error                        { f.onOp("close"); return nil }
