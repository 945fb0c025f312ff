package element

import "testing"

func buildSimpleTree() *Tree {
	t := New(1, NewDirPayload(nil))
	t.Set(2, Content{Parent: 1, Name: "a", Payload: NewDirPayload(nil)})
	t.Set(3, Content{Parent: 2, Name: "b", Payload: NewFilePayload(nil, []byte("hi"))})
	return t
}

func TestGetPath(t *testing.T) {
	tr := buildSimpleTree()
	path, ok := tr.GetPath(3)
	if !ok || path != "a/b" {
		t.Fatalf("GetPath(3) = %q, %v; want a/b, true", path, ok)
	}
	if p, ok := tr.GetPath(1); !ok || p != "" {
		t.Fatalf("GetPath(root) = %q, %v; want empty, true", p, ok)
	}
}

func TestGetByPath(t *testing.T) {
	tr := buildSimpleTree()
	eid, ok := tr.GetByPath("a/b")
	if !ok || eid != 3 {
		t.Fatalf("GetByPath(a/b) = %d, %v; want 3, true", eid, ok)
	}
	if _, ok := tr.GetByPath("a/c"); ok {
		t.Fatalf("GetByPath(a/c) unexpectedly resolved")
	}
}

func TestOrphanDetection(t *testing.T) {
	tr := buildSimpleTree()
	tr.Unset(2) // orphans element 3
	if !tr.IsOrphan(3) {
		t.Fatalf("expected element 3 to be orphaned once its parent is removed")
	}
	if _, ok := tr.GetPath(3); ok {
		t.Fatalf("orphaned element should have no path")
	}
}

func TestCheckInvariantsCatchesSiblingClash(t *testing.T) {
	tr := buildSimpleTree()
	tr.Set(4, Content{Parent: 1, Name: "a", Payload: NewDirPayload(nil)})
	if err := tr.CheckInvariants(); err == nil {
		t.Fatalf("expected sibling name clash to be detected")
	}
}

func TestCheckInvariantsIgnoresOrphanClash(t *testing.T) {
	tr := buildSimpleTree()
	tr.Unset(2)
	tr.Set(4, Content{Parent: 2, Name: "b", Payload: NewFilePayload(nil, []byte("x"))})
	// Elements 3 and 4 are both orphaned (dangling parent 2) and share the
	// name "b"; orphans are not siblings, so the tree validates cleanly.
	if err := tr.CheckInvariants(); err != nil {
		t.Fatalf("unexpected invariant violation: %v", err)
	}
}

func TestDifferences(t *testing.T) {
	a := buildSimpleTree()
	b := a.Clone()
	b.Set(3, Content{Parent: 2, Name: "c", Payload: NewFilePayload(nil, []byte("hi"))}) // rename
	b.Set(5, Content{Parent: 1, Name: "new", Payload: NewDirPayload(nil)})              // add
	b.Unset(2)                                                                          // delete (orphans 3 too, but diff is keyed, not recursive)

	diffs := Differences(a, b)
	if _, ok := diffs[2]; !ok {
		t.Fatalf("expected a delete entry for eid 2")
	}
	if diffs[2].Right != nil {
		t.Fatalf("deleted element should have nil Right")
	}
	if _, ok := diffs[5]; !ok || diffs[5].Left != nil {
		t.Fatalf("expected an add entry for eid 5 with nil Left")
	}
	if _, ok := diffs[3]; !ok {
		t.Fatalf("expected a modify entry for eid 3")
	}
	if _, ok := diffs[1]; ok {
		t.Fatalf("root is unchanged and should not appear in the diff")
	}
}

func TestPayloadEqualityRequiresByteIdenticalText(t *testing.T) {
	p1 := NewFilePayload(map[string][]byte{"mime": []byte("text/plain")}, []byte("hi"))
	p2 := NewFilePayload(map[string][]byte{"mime": []byte("text/plain")}, []byte("hi"))
	p3 := NewFilePayload(map[string][]byte{"mime": []byte("text/plain")}, []byte("bye"))
	if !p1.Equal(p2) {
		t.Fatalf("expected identical file payloads to be equal")
	}
	if p1.Equal(p3) {
		t.Fatalf("expected differing text to break equality")
	}
}
