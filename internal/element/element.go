// Package element implements the L1 element tree: an immutable-in-use
// snapshot of EID to element content, with path<->EID lookup, structural
// equality and diff.
package element

import (
	"fmt"
	"sort"
	"strings"
)

// EID is a repository-wide unique element identifier. NoParent (-1)
// denotes "no element"; it is used as the parent of a branch root.
type EID int64

// NoParent is the virtual parent of a branch root element.
const NoParent EID = -1

// PayloadKind distinguishes the three element payload shapes.
type PayloadKind int

const (
	// KindFile marks a payload carrying props and text.
	KindFile PayloadKind = iota
	// KindDir marks a payload carrying only props.
	KindDir
	// KindSubbranchRoot marks the outer-branch anchor of a nested branch.
	KindSubbranchRoot
)

// Payload is one of file (props+text), directory (props) or
// subbranch-root marker (no further data).
type Payload struct {
	Kind  PayloadKind
	Props map[string][]byte
	Text  []byte // non-nil iff Kind == KindFile
}

// NewFilePayload builds a well-formed file payload.
func NewFilePayload(props map[string][]byte, text []byte) Payload {
	if text == nil {
		text = []byte{}
	}
	return Payload{Kind: KindFile, Props: cloneProps(props), Text: append([]byte(nil), text...)}
}

// NewDirPayload builds a well-formed directory payload.
func NewDirPayload(props map[string][]byte) Payload {
	return Payload{Kind: KindDir, Props: cloneProps(props)}
}

// NewSubbranchRootPayload builds the subbranch-root marker payload.
func NewSubbranchRootPayload() Payload {
	return Payload{Kind: KindSubbranchRoot}
}

func cloneProps(p map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(p))
	for k, v := range p {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// Equal reports deep, byte-identical equality between two payloads.
func (p Payload) Equal(o Payload) bool {
	if p.Kind != o.Kind {
		return false
	}
	switch p.Kind {
	case KindSubbranchRoot:
		return true
	case KindDir:
		return propsEqual(p.Props, o.Props)
	case KindFile:
		return propsEqual(p.Props, o.Props) && string(p.Text) == string(o.Text)
	default:
		return false
	}
}

func propsEqual(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || string(v) != string(ov) {
			return false
		}
	}
	return true
}

// Content is a single tracked element: its parent, its name within that
// parent, and its payload.
type Content struct {
	Parent  EID
	Name    string
	Payload Payload
}

// Equal reports whether two element contents are identical: same parent,
// same name, and byte-identical payload.
func (c Content) Equal(o Content) bool {
	return c.Parent == o.Parent && c.Name == o.Name && c.Payload.Equal(o.Payload)
}

// Clone produces a value copy of c, duplicating any payload byte slices
// so neither instance aliases the other's backing arrays.
func (c Content) Clone() Content {
	out := c
	out.Payload.Props = cloneProps(c.Payload.Props)
	if c.Payload.Kind == KindFile {
		out.Payload.Text = append([]byte(nil), c.Payload.Text...)
	}
	return out
}

// IsRoot reports whether c is a branch-root element: parent is NoParent
// and name is empty.
func (c Content) IsRoot() bool {
	return c.Parent == NoParent && c.Name == ""
}

// Tree is a finite map from EID to element content, together with a
// distinguished root EID. Exactly one element has parent == NoParent and
// name == "", and it is RootEID.
type Tree struct {
	RootEID EID
	byEID   map[EID]Content
}

// New constructs an empty tree with the given root EID and root payload.
// The root element itself is installed with Parent=NoParent, Name="".
func New(rootEID EID, rootPayload Payload) *Tree {
	t := &Tree{RootEID: rootEID, byEID: make(map[EID]Content)}
	t.byEID[rootEID] = Content{Parent: NoParent, Name: "", Payload: rootPayload}
	return t
}

// Clone produces a deep copy of t.
func (t *Tree) Clone() *Tree {
	out := &Tree{RootEID: t.RootEID, byEID: make(map[EID]Content, len(t.byEID))}
	for eid, c := range t.byEID {
		out.byEID[eid] = c.Clone()
	}
	return out
}

// Get returns the content at eid, if present.
func (t *Tree) Get(eid EID) (Content, bool) {
	c, ok := t.byEID[eid]
	return c, ok
}

// Set installs content at eid, overwriting any existing entry. It is a
// mutation primitive used only by the branch layer.
func (t *Tree) Set(eid EID, c Content) {
	t.byEID[eid] = c.Clone()
}

// Unset removes eid from the tree entirely. It is a mutation primitive
// used only by the branch layer.
func (t *Tree) Unset(eid EID) {
	delete(t.byEID, eid)
}

// Len reports the number of elements in the tree, including orphans.
func (t *Tree) Len() int { return len(t.byEID) }

// EIDs returns every EID in the tree in unspecified order.
func (t *Tree) EIDs() []EID {
	out := make([]EID, 0, len(t.byEID))
	for eid := range t.byEID {
		out = append(out, eid)
	}
	return out
}

// reachesRoot walks the parent chain from eid and reports whether it
// terminates at RootEID without looping. path accumulates the name chain
// root-to-eid (exclusive of the root's own empty name).
func (t *Tree) reachesRoot(eid EID) (names []string, ok bool) {
	seen := make(map[EID]bool)
	cur := eid
	var chain []string
	for {
		if cur == t.RootEID {
			for i := len(chain) - 1; i >= 0; i-- {
				names = append(names, chain[i])
			}
			return names, true
		}
		if seen[cur] {
			return nil, false // cycle
		}
		seen[cur] = true
		c, present := t.byEID[cur]
		if !present {
			return nil, false // dangling parent: orphan
		}
		if cur != t.RootEID {
			chain = append(chain, c.Name)
		}
		if c.Parent == NoParent {
			return nil, false // reached a virtual parent that isn't the root: orphan
		}
		cur = c.Parent
	}
}

// GetPath returns the "/"-joined name chain from root to eid, or false if
// eid is absent or an orphan.
func (t *Tree) GetPath(eid EID) (string, bool) {
	if eid == t.RootEID {
		return "", true
	}
	names, ok := t.reachesRoot(eid)
	if !ok {
		return "", false
	}
	return strings.Join(names, "/"), true
}

// IsOrphan reports whether eid is present in the tree but its ancestor
// chain does not reach RootEID.
func (t *Tree) IsOrphan(eid EID) bool {
	if _, present := t.byEID[eid]; !present {
		return false
	}
	if eid == t.RootEID {
		return false
	}
	_, ok := t.reachesRoot(eid)
	return !ok
}

// GetByPath walks from the root matching path components, returning the
// resolved EID, or false if any component is missing.
func (t *Tree) GetByPath(path string) (EID, bool) {
	if path == "" {
		return t.RootEID, true
	}
	cur := t.RootEID
	for _, comp := range strings.Split(path, "/") {
		if comp == "" {
			continue
		}
		next, ok := t.childNamed(cur, comp)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

func (t *Tree) childNamed(parent EID, name string) (EID, bool) {
	for eid, c := range t.byEID {
		if c.Parent == parent && c.Name == name {
			return eid, true
		}
	}
	return 0, false
}

// Children returns the EIDs whose Parent is parent, sorted by name for
// deterministic iteration.
func (t *Tree) Children(parent EID) []EID {
	type kv struct {
		eid  EID
		name string
	}
	var kvs []kv
	for eid, c := range t.byEID {
		if c.Parent == parent {
			kvs = append(kvs, kv{eid, c.Name})
		}
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].name < kvs[j].name })
	out := make([]EID, len(kvs))
	for i, k := range kvs {
		out[i] = k.eid
	}
	return out
}

// IsCommitted reports whether eid lies below the repository's
// committed/allocated-in-txn threshold.
func IsCommitted(eid EID, threshold EID) bool {
	return eid < threshold
}

// CheckInvariants validates the structural invariants: exactly one root,
// sibling-name uniqueness among non-orphan elements, well-formed
// payloads, and no cycles among reachable elements.
func (t *Tree) CheckInvariants() error {
	rootCount := 0
	for eid, c := range t.byEID {
		if c.IsRoot() {
			rootCount++
			if eid != t.RootEID {
				return errNotf("element %d has parent -1 but is not RootEID %d", eid, t.RootEID)
			}
		}
		if eid != t.RootEID && c.Name == "" {
			return errNotf("element %d has empty name but is not the root", eid)
		}
		if eid != t.RootEID && strings.Contains(c.Name, "/") {
			return errNotf("element %d name %q contains '/'", eid, c.Name)
		}
		if c.Payload.Kind == KindFile && c.Payload.Text == nil {
			return errNotf("element %d is a file with nil text", eid)
		}
	}
	if rootCount != 1 {
		return errNotf("tree has %d root elements, want exactly 1", rootCount)
	}

	siblings := make(map[EID]map[string]EID)
	for eid := range t.byEID {
		if eid == t.RootEID || t.IsOrphan(eid) {
			continue
		}
		c := t.byEID[eid]
		m, ok := siblings[c.Parent]
		if !ok {
			m = make(map[string]EID)
			siblings[c.Parent] = m
		}
		if existing, clash := m[c.Name]; clash && existing != eid {
			return errNotf("sibling name clash under parent %d: %q used by %d and %d", c.Parent, c.Name, existing, eid)
		}
		m[c.Name] = eid
	}
	return nil
}

func errNotf(format string, args ...any) error {
	return &invariantError{msg: fmt.Sprintf(format, args...)}
}

type invariantError struct{ msg string }

func (e *invariantError) Error() string { return e.msg }
