package branch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/untoldecay/elembranch/internal/element"
)

// ID is a '.'-joined path of integers encoding branch nesting: "B<n>" for
// a top-level branch, or "<outer>.<outer_eid>" for a subbranch anchored
// at outer_eid inside outer.
type ID string

// TopLevel builds the ID of the n'th top-level branch.
func TopLevel(n int) ID {
	return ID(fmt.Sprintf("B%d", n))
}

// Sub derives the deterministic subbranch ID anchored at eid inside
// outer: bid == outer_bid + "." + outer_eid.
func Sub(outer ID, eid element.EID) ID {
	return ID(fmt.Sprintf("%s.%d", outer, eid))
}

// Outer returns the parent branch ID and anchoring EID that a subbranch
// ID was derived from, or false if id does not name a subbranch.
func (id ID) Outer() (ID, element.EID, bool) {
	s := string(id)
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return "", 0, false
	}
	eid, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return ID(s[:i]), element.EID(eid), true
}

// IsTopLevel reports whether id names a top-level branch (no subbranch
// suffix).
func (id ID) IsTopLevel() bool {
	_, _, isSub := id.Outer()
	return !isSub
}

func (id ID) String() string { return string(id) }
