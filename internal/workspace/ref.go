package workspace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/emverrors"
)

// RevSpec is a parsed `<rev>` token: absent, a literal number, or one of
// the named pegs head/base/committed.
type RevSpec struct {
	set   bool
	named string
	num   branch.RevNum
}

// IsSet reports whether a revision was named at all (`@rev` present).
func (r RevSpec) IsSet() bool { return r.set }

// Ref is one parsed command-line argument of the form
// `[^B<branch-id>/]<relpath>[@<rev>]`. An absent BID defaults to the WC's
// current working branch; an absent Rev resolves against the working txn.
type Ref struct {
	BID     branch.ID
	RelPath string
	Rev     RevSpec
}

var refPattern = regexp.MustCompile(`^(?:\^(B[^/]+)/)?([^@]*)(?:@(.+))?$`)

// ParseRef parses one command-line argument into a Ref. It does not touch
// any branch or txn state — resolving a Ref to an element requires
// WC.FindElRevID.
func ParseRef(s string) (Ref, error) {
	m := refPattern.FindStringSubmatch(s)
	if m == nil {
		return Ref{}, emverrors.New(emverrors.KindIncorrectParams, "parse_ref", s)
	}
	ref := Ref{
		BID:     branch.ID(m[1]),
		RelPath: strings.Trim(m[2], "/"),
	}
	if m[3] != "" {
		rs, err := parseRevSpec(m[3])
		if err != nil {
			return Ref{}, err
		}
		ref.Rev = rs
	}
	return ref, nil
}

func parseRevSpec(s string) (RevSpec, error) {
	switch s {
	case "head", "base", "committed":
		return RevSpec{set: true, named: s}, nil
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return RevSpec{}, emverrors.New(emverrors.KindIncorrectParams, "parse_rev", s)
		}
		return RevSpec{set: true, num: branch.RevNum(n)}, nil
	}
}
