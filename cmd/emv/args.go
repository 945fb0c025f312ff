package main

import (
	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/workspace"
)

// resolveArg parses one `[^B<bid>/]<relpath>[@<rev>]` CLI argument and
// resolves it through the current WC to the branch and EID it names.
// NoParent (no element at this path) is returned without error, matching
// find_el_rev's documented contract; callers that require existence check
// for it explicitly.
func resolveArg(s string) (*branch.Branch, element.EID, workspace.Ref, error) {
	ref, err := workspace.ParseRef(s)
	if err != nil {
		return nil, 0, ref, err
	}
	elRevID, err := app.WC.FindElRevID(app.Ctx, ref)
	if err != nil {
		return nil, 0, ref, err
	}

	var txn *branch.Txn
	if ref.Rev.IsSet() {
		txn, err = app.Store.LoadBranchingState(app.Ctx, elRevID.Rev, app.InfoDir)
		if err != nil {
			return nil, 0, ref, err
		}
	} else {
		txn = app.WC.WorkingTxn()
	}
	b, ok := txn.GetBranchByID(elRevID.BID)
	if !ok {
		return nil, 0, ref, emverrors.New(emverrors.KindBranching, "resolve_arg", "branch not loaded: "+string(elRevID.BID))
	}
	return b, elRevID.EID, ref, nil
}

// requireExisting resolves s and fails with Branching if the path names
// no element.
func requireExisting(s string) (*branch.Branch, element.EID, error) {
	b, eid, _, err := resolveArg(s)
	if err != nil {
		return nil, 0, err
	}
	if eid == element.NoParent {
		return nil, 0, emverrors.New(emverrors.KindBranching, "resolve_arg", "no such element: "+s)
	}
	return b, eid, nil
}

// requireAbsent resolves s and fails with Branching if the path already
// names an element (used by commands that create, e.g. mkdir/put/mv
// destination).
func requireAbsent(s string) (*branch.Branch, element.EID, workspace.Ref, error) {
	b, eid, ref, err := resolveArg(s)
	if err != nil {
		return nil, 0, ref, err
	}
	if eid != element.NoParent {
		return nil, 0, ref, emverrors.New(emverrors.KindBranching, "resolve_arg", "element already exists: "+s)
	}
	return b, eid, ref, nil
}

// splitParentName resolves ref's parent directory (which must already
// exist) and the final path component, for commands that create a new
// element at ref.
func splitParentName(ref workspace.Ref, b *branch.Branch) (element.EID, string, error) {
	path := ref.RelPath
	if path == "" {
		return 0, "", emverrors.New(emverrors.KindIncorrectParams, "split_parent_name", "empty path")
	}
	dir, name := splitPath(path)
	parentRef := ref
	parentRef.RelPath = dir
	parentEID, err := app.WC.FindElRevID(app.Ctx, parentRef)
	if err != nil {
		return 0, "", err
	}
	if parentEID.EID == element.NoParent {
		return 0, "", emverrors.New(emverrors.KindBadParent, "split_parent_name", "parent directory does not exist: "+dir)
	}
	return parentEID.EID, name, nil
}

func splitPath(p string) (dir, name string) {
	idx := -1
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			idx = i
		}
	}
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}
