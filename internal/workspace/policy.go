package workspace

import (
	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/repo"
)

// CrossBranchMovePolicy selects how `mv` handles a source and destination
// that resolve to different branches, where a plain AlterOne reparent
// cannot apply.
type CrossBranchMovePolicy int

const (
	// CopyAndDelete duplicates the source subtree into the destination
	// with fresh element identity, then deletes the source.
	CopyAndDelete CrossBranchMovePolicy = iota
	// BranchAndDelete creates a new top-level branch rooted at the
	// source's own EID (preserving identity), then deletes the source.
	BranchAndDelete
	// BranchIntoAndDelete nests the source as a new subbranch anchored
	// inside the destination (preserving identity), then deletes the
	// source.
	BranchIntoAndDelete
	// AskUser defers the choice to an interactive prompt; resolving it
	// outside an interactive context is an error.
	AskUser
)

// BranchIntoPolicy names two treatments of an element that already exists
// at a branch-into destination. No command consults it: branch-into always
// anchors a brand-new subbranch and fails only when that subbranch id is
// already open.
type BranchIntoPolicy int

const (
	// ErrorOnExisting fails the operation rather than overwrite.
	ErrorOnExisting BranchIntoPolicy = iota
	// OverwriteExisting replaces the existing element's content.
	OverwriteExisting
)

// MovePolicyResolver is consulted when a cross-branch mv is dispatched
// with AskUser; it returns the concrete policy to apply for this one
// move. cmd/emv's askMovePolicy, backed by huh, is the implementation;
// mv calls it directly, and only in an interactive session.
type MovePolicyResolver func(src repo.ElRevID, dstBID branch.ID, dstParent element.EID, dstName string) (CrossBranchMovePolicy, error)
