// Package repo defines the boundary the core engine (internal/element,
// internal/branch, internal/replay, internal/workspace) consumes to reach
// persisted revisions, never the other way around: no core package
// imports internal/reposqlite.
package repo

import (
	"context"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
)

// ElRevID identifies one element within one revision of one branch: the
// engine's equivalent of a peg revision plus path, resolved down to the
// stable EID rather than a path string.
type ElRevID struct {
	Rev  branch.RevNum
	BID  branch.ID
	EID  element.EID
}

// CommitCallback receives the CompletionReport once a commit txn's
// changes have been durably persisted.
type CommitCallback func(branch.CompletionReport) error

// Repo is the external collaborator this module names: the on-disk
// repository, its revision storage and RA transport, kept fully opaque
// to the core engine.
type Repo interface {
	// LoadBranchingState returns a read-only txn reflecting every branch
	// as it existed at rev. infoDir, when non-empty, tells the
	// implementation branch metadata lives as sibling files on disk
	// rather than in revision properties.
	LoadBranchingState(ctx context.Context, rev branch.RevNum, infoDir string) (*branch.Txn, error)

	// GetCommitTxn begins a commit: the returned txn's CommitFn persists
	// whatever mutations accumulate and, on success, invokes cb with the
	// resulting CompletionReport before returning the new revision to the
	// caller of Complete. revprops are attached to the revision verbatim
	// (SUPPLEMENTED FEATURES #1).
	GetCommitTxn(ctx context.Context, revprops map[string]string, cb CommitCallback, infoDir string) (*branch.Txn, error)

	// GetLatestRevnum reports the highest committed revision.
	GetLatestRevnum(ctx context.Context) (branch.RevNum, error)

	// GetReposRoot reports the repository's identifying URL (the `-U`
	// argument's resolved target).
	GetReposRoot(ctx context.Context) (string, error)

	// GetRevprops returns the revision properties attached to rev,
	// including the well-known "log" key (SUPPLEMENTED FEATURES #4).
	GetRevprops(ctx context.Context, rev branch.RevNum) (map[string]string, error)

	// ReadFile fetches file content addressed by (bid, eid) as of rev,
	// for commands that need the byte payload rather than just the
	// element-tree metadata (`cat`).
	ReadFile(ctx context.Context, rev branch.RevNum, bid branch.ID, eid element.EID) ([]byte, error)

	// ReplayRange drives a legacy (pre-move-tracking) revision range
	// through startedCb/finishedCb for internal/migrate: startedCb
	// receives a LegacyEditor for each revision in [from, to], finishedCb
	// is invoked once that revision's edits have all been delivered.
	ReplayRange(ctx context.Context, from, to branch.RevNum, startedCb func(branch.RevNum) (LegacyEditor, error), finishedCb func(branch.RevNum) error) error
}

// LegacyEditor is the visitor interface internal/migrate implements to
// receive one legacy revision's tree-delta as a sequence of callbacks,
// mirroring the shape of an old-style delta editor without requiring the
// engine to model path-based deltas anywhere else.
type LegacyEditor interface {
	OpenRoot() error
	AddFile(path string, content []byte) error
	AddDir(path string) error
	OpenFile(path string, content []byte) error
	DeleteEntry(path string) error
	CloseEdit() error
}
