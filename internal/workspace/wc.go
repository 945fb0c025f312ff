// Package workspace implements the L4 working-copy lifecycle and the
// command-layer semantics that sit on top of the element/branch/replay
// core: checkout, switch, update, commit, revert, and argument resolution
// for the ~25 commands spec'd over it.
package workspace

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/replay"
	"github.com/untoldecay/elembranch/internal/repo"
)

// LockFileName is the advisory lock guarding a WC's on-disk state against
// a second concurrent emv invocation.
const LockFileName = "wc.lock"

// WC is a checked-out working copy: a read-only base txn at a fixed
// revision, and a scratch working txn holding every local edit made since
// checkout. It owns exactly one working txn at a time; Switch, Update and
// Commit atomically replace it with a freshly checked-out one.
type WC struct {
	repo    repo.Repo
	infoDir string
	dir     string // on-disk WC directory, for lock/watch; empty for a purely in-memory WC

	bid     branch.ID
	baseRev branch.RevNum

	baseTxn    *branch.Txn
	workingTxn *branch.Txn
	firstEID   element.EID // workingTxn's nextEID at checkout, for replicating allocation counts at commit

	lock    *flock.Flock
	watcher *fsnotify.Watcher
}

// CommitResult reports the outcome of Commit: Changed is false when the
// working tree was identical to base and the commit txn was aborted
// rather than persisted.
type CommitResult struct {
	Changed  bool
	Revision branch.RevNum
}

// Checkout opens a fresh WC at bid, at rev (branch.Invalid meaning head).
// dir, when non-empty, is the on-disk directory backing the WC's advisory
// lock and external-change watch; an empty dir yields a lock/watch-free
// in-memory WC suitable for tests.
func Checkout(ctx context.Context, r repo.Repo, bid branch.ID, rev branch.RevNum, infoDir, dir string) (*WC, error) {
	if rev == branch.Invalid {
		latest, err := r.GetLatestRevnum(ctx)
		if err != nil {
			return nil, err
		}
		rev = latest
	}
	wc := &WC{repo: r, infoDir: infoDir, dir: dir, bid: bid}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, emverrors.Wrap(emverrors.KindIO, "checkout", dir, err)
		}
		wc.lock = flock.New(filepath.Join(dir, LockFileName))
		locked, err := wc.lock.TryLock()
		if err != nil {
			return nil, emverrors.Wrap(emverrors.KindIO, "checkout", "lock", err)
		}
		if !locked {
			return nil, emverrors.New(emverrors.KindIO, "checkout", "working copy already locked by another emv process")
		}
	}
	if err := wc.checkoutAt(ctx, bid, rev); err != nil {
		if wc.lock != nil {
			wc.lock.Unlock()
		}
		return nil, err
	}
	return wc, nil
}

// checkoutAt loads rev as the new base and seeds a fresh working txn from
// it, replacing wc's existing base/working txns wholesale.
func (wc *WC) checkoutAt(ctx context.Context, bid branch.ID, rev branch.RevNum) error {
	baseTxn, err := wc.repo.LoadBranchingState(ctx, rev, wc.infoDir)
	if err != nil {
		return err
	}
	if _, ok := baseTxn.GetBranchByID(bid); !ok {
		return emverrors.New(emverrors.KindBranching, "checkout", "no such branch: "+string(bid))
	}

	maxEID := element.EID(0)
	for _, b := range baseTxn.Branches() {
		for _, eid := range b.Tree().EIDs() {
			if eid > maxEID {
				maxEID = eid
			}
		}
	}
	firstEID := maxEID + 1

	workingTxn := branch.New(branch.Invalid, firstEID)
	for _, b := range baseTxn.Branches() {
		wb, err := workingTxn.OpenBranch(b.Predecessor(), b.BID(), b.RootEID())
		if err != nil {
			return err
		}
		wb.Seed(b.Tree())
	}

	wc.bid = bid
	wc.baseRev = rev
	wc.baseTxn = baseTxn
	wc.workingTxn = workingTxn
	wc.firstEID = firstEID
	return nil
}

// BID returns the WC's current working branch.
func (wc *WC) BID() branch.ID { return wc.bid }

// BaseRevision returns the revision the WC's base txn was checked out at.
func (wc *WC) BaseRevision() branch.RevNum { return wc.baseRev }

// WorkingTxn exposes the scratch txn local edits accumulate in, for the
// command layer to call AlterOne/DeleteOne/OpenBranch/BranchFrom against.
func (wc *WC) WorkingTxn() *branch.Txn { return wc.workingTxn }

// BaseTxn exposes the read-only txn reflecting the WC's checked-out
// revision, for diff/status/log to compare against.
func (wc *WC) BaseTxn() *branch.Txn { return wc.baseTxn }

// Close releases the WC's advisory lock and change watcher, if any.
func (wc *WC) Close() error {
	if wc.watcher != nil {
		wc.watcher.Close()
	}
	if wc.lock != nil {
		return wc.lock.Unlock()
	}
	return nil
}

// WatchExternalChanges starts watching the WC's on-disk directory for
// changes made by another process (an out-of-band commit via a second
// emv invocation, or direct repository surgery) so a long-lived
// interactive session can prompt the user to `update`. changed receives a
// notification for a detected filesystem event when it is ready to
// receive; events arriving while a send would block are dropped. The caller is
// responsible for deciding whether the change is relevant and calling
// Update.
func (wc *WC) WatchExternalChanges(changed chan<- struct{}) error {
	if wc.dir == "" {
		return emverrors.New(emverrors.KindIO, "watch", "WC has no on-disk directory to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return emverrors.Wrap(emverrors.KindIO, "watch", "", err)
	}
	if err := w.Add(wc.dir); err != nil {
		w.Close()
		return emverrors.Wrap(emverrors.KindIO, "watch", wc.dir, err)
	}
	wc.watcher = w
	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				select {
				case changed <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Commit persists every local edit in the working txn as a new revision.
// Following spec: unchanged commits abort rather than complete, leaving
// the head revision untouched and firing no revision callback.
func (wc *WC) Commit(ctx context.Context, revprops map[string]string) (CommitResult, error) {
	if err := wc.workingTxn.SequencePoint(); err != nil {
		return CommitResult{}, err
	}

	commitTxn, err := wc.repo.GetCommitTxn(ctx, revprops, nil, wc.infoDir)
	if err != nil {
		return CommitResult{}, err
	}

	bids := unionBranchIDs(wc.baseTxn, wc.workingTxn)
	changed := false

	for _, bid := range bids {
		if !bid.IsTopLevel() {
			continue // BranchReplay recurses into subbranches from their top-level ancestor
		}
		working, hasWorking := wc.workingTxn.GetBranchByID(bid)
		base, hasBase := wc.baseTxn.GetBranchByID(bid)
		if !hasWorking {
			changed = true // the top-level branch itself was deleted this session
			continue
		}

		commitBranch, exists := commitTxn.GetBranchByID(bid)
		if !exists {
			commitBranch, err = commitTxn.OpenBranch(working.Predecessor(), bid, working.RootEID())
			if err != nil {
				commitTxn.Abort()
				return CommitResult{}, err
			}
		}

		var baseBranch *branch.Branch
		var leftSnapshot *element.Tree
		if hasBase {
			baseBranch = base
			leftSnapshot = base.Tree().Clone()
		} else {
			leftSnapshot = element.New(working.RootEID(), element.NewDirPayload(nil))
		}
		commitBranch.Seed(leftSnapshot)

		if err := replay.BranchReplay(commitTxn, commitBranch, leftSnapshot, baseBranch, working); err != nil {
			commitTxn.Abort()
			return CommitResult{}, err
		}
	}

	// Replicate the working txn's EID allocation count into the commit txn
	// so its own counter advances past the same range.
	n := wc.workingTxn.AllocatedCount(wc.firstEID)
	for i := 0; i < n; i++ {
		if _, err := commitTxn.NewEID(); err != nil {
			commitTxn.Abort()
			return CommitResult{}, err
		}
	}

	if !changed {
		for _, bid := range bids {
			wb, hasW := wc.workingTxn.GetBranchByID(bid)
			bb, hasB := wc.baseTxn.GetBranchByID(bid)
			if hasW != hasB {
				changed = true
				break
			}
			if !hasW {
				continue
			}
			if len(element.Differences(bb.Tree(), wb.Tree())) > 0 {
				changed = true
				break
			}
		}
	}

	if !changed {
		if err := commitTxn.Abort(); err != nil {
			return CommitResult{}, err
		}
		return CommitResult{Changed: false, Revision: wc.baseRev}, nil
	}

	report, err := commitTxn.Complete()
	if err != nil {
		return CommitResult{}, err
	}
	if err := wc.checkoutAt(ctx, wc.bid, report.Revision); err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Changed: true, Revision: report.Revision}, nil
}

// Revert discards every local edit, replaying working -> base within the
// working txn so it ends up equal to the base tree again. Top-level
// branches absent from the base txn are left as they are.
func (wc *WC) Revert(ctx context.Context) error {
	if err := wc.workingTxn.SequencePoint(); err != nil {
		return err
	}
	for _, b := range wc.workingTxn.Branches() {
		if !b.BID().IsTopLevel() {
			continue
		}
		base, ok := wc.baseTxn.GetBranchByID(b.BID())
		if !ok {
			continue
		}
		if err := replay.Revert(wc.workingTxn, b, base); err != nil {
			return err
		}
	}
	return nil
}

// Update re-checks-out the WC's current branch at the repository's latest
// revision, merging any local working edits forward: the same
// yca/src/tgt arrangement Switch uses, with the branch held fixed.
func (wc *WC) Update(ctx context.Context) (*replay.ConflictStorage, error) {
	latest, err := wc.repo.GetLatestRevnum(ctx)
	if err != nil {
		return nil, err
	}
	return wc.Switch(ctx, wc.bid, latest)
}

// Switch completes the current edit by checking out a new base at
// (targetBID, targetRev) and merging the old working state into the new
// base: yca=previous base, src=previous working, tgt=new working. A
// non-empty ConflictStorage leaves the WC partially merged; the caller
// should surface MergeConflicts and let the user revert or continue.
func (wc *WC) Switch(ctx context.Context, targetBID branch.ID, targetRev branch.RevNum) (*replay.ConflictStorage, error) {
	if err := wc.workingTxn.SequencePoint(); err != nil {
		return nil, err
	}

	prevBase := wc.baseTxn
	prevWorking := wc.workingTxn

	if err := wc.checkoutAt(ctx, targetBID, targetRev); err != nil {
		return nil, err
	}

	var aggregate replay.ConflictStorage
	for _, tgt := range wc.workingTxn.Branches() {
		yca, hasYCA := prevBase.GetBranchByID(tgt.BID())
		src, hasSrc := prevWorking.GetBranchByID(tgt.BID())
		if !hasYCA && !hasSrc {
			continue // brand-new branch at the switch target; nothing to merge forward
		}
		ycaTree := element.New(tgt.RootEID(), element.NewDirPayload(nil))
		if hasYCA {
			ycaTree = yca.Tree()
		}
		srcTree := element.New(tgt.RootEID(), element.NewDirPayload(nil))
		if hasSrc {
			srcTree = src.Tree()
		}
		conflicts, err := replay.Merge(tgt, ycaTree, srcTree)
		if err != nil {
			return nil, err
		}
		aggregate.SingleElement = append(aggregate.SingleElement, conflicts.SingleElement...)
		aggregate.NameClash = append(aggregate.NameClash, conflicts.NameClash...)
		aggregate.Orphan = append(aggregate.Orphan, conflicts.Orphan...)
	}

	if !aggregate.Empty() {
		return &aggregate, emverrors.New(emverrors.KindMergeConflicts, "switch", "")
	}
	return &aggregate, nil
}

func unionBranchIDs(a, b *branch.Txn) []branch.ID {
	seen := make(map[branch.ID]bool)
	var out []branch.ID
	for _, br := range a.Branches() {
		if !seen[br.BID()] {
			seen[br.BID()] = true
			out = append(out, br.BID())
		}
	}
	for _, br := range b.Branches() {
		if !seen[br.BID()] {
			seen[br.BID()] = true
			out = append(out, br.BID())
		}
	}
	return out
}
