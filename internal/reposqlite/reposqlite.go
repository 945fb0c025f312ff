// Package reposqlite is the concrete, swappable implementation of
// internal/repo.Repo backed by an embedded SQLite database: one row per
// committed revision, one row per (rev, bid) branch-metadata blob, and
// file content blobs addressed by (rev, bid, eid).
package reposqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/element"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/repo"
)

// Store is the SQLite-backed Repo. It satisfies repo.Repo.
type Store struct {
	db       *sql.DB
	reposURL string
}

// Open opens (creating if absent) the SQLite database at path, applying
// schema and migrations, and returns a Store addressed by reposURL (the
// `-U` argument's resolved target).
func Open(ctx context.Context, path string, reposURL string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "open", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, emverrors.Wrap(emverrors.KindIO, "open", "schema", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, emverrors.Wrap(emverrors.KindIO, "open", "migrations", err)
	}
	return &Store{db: db, reposURL: reposURL}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

var _ repo.Repo = (*Store)(nil)

// GetReposRoot returns the repository's identifying URL.
func (s *Store) GetReposRoot(ctx context.Context) (string, error) {
	return s.reposURL, nil
}

// GetLatestRevnum reports the highest committed revision, or
// branch.Invalid if none exist yet.
func (s *Store) GetLatestRevnum(ctx context.Context) (branch.RevNum, error) {
	var rev sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(rev) FROM revisions`).Scan(&rev)
	if err != nil {
		return branch.Invalid, emverrors.Wrap(emverrors.KindIO, "get_latest_revnum", "", err)
	}
	if !rev.Valid {
		return branch.Invalid, nil
	}
	return branch.RevNum(rev.Int64), nil
}

// GetRevprops returns the revision properties attached to rev, including
// the well-known "log" key.
func (s *Store) GetRevprops(ctx context.Context, rev branch.RevNum) (map[string]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT revprops FROM revisions WHERE rev = ?`, int64(rev)).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, emverrors.New(emverrors.KindNoSuchRevision, "get_revprops", fmt.Sprintf("%d", rev))
	}
	if err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "get_revprops", "", err)
	}
	var props map[string]string
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, emverrors.Wrap(emverrors.KindBadFormat, "get_revprops", "revprops", err)
	}
	return props, nil
}

// ReadFile fetches file content addressed by (bid, eid) as of rev.
func (s *Store) ReadFile(ctx context.Context, rev branch.RevNum, bid branch.ID, eid element.EID) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM element_blobs WHERE rev = ? AND bid = ? AND eid = ?`,
		int64(rev), string(bid), int64(eid),
	).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, emverrors.New(emverrors.KindBranching, "read_file", fmt.Sprintf("no blob for %s/%d@%d", bid, eid, rev))
	}
	if err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "read_file", "", err)
	}
	return content, nil
}

// LoadBranchingState returns a read-only txn reflecting every branch as
// it existed at rev. When infoDir is non-empty, branch metadata is read
// from sibling YAML files in that directory instead of the database;
// those files hold the metadata of the latest commit made with that
// directory, and rev does not select among revisions.
func (s *Store) LoadBranchingState(ctx context.Context, rev branch.RevNum, infoDir string) (*branch.Txn, error) {
	var rows *sql.Rows
	var texts map[branch.ID]string
	var firstEID element.EID = 1

	if infoDir != "" {
		var err error
		texts, err = loadInfoDirBranches(infoDir)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		rows, err = s.db.QueryContext(ctx, `SELECT bid, tree_text FROM branch_metadata WHERE rev = ?`, int64(rev))
		if err != nil {
			return nil, emverrors.Wrap(emverrors.KindIO, "load_branching_state", "", err)
		}
		defer rows.Close()
		texts = make(map[branch.ID]string)
		for rows.Next() {
			var bidStr, text string
			if err := rows.Scan(&bidStr, &text); err != nil {
				return nil, emverrors.Wrap(emverrors.KindIO, "load_branching_state", "scan", err)
			}
			texts[branch.ID(bidStr)] = text
		}
		if err := rows.Err(); err != nil {
			return nil, emverrors.Wrap(emverrors.KindIO, "load_branching_state", "", err)
		}
	}

	type parsed struct {
		id          branch.ID
		rootEID     element.EID
		predecessor *branch.RevBID
		contents    map[element.EID]element.Content
	}
	var branches []parsed
	maxEID := element.EID(0)
	for bidKey, text := range texts {
		id, rootEID, predecessor, contents, err := parseBranch(text)
		if err != nil {
			return nil, err
		}
		if id != bidKey {
			return nil, emverrors.New(emverrors.KindBadFormat, "load_branching_state", "bid mismatch in stored metadata")
		}
		for eid := range contents {
			if eid > maxEID {
				maxEID = eid
			}
		}
		branches = append(branches, parsed{id, rootEID, predecessor, contents})
	}
	if maxEID >= firstEID {
		firstEID = maxEID + 1
	}

	txn := branch.New(rev, firstEID)
	for _, p := range branches {
		b, err := txn.OpenBranch(p.predecessor, p.id, p.rootEID)
		if err != nil {
			return nil, err
		}
		tree := element.New(p.rootEID, element.NewDirPayload(nil))
		for eid, c := range p.contents {
			tree.Set(eid, c)
		}
		b.Seed(tree)
	}
	return txn, nil
}

// GetCommitTxn begins a commit against this store: Complete persists the
// txn's branches and revprops via CommitFn and invokes cb before
// returning.
func (s *Store) GetCommitTxn(ctx context.Context, revprops map[string]string, cb repo.CommitCallback, infoDir string) (*branch.Txn, error) {
	latest, err := s.GetLatestRevnum(ctx)
	if err != nil {
		return nil, err
	}
	nextRev := latest + 1
	if latest == branch.Invalid {
		nextRev = 1
	}
	firstEID, err := s.nextGlobalEID(ctx)
	if err != nil {
		return nil, err
	}

	txn := branch.New(nextRev, firstEID)
	txn.CommitFn = func(t *branch.Txn) (branch.RevNum, error) {
		report, err := s.persist(ctx, t, nextRev, revprops, infoDir)
		if err != nil {
			return branch.Invalid, err
		}
		if cb != nil {
			if err := cb(report); err != nil {
				return branch.Invalid, err
			}
		}
		return nextRev, nil
	}
	txn.AbortFn = func(t *branch.Txn) error { return nil }
	return txn, nil
}

func (s *Store) nextGlobalEID(ctx context.Context) (element.EID, error) {
	var maxEID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(eid) FROM element_blobs`).Scan(&maxEID)
	if err != nil {
		return 1, emverrors.Wrap(emverrors.KindIO, "next_global_eid", "", err)
	}
	if !maxEID.Valid {
		return 1, nil
	}
	return element.EID(maxEID.Int64 + 1), nil
}

func (s *Store) persist(ctx context.Context, t *branch.Txn, rev branch.RevNum, revprops map[string]string, infoDir string) (branch.CompletionReport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return branch.CompletionReport{}, emverrors.Wrap(emverrors.KindIO, "persist", "begin", err)
	}
	defer tx.Rollback()

	raw, err := json.Marshal(revprops)
	if err != nil {
		return branch.CompletionReport{}, emverrors.Wrap(emverrors.KindIO, "persist", "revprops", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO revisions (rev, revprops, info_dir) VALUES (?, ?, ?)`, int64(rev), string(raw), infoDir); err != nil {
		return branch.CompletionReport{}, emverrors.Wrap(emverrors.KindIO, "persist", "revisions", err)
	}

	infoDirTexts := make(map[branch.ID]string)
	for _, b := range t.Branches() {
		text := serializeBranch(b)
		if infoDir != "" {
			infoDirTexts[b.BID()] = text
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO branch_metadata (rev, bid, root_eid, tree_text) VALUES (?, ?, ?, ?)`,
			int64(rev), string(b.BID()), int64(b.RootEID()), text,
		); err != nil {
			return branch.CompletionReport{}, emverrors.Wrap(emverrors.KindIO, "persist", "branch_metadata", err)
		}
		for _, eid := range b.Tree().EIDs() {
			c, _ := b.GetElement(eid)
			if c.Payload.Kind == element.KindFile {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR REPLACE INTO element_blobs (rev, bid, eid, content) VALUES (?, ?, ?, ?)`,
					int64(rev), string(b.BID()), int64(eid), c.Payload.Text,
				); err != nil {
					return branch.CompletionReport{}, emverrors.Wrap(emverrors.KindIO, "persist", "element_blobs", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return branch.CompletionReport{}, emverrors.Wrap(emverrors.KindIO, "persist", "commit", err)
	}
	if infoDir != "" {
		if err := writeInfoDirBranches(infoDir, infoDirTexts); err != nil {
			return branch.CompletionReport{}, err
		}
	}
	return branch.CompletionReport{Revision: rev}, nil
}

// legacyOp is one row of a legacy revision's tree-delta, as recorded in
// legacy_ops by an import step upstream of migrate.
type legacyOp struct {
	op      string
	path    string
	content []byte
}

// ReplayRange drives startedCb/finishedCb across [from, to], feeding each
// revision's legacy_ops rows through the repo.LegacyEditor started for
// that revision.
func (s *Store) ReplayRange(ctx context.Context, from, to branch.RevNum, startedCb func(branch.RevNum) (repo.LegacyEditor, error), finishedCb func(branch.RevNum) error) error {
	for rev := from; rev <= to; rev++ {
		ops, err := s.legacyOpsForRevision(ctx, rev)
		if err != nil {
			return err
		}
		editor, err := startedCb(rev)
		if err != nil {
			return err
		}
		if err := editor.OpenRoot(); err != nil {
			return err
		}
		for _, o := range ops {
			if err := applyLegacyOp(editor, o); err != nil {
				return err
			}
		}
		if err := editor.CloseEdit(); err != nil {
			return err
		}
		if finishedCb != nil {
			if err := finishedCb(rev); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyLegacyOp(editor repo.LegacyEditor, o legacyOp) error {
	switch o.op {
	case "add_file":
		return editor.AddFile(o.path, o.content)
	case "add_dir":
		return editor.AddDir(o.path)
	case "open_file":
		return editor.OpenFile(o.path, o.content)
	case "delete":
		return editor.DeleteEntry(o.path)
	default:
		return emverrors.New(emverrors.KindBadFormat, "replay_range", "unknown legacy op: "+o.op)
	}
}

func (s *Store) legacyOpsForRevision(ctx context.Context, rev branch.RevNum) ([]legacyOp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT op, path, content FROM legacy_ops WHERE rev = ? ORDER BY seq`, int64(rev))
	if err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "replay_range", "", err)
	}
	defer rows.Close()
	var ops []legacyOp
	for rows.Next() {
		var o legacyOp
		var content sql.NullString
		if err := rows.Scan(&o.op, &o.path, &content); err != nil {
			return nil, emverrors.Wrap(emverrors.KindIO, "replay_range", "scan", err)
		}
		if content.Valid {
			o.content = []byte(content.String)
		}
		ops = append(ops, o)
	}
	if err := rows.Err(); err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "replay_range", "", err)
	}
	return ops, nil
}

// InsertLegacyOp records one tree-delta operation for rev, for use by the
// import step that seeds legacy_ops ahead of a ReplayRange pass (and by
// tests constructing fixtures).
func (s *Store) InsertLegacyOp(ctx context.Context, rev branch.RevNum, seq int, op, path string, content []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO legacy_ops (rev, seq, op, path, content) VALUES (?, ?, ?, ?, ?)`,
		int64(rev), seq, op, path, content)
	if err != nil {
		return emverrors.Wrap(emverrors.KindIO, "insert_legacy_op", "", err)
	}
	return nil
}
