package reposqlite

const schema = `
CREATE TABLE IF NOT EXISTS revisions (
    rev INTEGER PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    revprops TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS branch_metadata (
    rev INTEGER NOT NULL,
    bid TEXT NOT NULL,
    predecessor_rev INTEGER,
    predecessor_bid TEXT,
    root_eid INTEGER NOT NULL,
    tree_text TEXT NOT NULL,
    PRIMARY KEY (rev, bid),
    FOREIGN KEY (rev) REFERENCES revisions(rev)
);

CREATE TABLE IF NOT EXISTS element_blobs (
    rev INTEGER NOT NULL,
    bid TEXT NOT NULL,
    eid INTEGER NOT NULL,
    content BLOB NOT NULL,
    PRIMARY KEY (rev, bid, eid)
);

CREATE INDEX IF NOT EXISTS idx_branch_metadata_rev ON branch_metadata(rev);
CREATE INDEX IF NOT EXISTS idx_element_blobs_rev_bid ON element_blobs(rev, bid);

-- legacy_ops holds the pre-move-tracking tree-delta for revisions
-- imported from a repository that predates element identity, replayed by
-- internal/migrate via ReplayRange.
CREATE TABLE IF NOT EXISTS legacy_ops (
    rev INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    op TEXT NOT NULL,
    path TEXT NOT NULL,
    content BLOB,
    PRIMARY KEY (rev, seq)
);
`
