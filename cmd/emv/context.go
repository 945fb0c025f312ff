// Package main is the emv CLI driver: the thin command layer that turns
// subcommands and arguments into calls against internal/workspace, per
// spec.md's external-interfaces boundary. It owns nothing the core
// engine needs to know about: presentation mode, interactive-vs-batch
// detection, and argument parsing all live here.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/untoldecay/elembranch/internal/audit"
	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/config"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/reposqlite"
	"github.com/untoldecay/elembranch/internal/workspace"
)

// App consolidates the CLI's runtime state in one struct rather than
// scattering globals across every command file.
type App struct {
	Ctx context.Context

	Cfg     *config.Loaded
	Store   *reposqlite.Store
	WC      *workspace.WC
	Audit   *audit.Logger
	WCDir   string
	InfoDir string

	// Flags resolved once in the root command's PersistentPreRunE.
	ReposURL    string
	BranchID    branch.ID
	RevSpec     string
	UIMode      config.UIMode
	Interactive bool
}

// app is the single CommandContext-style global every subcommand reads
// from, populated once per invocation by rootCmd's PersistentPreRunE.
var app *App

// initApp wires config, the sqlite-backed Repo and the WC lock/audit
// trail, mirroring the teacher's initCommandContext.
func initApp(ctx context.Context, reposURL string, bid branch.ID, revFlag string, uiMode string, dbPath string) (*App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "init", "getwd", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if reposURL != "" {
		cfg.Repo.ReposURL = reposURL
	}
	if cfg.Repo.ReposURL == "" {
		return nil, emverrors.New(emverrors.KindIncorrectParams, "init", "-U <url> is required")
	}
	if uiMode != "" {
		cfg.Presentation.UIMode = config.UIMode(uiMode)
	}

	if dbPath == "" {
		dbPath = filepath.Join(cwd, ".emv", "emv.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "init", dbPath, err)
	}
	store, err := reposqlite.Open(ctx, dbPath, cfg.Repo.ReposURL)
	if err != nil {
		return nil, err
	}

	wcDir := filepath.Join(cwd, ".emv")
	auditLogger, err := audit.Open(wcDir)
	if err != nil {
		store.Close()
		return nil, emverrors.Wrap(emverrors.KindIO, "init", "audit", err)
	}

	a := &App{
		Ctx:      ctx,
		Cfg:      cfg,
		Store:    store,
		Audit:    auditLogger,
		WCDir:    wcDir,
		InfoDir:  cfg.Repo.InfoDir,
		ReposURL: cfg.Repo.ReposURL,
		BranchID: bid,
		RevSpec:  revFlag,
		UIMode:   cfg.Presentation.UIMode,
	}

	rev := branch.Invalid
	if revFlag != "" {
		rev, err = parseRevArg(ctx, store, revFlag)
		if err != nil {
			auditLogger.Close()
			store.Close()
			return nil, err
		}
	}
	if bid == "" {
		bid = branch.TopLevel(0)
	}
	wc, err := workspace.Checkout(ctx, store, bid, rev, a.InfoDir, wcDir)
	if err != nil {
		auditLogger.Close()
		store.Close()
		return nil, err
	}
	a.WC = wc
	a.BranchID = bid
	return a, nil
}

// parseRevArg resolves a -r argument (a number, or head; empty means head)
// to a concrete RevNum against the store's current head. base and
// committed are not accepted here and fail with IncorrectParams.
func parseRevArg(ctx context.Context, store *reposqlite.Store, s string) (branch.RevNum, error) {
	switch s {
	case "", "head":
		return store.GetLatestRevnum(ctx)
	default:
		var n int64
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return branch.Invalid, emverrors.New(emverrors.KindIncorrectParams, "parse_rev", s)
		}
		return branch.RevNum(n), nil
	}
}

// Close releases the WC lock, audit log and database handle. Safe to
// call on a partially-initialized App.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.WC != nil {
		a.WC.Close()
	}
	if a.Audit != nil {
		a.Audit.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}

// logCommand records a dispatch outcome to the audit trail, swallowing
// any logging error (the audit trail is best-effort; it must never turn
// a successful command into a failing one).
func (a *App) logCommand(name string, args []string, cmdErr error) {
	if a == nil || a.Audit == nil {
		return
	}
	rev := int64(0)
	bid := ""
	if a.WC != nil {
		rev = int64(a.WC.BaseRevision())
		bid = string(a.WC.BID())
	}
	if cmdErr != nil {
		a.Audit.CommandError(name, args, "", bid, cmdErr)
		return
	}
	a.Audit.Command(name, args, "", bid, rev)
}
