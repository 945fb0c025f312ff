package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/branch"
	"github.com/untoldecay/elembranch/internal/emverrors"
	"github.com/untoldecay/elembranch/internal/migrate"
)

var migrateMovesFile string

var migrateCmd = &cobra.Command{
	Use:   "migrate NEWBID FROM TO",
	Short: "replay a legacy pre-move-tracking revision range into a new branch",
	Long:  "Drives the repository's legacy delta replay for revisions [FROM, TO] into a brand-new top-level branch NEWBID, consulting --moves (a \"rev,oldpath,newpath\" CSV) to recover element identity across renames the legacy format didn't record natively.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("migrate", args, func() error {
			newBID := branch.ID(args[0])
			from, err := parseRevArg(app.Ctx, app.Store, args[1])
			if err != nil {
				return err
			}
			to, err := parseRevArg(app.Ctx, app.Store, args[2])
			if err != nil {
				return err
			}

			txn := app.WC.WorkingTxn()
			if _, exists := txn.GetBranchByID(newBID); exists {
				return fatalf("branch already open: %s", newBID)
			}
			rootEID, err := txn.NewEID()
			if err != nil {
				return err
			}
			target, err := txn.OpenBranch(nil, newBID, rootEID)
			if err != nil {
				return err
			}

			var moveTable *migrate.MoveTable
			if migrateMovesFile != "" {
				entries, err := readMoveTable(migrateMovesFile)
				if err != nil {
					return err
				}
				moveTable = migrate.NewMoveTable(entries)
			}

			if err := migrate.Run(app.Ctx, app.Store, txn, target, from, to, moveTable); err != nil {
				return err
			}
			fmt.Printf("migrated r%d..r%d into %s\n", from, to, newBID)
			return nil
		})
	},
}

// readMoveTable parses a simple "rev,oldpath,newpath" CSV: one legacy
// move per line, no header.
func readMoveTable(path string) ([]migrate.MoveInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "migrate", path, err)
	}
	defer f.Close()

	var entries []migrate.MoveInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, ",", 3)
		if len(fields) != 3 {
			return nil, emverrors.New(emverrors.KindBadFormat, "migrate", "moves line: "+line)
		}
		rev, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, emverrors.Wrap(emverrors.KindBadFormat, "migrate", line, err)
		}
		entries = append(entries, migrate.MoveInfo{
			Rev:     branch.RevNum(rev),
			OldPath: strings.TrimSpace(fields[1]),
			NewPath: strings.TrimSpace(fields[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, emverrors.Wrap(emverrors.KindIO, "migrate", path, err)
	}
	return entries, nil
}

func init() {
	migrateCmd.Flags().StringVar(&migrateMovesFile, "moves", "", "path to a rev,oldpath,newpath CSV of legacy moves")
}
