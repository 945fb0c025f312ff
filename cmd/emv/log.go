package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/branch"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "print revision log messages, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("log", args, func() error {
			latest, err := app.Store.GetLatestRevnum(app.Ctx)
			if err != nil {
				return err
			}
			limit := logLimit
			if limit <= 0 {
				limit = 10
			}
			stop := int64(latest) - int64(limit) + 1
			if stop < 1 {
				stop = 1
			}
			for rev := latest; rev >= branch.RevNum(stop); rev-- {
				props, err := app.Store.GetRevprops(app.Ctx, rev)
				if err != nil {
					return err
				}
				fmt.Println(heading(app.UIMode, fmt.Sprintf("r%d", rev)))
				fmt.Println(renderLogMessage(app.UIMode, props["log"]))
				fmt.Println()
			}
			return nil
		})
	},
}

func init() {
	logCmd.Flags().IntVar(&logLimit, "limit", 10, "number of revisions to print, newest first")
}
