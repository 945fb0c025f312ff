package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoWCCmd = &cobra.Command{
	Use:   "info-wc",
	Short: "print the working copy's branch, base revision and txn state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("info-wc", args, func() error {
			fmt.Printf("repository:  %s\n", app.ReposURL)
			fmt.Printf("branch:      %s\n", app.WC.BID())
			fmt.Printf("base rev:    %d\n", app.WC.BaseRevision())
			fmt.Printf("working txn: %s\n", app.WC.WorkingTxn().State())
			fmt.Printf("ui mode:     %s\n", app.UIMode)
			return nil
		})
	},
}
