package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "persist every local edit as a new revision",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("commit", args, func() error {
			revprops, err := resolveRevprops()
			if err != nil {
				return err
			}
			result, err := app.WC.Commit(app.Ctx, revprops)
			if err != nil {
				return err
			}
			if !result.Changed {
				fmt.Println("nothing to commit")
				return nil
			}
			fmt.Printf("committed r%d\n", result.Revision)
			return nil
		})
	},
}
