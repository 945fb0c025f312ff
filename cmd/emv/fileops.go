package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/elembranch/internal/element"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "create a new directory element at PATH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("mkdir", args, func() error {
			b, _, ref, err := requireAbsent(args[0])
			if err != nil {
				return err
			}
			parentEID, name, err := splitParentName(ref, b)
			if err != nil {
				return err
			}
			eid, err := app.WC.WorkingTxn().NewEID()
			if err != nil {
				return err
			}
			return b.AlterOne(eid, parentEID, name, element.NewDirPayload(nil))
		})
	},
}

var putFromFile string

var putCmd = &cobra.Command{
	Use:   "put PATH",
	Short: "create or replace a file element's content at PATH",
	Long:  "Reads the new file content from --from, or from stdin if --from is omitted.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("put", args, func() error {
			var content []byte
			var err error
			if putFromFile != "" && putFromFile != "-" {
				content, err = os.ReadFile(putFromFile)
			} else {
				content, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return err
			}

			b, eid, ref, err := resolveArg(args[0])
			if err != nil {
				return err
			}
			if eid == element.NoParent {
				parentEID, name, err := splitParentName(ref, b)
				if err != nil {
					return err
				}
				eid, err = app.WC.WorkingTxn().NewEID()
				if err != nil {
					return err
				}
				return b.AlterOne(eid, parentEID, name, element.NewFilePayload(nil, content))
			}
			existing, _ := b.GetElement(eid)
			return b.AlterOne(eid, existing.Parent, existing.Name, element.NewFilePayload(existing.Payload.Props, content))
		})
	},
}

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "print a file element's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapCommand("cat", args, func() error {
			b, eid, ref, err := resolveArg(args[0])
			if err != nil {
				return err
			}
			if eid == element.NoParent {
				return fatalf("no such element: %s", args[0])
			}
			if ref.Rev.IsSet() {
				rev, rerr := app.WC.FindElRevID(app.Ctx, ref)
				if rerr != nil {
					return rerr
				}
				data, rerr := app.Store.ReadFile(app.Ctx, rev.Rev, b.BID(), eid)
				if rerr != nil {
					return rerr
				}
				_, err = os.Stdout.Write(data)
				return err
			}
			c, _ := b.GetElement(eid)
			if c.Payload.Kind != element.KindFile {
				return fatalf("not a file: %s", args[0])
			}
			_, err = os.Stdout.Write(c.Payload.Text)
			return err
		})
	},
}

func init() {
	putCmd.Flags().StringVar(&putFromFile, "from", "", "read content from this file instead of stdin")
}
