package commands

import (
	"io"

	"github.com/spf13/cobra"

	tagview "tagview/engine/core"
)

var TreeCmd = &cobra.Command{
	Use:   "tree [element]",
	Short: "Show the tree of a running host",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := hostClient()
		format, _ := cmd.Flags().GetString("output")
		if len(args) == 1 {
			el, err := c.Element(args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, el, func(w io.Writer) {
				printTree(w, []tagview.ElementView{*el})
			})
		}
		tree, err := c.Tree()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), format, tree, func(w io.Writer) { printTree(w, tree) })
	},
}

func init() {
	TreeCmd.Flags().StringP("output", "o", "table", "output format: table, json, yaml")
}
