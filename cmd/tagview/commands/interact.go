package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	tagview "tagview/engine/core"
	"tagview/pkg/client"
)

var SetCmd = &cobra.Command{
	Use:   "set <element> <group> <tag> <value>",
	Short: "Write one tag on the device directly",
	Long: `Posts a single-tag mutation to the device, bypassing any host. Values
true/false/on/off are booleans, numbers are numbers, anything else is text.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := deviceURL()
		if err != nil {
			return err
		}
		element, group, tag := args[0], tagview.DefaultGroupAliases.Canonical(args[1]), args[2]
		m := tagview.NewMutation(element, group, tag, parseValue(args[3]))

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		id, err := client.NewClient(url).SendMutation(ctx, m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s/%s/%s (request %s)\n", element, group, tag, id)
		return nil
	},
}

var EditCmd = &cobra.Command{
	Use:   "edit <element> <tag> [display]",
	Short: "Edit a tag through a running host",
	Long: `Types display into the tag's widget (if given) and commits it. The host
decodes the widget and queues the resulting write for the device.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var display *string
		if len(args) == 3 {
			display = &args[2]
		}
		resp, err := hostClient().Edit(args[0], args[1], display)
		if err != nil {
			return err
		}
		printInteraction(cmd, resp)
		return nil
	},
}

var ClickCmd = &cobra.Command{
	Use:   "click <element> <tag>",
	Short: "Press a toggle or command button through a running host",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := hostClient().Click(args[0], args[1])
		if err != nil {
			return err
		}
		printInteraction(cmd, resp)
		return nil
	},
}

func printInteraction(cmd *cobra.Command, resp *client.InteractionResponse) {
	out := cmd.OutOrStdout()
	if resp.Mutation == nil {
		fmt.Fprintf(out, "%s: nothing to send (display %q)\n", resp.Tag.Name, resp.Tag.Display)
		return
	}
	for element, groups := range resp.Mutation.Elements {
		for group, values := range groups {
			for _, tv := range values {
				fmt.Fprintf(out, "queued %s/%s/%s = %v (request %s)\n", element, group, tv.Name, tv.Value, resp.RequestID)
			}
		}
	}
}
