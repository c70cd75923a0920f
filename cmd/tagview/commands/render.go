package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	tagview "tagview/engine/core"
	"tagview/pkg/client"
)

// loadSnapshot reads a snapshot document; .yaml and .yml files are YAML,
// everything else JSON. "-" reads JSON from stdin.
func loadSnapshot(path string, stdin io.Reader) (*tagview.Snapshot, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var s tagview.Snapshot
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &s, nil
}

// renderSnapshot builds a fresh tree from s for each group in order.
func renderSnapshot(s *tagview.Snapshot, groups []string, codec tagview.Codec, commandGroups []string) (*tagview.Tree, tagview.RenderStats) {
	opts := []tagview.Option{tagview.WithCodec(codec)}
	if len(commandGroups) > 0 {
		opts = append(opts, tagview.WithCommandGroups(commandGroups...))
	}
	r := tagview.NewReconciler(opts...)
	var total tagview.RenderStats
	for _, group := range groups {
		stats := r.Render(s, group)
		total.ElementsCreated += stats.ElementsCreated
		total.TagsCreated += stats.TagsCreated
		total.TagsSkipped += stats.TagsSkipped
		total.ValuesApplied += stats.ValuesApplied
		total.ValuesRejected += stats.ValuesRejected
	}
	return r.Tree(), total
}

var RenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a snapshot once and print the widget tree",
	Long: `Fetches a snapshot from the device (or reads --file) and prints the widgets
the host would build for it, without starting a host.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		codec, err := config.Codec()
		if err != nil {
			return err
		}

		var snap *tagview.Snapshot
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			snap, err = loadSnapshot(file, cmd.InOrStdin())
		} else {
			var url string
			if url, err = deviceURL(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			snap, err = client.NewClient(url).GetSnapshot(ctx)
		}
		if err != nil {
			return err
		}

		groups, _ := cmd.Flags().GetStringSlice("group")
		if len(groups) == 0 {
			groups = config.Groups
		}
		tree, stats := renderSnapshot(snap, groups, codec, config.CommandGroups)
		DebugLog("[RENDER] %s\n", stats)

		format, _ := cmd.Flags().GetString("output")
		view := tree.View()
		return writeOutput(cmd.OutOrStdout(), format, view, func(w io.Writer) { printTree(w, view) })
	},
}

func init() {
	RenderCmd.Flags().StringP("file", "f", "", "snapshot file (.json, .yaml) or - for stdin")
	RenderCmd.Flags().StringSliceP("group", "g", nil, "groups to render (default from config)")
	RenderCmd.Flags().StringP("output", "o", "table", "output format: table, json, yaml")
}
