package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	tagview "tagview/engine/core"
	"tagview/pkg/client"
	"tagview/pkg/server"
)

// getTagviewDir returns ~/.tagview and creates it if needed
func getTagviewDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tagview"
	}
	dir := filepath.Join(home, ".tagview")
	os.MkdirAll(dir, 0755)
	return dir
}

// EnableDebug switches on debug logging in every package.
func EnableDebug() {
	tagview.DebugLoggingEnabled = true
	server.GlobalDebugEnabled = true
}

func DebugLog(format string, v ...any) {
	tagview.DebugLog(format, v...)
}

func hostClient() *client.Client {
	return client.NewClient(strings.TrimRight(viper.GetString("host"), "/"))
}

// deviceURL resolves the device from --device / TAGVIEW_DEVICE, then the config file.
func deviceURL() (string, error) {
	if url := viper.GetString("device"); url != "" {
		return strings.TrimRight(url, "/"), nil
	}
	config, err := LoadConfig()
	if err != nil {
		return "", err
	}
	if config.DeviceURL == "" {
		return "", fmt.Errorf("no device configured: pass --device or run 'tagview config set device_url <url>'")
	}
	return config.DeviceURL, nil
}

// parseValue reads a command-line value the way the device expects it typed:
// true/false, numbers, and everything else as text.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "on":
		return true
	case "false", "off":
		return false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

// writeOutput prints v in the requested format; table output falls back to fn.
func writeOutput(w io.Writer, format string, v any, table func(io.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "", "table":
		table(w)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func printTree(out io.Writer, elements []tagview.ElementView) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, el := range elements {
		if el.Comment != "" {
			fmt.Fprintf(w, "%s (%s)\n", el.Name, el.Comment)
		} else {
			fmt.Fprintf(w, "%s\n", el.Name)
		}
		for _, tag := range el.Tags {
			display := tag.Display
			if tag.Unit != "" {
				display += " " + tag.Unit
			}
			var flags []string
			if tag.Command {
				flags = append(flags, "cmd")
			}
			if tag.Disabled {
				flags = append(flags, "ro")
			}
			if tag.Pending {
				flags = append(flags, "editing")
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", tag.Label, tag.Group, tag.Kind, display, strings.Join(flags, ","))
		}
	}
	w.Flush()
}

var LogsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"l"},
	Short:   "View the host's API log",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := hostClient()
		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			return c.ClearLogs()
		}
		resp, err := c.GetLogs()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "Timestamp\tMethod\tEndpoint\tResource\tStatus\tDetails")
		for _, log := range resp.Logs {
			details := log.Details
			if log.ErrorMsg != "" {
				details = log.ErrorMsg
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				log.Timestamp.Format("15:04:05"),
				log.Method,
				log.Endpoint,
				log.Resource,
				fmt.Sprintf("%s (%d)", log.Status, log.StatusCode),
				details,
			)
		}
		return w.Flush()
	},
}

func init() {
	LogsCmd.Flags().Bool("clear", false, "clear the log instead of printing it")
}
