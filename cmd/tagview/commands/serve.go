package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tagview/pkg/server"
)

// serveFlagKeys maps serve flags to the config keys they override.
var serveFlagKeys = map[string]string{
	"transport":     "transport",
	"poll-interval": "poll_interval",
	"listen-host":   "listen_host",
	"time-zone":     "time_zone",
}

var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Run the tagview host against a device",
	Long: `Runs a host that owns the rendered tree. Snapshots come from the device by
polling GET /api or from its /ws stream; edits and clicks made through the host
API are posted back to the device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		for name, key := range serveFlagKeys {
			if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
				if err := config.Set(key, flag.Value.String()); err != nil {
					return err
				}
			}
		}
		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			config.ListenPort = port
		}
		if groups, _ := cmd.Flags().GetStringSlice("group"); len(groups) > 0 {
			config.Groups = groups
		}
		if url := viper.GetString("device"); url != "" {
			config.DeviceURL = url
		}

		serverConfig, err := config.ServerConfig()
		if err != nil {
			return err
		}
		serverConfig.Debug = viper.GetBool("debug")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("tagview host on %s:%d, device %q via %s\n",
			serverConfig.Host, serverConfig.Port, serverConfig.DeviceURL, serverConfig.Transport)
		return server.New(serverConfig).Start(ctx)
	},
}

func init() {
	ServeCmd.Flags().String("transport", "", "snapshot source: poll, ws or none")
	ServeCmd.Flags().String("poll-interval", "", "poll interval (e.g. 2s)")
	ServeCmd.Flags().String("listen-host", "", "address to listen on")
	ServeCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	ServeCmd.Flags().StringSliceP("group", "g", nil, "groups to render (repeatable)")
	ServeCmd.Flags().String("time-zone", "", "IANA time zone for timestamps")
}
