package main

import (
	"fmt"
	"os"
	"strings"

	"tagview/cmd/tagview/commands"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	device  string
	host    string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "tagview",
	Short: "tagview - render and drive a device's tag model",
	Long: `tagview turns the element/tag snapshots a controller publishes into a tree
of typed widgets, keeps that tree in step with later snapshots, and turns
edits and clicks back into write requests for the device.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("debug") {
			commands.EnableDebug()
		}
	},
}

func main() {
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.RenderCmd)
	rootCmd.AddCommand(commands.TreeCmd)
	rootCmd.AddCommand(commands.SetCmd)
	rootCmd.AddCommand(commands.EditCmd)
	rootCmd.AddCommand(commands.ClickCmd)
	rootCmd.AddCommand(commands.LogsCmd)
	rootCmd.AddCommand(commands.SimulateCmd)
	rootCmd.AddCommand(commands.ConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tagview.yaml)")
	rootCmd.PersistentFlags().StringVar(&device, "device", "", "device base URL (overrides device_url in ~/.tagview/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "tagview host URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".tagview")
	}

	viper.SetEnvPrefix("TAGVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		commands.DebugLog("Using config file: %s\n", viper.ConfigFileUsed())
	}
}
