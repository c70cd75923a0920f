package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	tagview "tagview/engine/core"
	"tagview/pkg/server"
)

// TagviewConfig is the persistent CLI configuration in ~/.tagview/config.yaml.
type TagviewConfig struct {
	DeviceURL     string   `yaml:"device_url"`
	Transport     string   `yaml:"transport"`     // poll, ws, none
	PollInterval  string   `yaml:"poll_interval"` // Go duration
	ListenHost    string   `yaml:"listen_host"`
	ListenPort    int      `yaml:"listen_port"`
	Groups        []string `yaml:"groups"`
	CommandGroups []string `yaml:"command_groups,omitempty"`
	TimeZone      string   `yaml:"time_zone"` // IANA name; empty means local
}

// DefaultConfig returns the default configuration
func DefaultConfig() *TagviewConfig {
	return &TagviewConfig{
		Transport:    server.TransportPoll,
		PollInterval: "2s",
		ListenHost:   "localhost",
		ListenPort:   8080,
		Groups:       append([]string(nil), server.DefaultGroups...),
	}
}

var configFilePath string

// SetConfigPath sets a custom config file path
func SetConfigPath(path string) {
	configFilePath = path
}

func getConfigPath() string {
	if configFilePath != "" {
		return configFilePath
	}
	return filepath.Join(getTagviewDir(), "config.yaml")
}

// LoadConfig loads configuration from file or returns default
func LoadConfig() (*TagviewConfig, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// Save writes the configuration file
func (c *TagviewConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(getConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Set assigns one configuration key from its text form.
func (c *TagviewConfig) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "device_url":
		c.DeviceURL = strings.TrimRight(value, "/")
	case "transport":
		switch value {
		case server.TransportPoll, server.TransportWS, server.TransportNone:
			c.Transport = value
		default:
			return fmt.Errorf("transport must be %s, %s or %s", server.TransportPoll, server.TransportWS, server.TransportNone)
		}
	case "poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid poll interval %q", value)
		}
		c.PollInterval = value
	case "listen_host":
		c.ListenHost = value
	case "listen_port":
		port, err := strconv.Atoi(value)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", value)
		}
		c.ListenPort = port
	case "groups":
		c.Groups = splitList(value)
	case "command_groups":
		c.CommandGroups = splitList(value)
	case "time_zone":
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("invalid time zone %q: %w", value, err)
		}
		c.TimeZone = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// ServerConfig turns the file configuration into host settings.
func (c *TagviewConfig) ServerConfig() (server.Config, error) {
	interval, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return server.Config{}, fmt.Errorf("invalid poll interval %q", c.PollInterval)
	}
	loc := time.Local
	if c.TimeZone != "" {
		if loc, err = time.LoadLocation(c.TimeZone); err != nil {
			return server.Config{}, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
		}
	}
	return server.Config{
		Host:          c.ListenHost,
		Port:          c.ListenPort,
		DeviceURL:     c.DeviceURL,
		Transport:     c.Transport,
		PollInterval:  interval,
		Groups:        c.Groups,
		CommandGroups: c.CommandGroups,
		Location:      loc,
	}, nil
}

// Codec returns the codec matching the configured time zone.
func (c *TagviewConfig) Codec() (tagview.Codec, error) {
	if c.TimeZone == "" {
		return tagview.Codec{}, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return tagview.Codec{}, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return tagview.Codec{Location: loc}, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var ConfigCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg"},
	Short:   "Manage tagview configuration",
	Long:    `Configure the device URL, snapshot transport, rendered groups and host address.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration value",
	Long: `Keys: device_url, transport (poll|ws|none), poll_interval, listen_host,
listen_port, groups (comma separated), command_groups, time_zone.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			fmt.Printf("Warning: Failed to load config, using defaults: %v\n", err)
			config = DefaultConfig()
		}
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(); err != nil {
			return err
		}
		fmt.Println("Configuration saved to", getConfigPath())
		displayConfig(cmd.OutOrStdout(), config)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:     "get",
	Aliases: []string{"g", "show"},
	Short:   "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		displayConfig(cmd.OutOrStdout(), config)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:     "reset",
	Aliases: []string{"r"},
	Short:   "Reset configuration to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		config := DefaultConfig()
		if err := config.Save(); err != nil {
			return err
		}
		fmt.Println("Configuration reset to defaults")
		displayConfig(cmd.OutOrStdout(), config)
		return nil
	},
}

func displayConfig(out io.Writer, config *TagviewConfig) {
	tz := config.TimeZone
	if tz == "" {
		tz = "local"
	}
	device := config.DeviceURL
	if device == "" {
		device = "(none)"
	}
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "----------------------------------------------")
	fmt.Fprintf(out, "Device:          %s\n", device)
	fmt.Fprintf(out, "Transport:       %s (poll every %s)\n", config.Transport, config.PollInterval)
	fmt.Fprintf(out, "Listen:          %s:%d\n", config.ListenHost, config.ListenPort)
	fmt.Fprintf(out, "Groups:          %s\n", strings.Join(config.Groups, ", "))
	if len(config.CommandGroups) > 0 {
		fmt.Fprintf(out, "Command groups:  %s\n", strings.Join(config.CommandGroups, ", "))
	}
	fmt.Fprintf(out, "Time zone:       %s\n", tz)
	fmt.Fprintln(out, "----------------------------------------------")
	fmt.Fprintf(out, "Config file: %s\n", getConfigPath())
}

func init() {
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configResetCmd)
}
