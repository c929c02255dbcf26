package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sinopehome/gt125/internal/config"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or show the configuration file",
}

var (
	initPrintedID string
	initAPIID     string
	initAPIKey    string
	initTimezone  string
	initLatitude  float64
	initLongitude float64
	initForce     bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a new configuration file",
	Example: `  gt125 config init --host 192.168.1.20 --printed-id "0123 4567 89AB CDEF" \
      --timezone America/Montreal --latitude 45.50 --longitude -73.57`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with defaults applied",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	f := configInitCmd.Flags()
	f.StringVar(&initPrintedID, "printed-id", "", "Id printed under the gateway")
	f.StringVar(&initAPIID, "api-id", "", "API id in wire order (16 hex digits)")
	f.StringVar(&initAPIKey, "api-key", "", "API key, if already known")
	f.StringVar(&initTimezone, "timezone", "", "IANA time zone for time and sun reports (default: local)")
	f.Float64Var(&initLatitude, "latitude", 0, "Latitude for sunrise, sunset and outdoor temperature")
	f.Float64Var(&initLongitude, "longitude", 0, "Longitude for sunrise, sunset and outdoor temperature")
	f.BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
	configInitCmd.MarkFlagsMutuallyExclusive("printed-id", "api-id")
	configInitCmd.MarkFlagsRequiredTogether("latitude", "longitude")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())

	path := configLocation()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fail(p, "Configuration exists", fmt.Errorf("%s already exists", path), "Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Gateway.Host = hostFlag
	if timeout > 0 {
		cfg.Gateway.Timeout = timeout
	}
	switch {
	case initPrintedID != "":
		id, err := protocol.PrintedIDToAPIID(initPrintedID)
		if err != nil {
			return fail(p, "Invalid printed id", err)
		}
		cfg.Gateway.APIID = id.String()
	case initAPIID != "":
		cfg.Gateway.APIID = strings.ToUpper(initAPIID)
	}
	cfg.Gateway.APIKey = strings.ToUpper(initAPIKey)
	cfg.Location.Timezone = initTimezone
	if cmd.Flags().Changed("latitude") {
		lat, lon := initLatitude, initLongitude
		cfg.Location.Latitude, cfg.Location.Longitude = &lat, &lon
	}

	if err := cfg.Validate(); err != nil {
		return fail(p, "Invalid configuration", err, "--host and --printed-id (or --api-id) are required")
	}
	if err := cfg.Save(configPath); err != nil {
		return fail(p, "Cannot save configuration", err)
	}

	next := "gt125 ping, then gt125 link --save"
	if cfg.Gateway.APIKey == "" {
		next = "gt125 key --save"
	}
	p.Success("Configuration written",
		ui.D("File", path),
		ui.D("Gateway", cfg.Gateway.Host),
		ui.D("API id", cfg.Gateway.APIID),
		ui.D("Next", next))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := redactedYAML(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// redactedYAML renders cfg with secrets masked.
func redactedYAML(cfg *config.Config) ([]byte, error) {
	shown := *cfg
	if shown.Gateway.APIKey != "" {
		shown.Gateway.APIKey = maskSecret(shown.Gateway.APIKey)
	}
	if shown.Serve.MQTT != nil && shown.Serve.MQTT.Password != "" {
		m := *shown.Serve.MQTT
		m.Password = "********"
		shown.Serve.MQTT = &m
	}
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return nil, fmt.Errorf("failed to render configuration: %w", err)
	}
	return data, nil
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
