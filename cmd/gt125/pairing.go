package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sinopehome/gt125/internal/config"
	"github.com/sinopehome/gt125/internal/gateway"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/ui"
)

func init() {
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(linkCmd)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the gateway answers",
	Long: `Send the protocol ping to the gateway. No API key is needed, so this
is the first thing to try when setting up.`,
	Example: `  gt125 ping --host 192.168.1.20`,
	Args:    cobra.NoArgs,
	RunE:    runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())

	cfg, err := loadOrNewConfig()
	if err != nil {
		return fail(p, "Cannot load configuration", err)
	}
	if cfg.Gateway.Host == "" {
		return fail(p, "No gateway", errors.New("no gateway host"), "Pass --host or run 'gt125 config init'")
	}

	session := gateway.NewSession(gateway.Options{Host: cfg.Gateway.Host, Port: cfg.Gateway.Port, Timeout: cfg.Gateway.Timeout})
	p.Header("Ping", "gt125 ping", ui.D("Gateway", session.Address()))

	start := time.Now()
	if err := session.Ping(cmd.Context()); err != nil {
		return fail(p, "Gateway did not answer", err)
	}
	p.Success("Gateway is reachable",
		ui.D("Gateway", session.Address()),
		ui.D("Round trip", time.Since(start).Round(time.Millisecond)))
	return nil
}

var (
	printedID string
	apiIDFlag string
	saveKey   bool
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Obtain the API key from the gateway",
	Long: `Request the API key that pairs with the gateway's API id.

The API id is the id printed under the gateway with its bytes reversed;
pass the printed form with --printed-id and it is converted for you.
After the request is sent, press the "web" button on the GT125. The
gateway answers only then.`,
	Example: `  # Use the id printed under the gateway and store the result
  gt125 key --host 192.168.1.20 --printed-id "0123 4567 89AB CDEF" --save

  # Use an id already in wire order
  gt125 key --api-id EFCDAB8967452301`,
	Args: cobra.NoArgs,
	RunE: runKey,
}

func init() {
	keyCmd.Flags().StringVar(&printedID, "printed-id", "", "Id printed under the gateway")
	keyCmd.Flags().StringVar(&apiIDFlag, "api-id", "", "API id in wire order (16 hex digits)")
	keyCmd.Flags().BoolVar(&saveKey, "save", false, "Store host, API id and key in the configuration file")
	keyCmd.MarkFlagsMutuallyExclusive("printed-id", "api-id")
}

// resolveAPIID picks the API id from the flags, falling back to cfg.
func resolveAPIID(cfg *config.Config) (protocol.Credential, error) {
	switch {
	case printedID != "":
		return protocol.PrintedIDToAPIID(printedID)
	case apiIDFlag != "":
		return protocol.ParseCredential(apiIDFlag)
	case cfg.Gateway.APIID != "":
		return protocol.ParseCredential(cfg.Gateway.APIID)
	}
	return protocol.Credential{}, errors.New("no API id: pass --printed-id or --api-id")
}

func runKey(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())

	cfg, err := loadOrNewConfig()
	if err != nil {
		return fail(p, "Cannot load configuration", err)
	}
	if cfg.Gateway.Host == "" {
		return fail(p, "No gateway", errors.New("no gateway host"), "Pass --host or run 'gt125 config init'")
	}
	apiID, err := resolveAPIID(cfg)
	if err != nil {
		return fail(p, "Invalid API id", err)
	}

	session := gateway.NewSession(gateway.Options{Host: cfg.Gateway.Host, Port: cfg.Gateway.Port, Timeout: cfg.Gateway.Timeout})
	p.Header("API key", "gt125 key",
		ui.D("Gateway", session.Address()),
		ui.D("API id", apiID))

	var key protocol.Credential
	err = ui.Wait(cmd.Context(), p.Writer(), "Waiting for the gateway", `Press the "web" button on the GT125 now`,
		func(ctx context.Context) error {
			var err error
			key, err = session.RequestAPIKey(ctx, apiID)
			return err
		})
	if err != nil {
		return fail(p, "No API key received", err, `The "web" button must be pressed within `+gateway.DefaultButtonWait.String())
	}

	details := []ui.Detail{ui.D("API id", apiID), ui.D("API key", key)}
	if saveKey {
		cfg.Gateway.APIID = apiID.String()
		cfg.Gateway.APIKey = key.String()
		if err := cfg.Save(configPath); err != nil {
			return fail(p, "Cannot save configuration", err)
		}
		details = append(details, ui.D("Saved to", configLocation()))
	}
	p.Success("Gateway paired", details...)
	return nil
}

var (
	linkName string
	linkType int
	saveLink bool
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link a new device to the gateway",
	Long: `Wait for a device to be linked and print its id.

Press the gateway's "web" button, then both buttons of the device. The
gateway reports the new device id, which is added to the configuration
with --save.`,
	Example: `  gt125 link --save --name hall --type 10`,
	Args:    cobra.NoArgs,
	RunE:    runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkName, "name", "", "Name to store with the device")
	linkCmd.Flags().IntVar(&linkType, "type", 0, "Device type (10, 20, 21 thermostat; 102, 112 light; 120 switch)")
	linkCmd.Flags().BoolVar(&saveLink, "save", false, "Add the device to the configuration file")
}

func runLink(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())

	if saveLink {
		if _, err := protocol.CapabilityForType(linkType); err != nil {
			return fail(p, "Invalid device type", fmt.Errorf("--type %d: %w", linkType, err))
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fail(p, "Cannot load configuration", err)
	}
	storedKey := cfg.Gateway.APIKey
	session, err := openSession(cfg)
	if err != nil {
		return fail(p, "Cannot open session", err)
	}
	defer session.Close()

	p.Header("Link device", "gt125 link", ui.D("Gateway", session.Address()))

	var id protocol.DeviceID
	err = ui.Wait(cmd.Context(), p.Writer(), "Waiting for a device", `Press the gateway's "web" button, then both buttons on the device`,
		func(ctx context.Context) error {
			var err error
			id, err = session.WaitForDeviceLink(ctx)
			return err
		})
	if err != nil {
		return fail(p, "No device linked", err)
	}

	details := []ui.Detail{ui.D("Device id", id)}
	if saveLink {
		cfg.Gateway.APIKey = storedKey // a prompted key is never written
		cfg.Devices = append(cfg.Devices, config.DeviceEntry{ID: id.String(), Name: linkName, Type: linkType})
		if err := cfg.Validate(); err != nil {
			return fail(p, "Cannot add device", err)
		}
		if err := cfg.Save(configPath); err != nil {
			return fail(p, "Cannot save configuration", err)
		}
		details = append(details, ui.D("Saved to", configLocation()))
	}
	p.Success("Device linked", details...)
	return nil
}

func configLocation() string {
	if configPath != "" {
		return configPath
	}
	if path, err := config.GetConfigPath(); err == nil {
		return path
	}
	return "default location"
}
