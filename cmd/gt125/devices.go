package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sinopehome/gt125/internal/config"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/sinope"
	"github.com/sinopehome/gt125/internal/ui"
)

var deviceType int

func init() {
	for _, cmd := range []*cobra.Command{readCmd, setCmd} {
		cmd.Flags().IntVar(&deviceType, "type", 0, "Device type, for a device id missing from the configuration")
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(reportCmd)
}

// resolveDevice finds ref in the configuration. An id that is not
// configured is accepted when --type is given.
func resolveDevice(cfg *config.Config, ref string) (sinope.Device, error) {
	dev, err := cfg.Device(ref)
	if errors.Is(err, config.ErrUnknownDevice) && deviceType != 0 {
		return sinope.NewDevice(ref, "", deviceType)
	}
	return dev, err
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List configured devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		p := ui.NewPrinter(cmd.OutOrStdout())
		cfg, err := loadConfig()
		if err != nil {
			return fail(p, "Cannot load configuration", err)
		}
		devices, err := cfg.DeviceList()
		if err != nil {
			return fail(p, "Invalid device", err)
		}
		if len(devices) == 0 {
			p.Println("No devices configured. Add one with 'gt125 link --save'.")
			return nil
		}
		rows := make([][]string, 0, len(devices))
		for _, d := range devices {
			rows = append(rows, []string{d.ID.String(), d.Name, fmt.Sprint(d.Type), d.Capability.String()})
		}
		p.Table([]string{"ID", "NAME", "TYPE", "KIND"}, rows)
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read <device> [attribute...]",
	Short: "Read device attributes",
	Long: `Read attributes of a device, given by configured name or id.

Without attributes every readable attribute of the device is read.`,
	Example: `  gt125 read hall
  gt125 read hall room_temperature setpoint
  gt125 read 0a0b0c0d intensity --type 112`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return fail(p, "Cannot load configuration", err)
	}
	dev, err := resolveDevice(cfg, args[0])
	if err != nil {
		return fail(p, "Unknown device", err, "List configured devices with 'gt125 devices'")
	}

	specs, err := readSpecs(dev, args[1:])
	if err != nil {
		return fail(p, "Unknown attribute", err)
	}

	session, err := openSession(cfg)
	if err != nil {
		return fail(p, "Cannot open session", err)
	}
	defer session.Close()
	client, err := newClient(cfg, session, session.Address())
	if err != nil {
		return fail(p, "Invalid configuration", err)
	}

	ctx := cmd.Context()
	rows := make([][]string, 0, len(specs))
	for _, spec := range specs {
		var text string
		var ok bool
		if spec.Kind == protocol.KindEvent {
			var flags protocol.EventFlags
			flags, ok, err = client.ReadEvent(ctx, dev)
			text = formatEvent(flags)
		} else {
			var v protocol.Value
			v, ok, err = client.Read(ctx, dev, spec.Name)
			text = formatValue(dev, spec, v)
		}
		if err != nil {
			return fail(p, "Read failed", err)
		}
		if !ok {
			p.Failure("Device not responding", fmt.Errorf("%s did not answer the gateway", dev),
				"Check that the device is powered", "Re-link it with 'gt125 link' if it was reset")
			return sinope.ErrDeviceUnreachable
		}
		rows = append(rows, []string{string(spec.Name), text})
	}

	p.Success(dev.String())
	p.Table([]string{"ATTRIBUTE", "VALUE"}, rows)
	return nil
}

// readSpecs returns the registry entries for names, or every readable
// attribute of dev when names is empty.
func readSpecs(dev sinope.Device, names []string) ([]protocol.AttributeSpec, error) {
	if len(names) == 0 {
		var specs []protocol.AttributeSpec
		for _, spec := range protocol.Attributes(dev.Capability) {
			if spec.Access.Allows(protocol.CommandRead) {
				specs = append(specs, spec)
			}
		}
		return specs, nil
	}

	specs := make([]protocol.AttributeSpec, 0, len(names))
	for _, name := range names {
		spec, err := protocol.Lookup(dev.Capability, protocol.Attribute(strings.ToLower(name)))
		if err != nil {
			return nil, err
		}
		if !spec.Access.Allows(protocol.CommandRead) {
			return nil, fmt.Errorf("%s cannot be read", name)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func formatValue(dev sinope.Device, spec protocol.AttributeSpec, v protocol.Value) string {
	switch spec.Kind {
	case protocol.KindTemperature:
		return fmt.Sprintf("%.2f °C", v.Float())
	case protocol.KindMode:
		if dev.Capability == protocol.CapabilityThermostat {
			return sinope.ThermostatModeName(v.Raw)
		}
		return sinope.LightModeName(v.Raw)
	case protocol.KindLevel:
		return fmt.Sprintf("%d %%", v.Raw)
	case protocol.KindTimer:
		return fmt.Sprintf("%d min", v.Raw)
	case protocol.KindPower:
		return fmt.Sprintf("%d W", v.Raw)
	case protocol.KindFlag:
		if spec.Name == protocol.AttrAway {
			if byte(v.Raw) == sinope.AwayAway {
				return "away"
			}
			return "home"
		}
	}
	return v.String()
}

func formatEvent(flags protocol.EventFlags) string {
	names := [3]string{"on", "off", "dimmer"}
	parts := make([]string, 0, 3)
	for i, f := range flags {
		action := "none"
		switch f {
		case 0x01:
			action = "timer"
		case 0x02:
			action = "event"
		}
		parts = append(parts, names[i]+":"+action)
	}
	return strings.Join(parts, " ")
}

var setCmd = &cobra.Command{
	Use:   "set <device|all> <attribute> <value>",
	Short: "Write a device attribute",
	Long: `Write one attribute of a device.

Values are given as text: a temperature in °C for setpoints, a mode name
(off, freeze, manual, auto, away for thermostats; manual, auto, random,
bypass for lights), on or off for away, 0-100 or "last" for intensity,
minutes for timer, and trigger:action for event (on|off|dimmer :
none|event|timer).

"all" as the device sets the away flag of every device at once.`,
	Example: `  gt125 set hall setpoint 21.5
  gt125 set hall mode auto
  gt125 set all away on
  gt125 set porch intensity last
  gt125 set porch event off:timer`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())
	target, attr, value := args[0], protocol.Attribute(strings.ToLower(args[1])), args[2]

	cfg, err := loadConfig()
	if err != nil {
		return fail(p, "Cannot load configuration", err)
	}

	var dev sinope.Device
	broadcast := strings.EqualFold(target, sinope.AllDevices)
	if broadcast {
		if attr != protocol.AttrAway {
			return fail(p, "Invalid target", fmt.Errorf("only away can be set on all devices"))
		}
	} else if dev, err = resolveDevice(cfg, target); err != nil {
		return fail(p, "Unknown device", err, "List configured devices with 'gt125 devices'")
	}

	session, err := openSession(cfg)
	if err != nil {
		return fail(p, "Cannot open session", err)
	}
	defer session.Close()
	client, err := newClient(cfg, session, session.Address())
	if err != nil {
		return fail(p, "Invalid configuration", err)
	}

	if broadcast {
		var away byte
		if away, err = sinope.ParseAway(value); err != nil {
			return fail(p, "Invalid value", err)
		}
		err = client.SetAway(cmd.Context(), sinope.AllDevices, away)
	} else {
		err = client.SetText(cmd.Context(), dev, attr, value)
	}
	if err != nil {
		tips := []string{}
		if errors.Is(err, sinope.ErrDeviceUnreachable) {
			tips = append(tips, "Check that the device is powered")
		}
		return fail(p, "Write failed", err, tips...)
	}

	name := target
	if !broadcast {
		name = dev.String()
	}
	p.Success("Value written", ui.D("Device", name), ui.D("Attribute", attr), ui.D("Value", value))
	return nil
}

var reportCmd = &cobra.Command{
	Use:   "report [device]",
	Short: "Send time, date, sun and outdoor reports",
	Long: `Send the reports thermostats show on their display: time, date,
sunrise, sunset and outdoor temperature. Sunrise and sunset need location
coordinates; the outdoor temperature needs serve.outdoor.provider.

Without a device the reports are broadcast to every device.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return fail(p, "Cannot load configuration", err)
	}

	target, label := protocol.Broadcast, sinope.AllDevices
	if len(args) == 1 && !strings.EqualFold(args[0], sinope.AllDevices) {
		dev, err := resolveDevice(cfg, args[0])
		if err != nil {
			return fail(p, "Unknown device", err)
		}
		target, label = dev.ID, dev.String()
	}

	session, err := openSession(cfg)
	if err != nil {
		return fail(p, "Cannot open session", err)
	}
	defer session.Close()
	client, err := newClient(cfg, session, session.Address())
	if err != nil {
		return fail(p, "Invalid configuration", err)
	}

	if err := client.SendReports(cmd.Context(), target); err != nil {
		return fail(p, "Report failed", err)
	}
	p.Success("Reports sent", ui.D("Target", label))
	return nil
}
