package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sinopehome/gt125/internal/discovery"
	"github.com/sinopehome/gt125/internal/ui"
)

var scanTimeout time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Look for GT125 gateways on the local network",
	Long: `Browse mDNS announcements for hosts that look like a GT125.

Not every gateway firmware announces itself; when nothing is found, use
the address shown in your router's DHCP leases with --host.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to listen for announcements")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Header("Scan", "gt125 scan", ui.D("Duration", scanTimeout))

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout

	var found []*discovery.Gateway
	err := ui.Wait(cmd.Context(), p.Writer(), "Listening for gateways", "", func(ctx context.Context) error {
		var err error
		found, err = scanner.Scan(ctx)
		return err
	})
	if err != nil {
		return fail(p, "Scan failed", err, "mDNS needs multicast on the local network")
	}
	if len(found) == 0 {
		p.Failure("No gateway found", nil,
			"Check that this machine is on the same network as the gateway",
			"Find the address in your router's DHCP leases and pass --host")
		return nil
	}

	rows := make([][]string, 0, len(found))
	for _, g := range found {
		rows = append(rows, []string{g.Address(), g.Hostname, g.Instance})
	}
	p.Success(fmt.Sprintf("Found %d gateway(s)", len(found)))
	p.Table([]string{"ADDRESS", "HOSTNAME", "INSTANCE"}, rows)
	return nil
}
