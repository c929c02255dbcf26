// Gt125 controls Sinope thermostats, lights and switches through a GT125
// gateway on the local network.
//
// It speaks the gateway's binary protocol directly: one-shot commands read
// and write device attributes, and serve mode polls every configured device,
// broadcasts the time, date, sun and outdoor reports, and publishes state
// over HTTP, websocket and MQTT.
//
// Usage:
//
//	gt125 [command] [flags]
//
// See 'gt125 --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sinopehome/gt125/internal/config"
	"github.com/sinopehome/gt125/internal/gateway"
	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/sinope"
	"github.com/sinopehome/gt125/internal/ui"
	"github.com/sinopehome/gt125/internal/version"
	"github.com/sinopehome/gt125/internal/weather"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	hostFlag   string
	timeout    time.Duration
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "gt125",
	Short: "Sinope GT125 gateway client",
	Long: `Control Sinope thermostats, lights and switches through a GT125 gateway.

Start with 'gt125 config init' and 'gt125 key' to pair with the gateway,
then 'gt125 link' to add devices. 'gt125 serve' runs the poller and the
HTTP, websocket and MQTT endpoints.`,
	Version:       version.Version,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "serve" {
			return nil // serve sets up file logging itself
		}
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Gateway host or IP, overrides the configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Gateway connect and reply timeout (default from config, 10s)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default silent, or "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gt125 %s\n", version.Full())
	},
}

// loadConfig reads the configuration file and applies --host.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if hostFlag != "" {
		cfg.Gateway.Host = hostFlag
	}
	if timeout > 0 {
		cfg.Gateway.Timeout = timeout
	}
	return cfg, nil
}

// loadOrNewConfig is loadConfig for commands that can create the file.
func loadOrNewConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if errors.Is(err, config.ErrNotFound) {
		cfg = config.New()
		cfg.Gateway.Host = hostFlag
		if timeout > 0 {
			cfg.Gateway.Timeout = timeout
		}
		return cfg, nil
	}
	return cfg, err
}

// openSession builds an authenticated session, prompting for the API key
// when the file has none.
func openSession(cfg *config.Config) (*gateway.Session, error) {
	if err := cfg.EnsureAPIKey(os.Stderr); err != nil {
		return nil, err
	}
	opts, err := cfg.GatewayOptions()
	if err != nil {
		return nil, err
	}
	return gateway.NewSession(opts), nil
}

// newClient wraps ex with the location settings of cfg.
func newClient(cfg *config.Config, ex sinope.Exchanger, addr string) (*sinope.Client, error) {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}
	opts := []sinope.Option{sinope.WithGatewayName(addr), sinope.WithLocation(loc)}
	if cfg.Location.HasCoordinates() {
		lat, lon := *cfg.Location.Latitude, *cfg.Location.Longitude
		opts = append(opts, sinope.WithCoordinates(lat, lon))
		if cfg.Serve.Outdoor.Provider == config.OutdoorOpenMeteo {
			opts = append(opts, sinope.WithOutdoorSource(weather.NewClient(lat, lon)))
		}
	}
	return sinope.NewClient(ex, opts...), nil
}

// fail prints a failure box with the gateway troubleshooting hint and
// returns err for cobra.
func fail(p *ui.Printer, title string, err error, tips ...string) error {
	p.Failure(title, err, append(hintTips(gateway.GetTroubleshootingHint(err)), tips...)...)
	return err
}

// hintTips splits a multi-line troubleshooting hint into box lines.
func hintTips(hint string) []string {
	var tips []string
	for _, line := range strings.Split(hint, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "•"))
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		tips = append(tips, line)
	}
	return tips
}
