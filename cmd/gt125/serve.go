package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sinopehome/gt125/internal/config"
	"github.com/sinopehome/gt125/internal/logging"
	"github.com/sinopehome/gt125/internal/metrics"
	"github.com/sinopehome/gt125/internal/mqtt"
	"github.com/sinopehome/gt125/internal/poller"
	"github.com/sinopehome/gt125/internal/protocol"
	"github.com/sinopehome/gt125/internal/server"
	"github.com/sinopehome/gt125/internal/sinope"
)

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll devices and serve their state",
	Long: `Run until interrupted:

  • every serve.poll_interval, read the state of every configured device
  • every serve.report_interval, broadcast time, date, sun and outdoor reports
  • serve /metrics, /api/devices, /healthz and the /ws live stream
  • publish state to MQTT and accept writes on the command topics, when
    serve.mqtt is configured

Gateway requests are spaced by serve.request_interval.`,
	Example: `  gt125 serve
  gt125 serve --listen 127.0.0.1:9125 --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "HTTP listen address (default from config, "+config.DefaultListen+")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenFlag != "" {
		cfg.Serve.Listen = listenFlag
	}
	if err := logging.InitializeWithFile(logLevel, logging.FileOptions{Filename: cfg.Serve.LogFile}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	devices, err := cfg.DeviceList()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no devices configured; add one with 'gt125 link --save'")
	}

	session, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	ex := poller.NewPaced(m.InstrumentExchanger(session), cfg.Serve.RequestInterval)
	client, err := newClient(cfg, ex, session.Address())
	if err != nil {
		return err
	}

	var p *poller.Poller
	srv := server.New(&server.Config{
		Listen:   cfg.Serve.Listen,
		Registry: reg,
		Latest:   func() []sinope.Snapshot { return p.Latest() },
	})
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sinks := []poller.Sink{srv.Hub()}
	if mc := cfg.Serve.MQTT; mc != nil {
		pub := mqtt.New(mqtt.Options{
			Broker:      mc.Broker,
			Username:    mc.Username,
			Password:    mc.Password,
			ClientID:    mc.ClientID,
			TopicPrefix: mc.TopicPrefix,
			Timeout:     cfg.Gateway.Timeout,
		}, commandHandler(cfg, client))
		if err := pub.Connect(ctx); err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	p = poller.New(client, devices, poller.Options{
		PollInterval:   cfg.Serve.PollInterval,
		ReportInterval: cfg.Serve.ReportInterval,
		Sinks:          sinks,
		Observer:       m,
	})

	logging.Info("Serving",
		zap.String("gateway", session.Address()),
		zap.String("listen", srv.Addr().String()),
		zap.Int("devices", len(devices)))

	pollerDone := make(chan error, 1)
	go func() { pollerDone <- p.Run(ctx) }()

	serveErr := srv.Start(ctx)
	cancel()
	if err := <-pollerDone; err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn("Poller stopped", zap.Error(err))
	}
	return serveErr
}

// commandHandler applies MQTT writes. device is a configured name or id,
// or "all" for the away flag.
func commandHandler(cfg *config.Config, client *sinope.Client) mqtt.CommandHandler {
	return func(ctx context.Context, device string, attr protocol.Attribute, value string) error {
		if strings.EqualFold(device, sinope.AllDevices) {
			if attr != protocol.AttrAway {
				return fmt.Errorf("only away can be set on all devices")
			}
			away, err := sinope.ParseAway(value)
			if err != nil {
				return err
			}
			return client.SetAway(ctx, sinope.AllDevices, away)
		}
		dev, err := cfg.Device(device)
		if err != nil {
			return err
		}
		return client.SetText(ctx, dev, attr, value)
	}
}
