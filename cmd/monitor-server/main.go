package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/noc-monitor-publisher/cmd/flags"
	"github.com/ruteri/noc-monitor-publisher/common"
	"github.com/ruteri/noc-monitor-publisher/httpserver"
	"github.com/ruteri/noc-monitor-publisher/metrics"
	"github.com/ruteri/noc-monitor-publisher/monitorserver"
	"github.com/ruteri/noc-monitor-publisher/monitortree"
	"github.com/ruteri/noc-monitor-publisher/remote"
	"github.com/urfave/cli/v2"
)

var flagTree = &cli.StringFlag{
	Name:     "tree",
	Required: true,
	Usage:    "YAML monitor tree to publish",
}
var flagPort = &cli.IntSliceFlag{
	Name:  "port",
	Value: cli.NewIntSlice(8443),
	Usage: "port to publish the monitor on; repeat to publish on several ports",
}
var flagPublicAddress = &cli.StringFlag{
	Name:  "public-address",
	Usage: "host name clients use to reach this server (advertised in stubs)",
}
var flagListenAddress = &cli.StringFlag{
	Name:  "listen-address",
	Usage: "interface to bind; all interfaces when empty",
}
var flagClientBindsListenAddress = &cli.BoolFlag{
	Name:  "client-binds-listen-address",
	Value: false,
	Usage: "also bind outgoing connections to --listen-address",
}
var flagOpsAddr = &cli.StringFlag{
	Name:  "ops-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for the operations API",
}

func main() {
	serverFlags := []cli.Flag{
		flagTree,
		flagPort,
		flagPublicAddress,
		flagListenAddress,
		flagClientBindsListenAddress,
		flagOpsAddr,
		flags.LogServiceFlagFn("monitor-server"),
	}
	serverFlags = append(serverFlags, flags.TLSFlags...)
	serverFlags = append(serverFlags, flags.CommonFlags...)

	app := &cli.App{
		Name:   "monitor-server",
		Usage:  "Publish a monitor tree to remote clients over mutual TLS",
		Flags:  serverFlags,
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash of a password for the users section of a tree",
				ArgsUsage: "<password>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return cli.Exit("expected exactly one password argument", 1)
					}
					hash, err := monitortree.HashPassword(cCtx.Args().First())
					if err != nil {
						return err
					}
					fmt.Println(hash)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	publicAddress := cCtx.String(flagPublicAddress.Name)
	listenAddress := cCtx.String(flagListenAddress.Name)
	ports := cCtx.IntSlice(flagPort.Name)

	logger := flags.SetupLogger(cCtx)

	hosts := []string{"localhost"}
	for _, h := range []string{publicAddress, listenAddress} {
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	identity, err := flags.LoadTLSIdentity(cCtx, hosts...)
	if err != nil {
		logger.Error("Failed to load TLS material", "err", err)
		return err
	}
	if cCtx.Bool(flags.TLSEphemeralFlag.Name) {
		logger.Warn("Using an ephemeral self-signed certificate", "fingerprint", identity.Fingerprint())
	}

	tree, err := monitortree.LoadFile(cCtx.String(flagTree.Name))
	if err != nil {
		logger.Error("Failed to load monitor tree", "err", err)
		return err
	}

	metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
	if err != nil {
		logger.Error("Failed to create metrics server", "err", err)
		return err
	}

	rt := remote.NewRuntime(&remote.Config{
		Log:          logger,
		Metrics:      metricsSrv.Metrics(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	cache, err := monitorserver.Init(&monitorserver.Config{
		Substrate:                rt,
		Identity:                 identity,
		ClientBindsListenAddress: cCtx.Bool(flagClientBindsListenAddress.Name),
		Log:                      logger,
		Metrics:                  metricsSrv.Metrics(),
	})
	if err != nil {
		logger.Error("Failed to initialize instance cache", "err", err)
		return err
	}

	for _, port := range ports {
		server, err := monitorserver.GetInstance(tree, publicAddress, listenAddress, port)
		if err != nil {
			logger.Error("Failed to publish monitor", "port", port, "err", err)
			return err
		}
		logger.Info("Monitor available", "port", server.Port(), "host", server.Stub().Host)
	}

	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagOpsAddr.Name))
	cfg.MetricsServer = metricsSrv
	handler := httpserver.NewHandler(cache, rt.Registries(), rt.Ready, logger)
	opsServer, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create operations server", "err", err)
		return err
	}
	opsServer.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	opsServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rt.Close(ctx); err != nil {
		logger.Error("Remote endpoints did not stop cleanly", "err", err)
	}
	logger.Info("Server shutdown complete")
	return nil
}
