// Command axiomd runs a single node: chain validation, mempool, mining (if
// enabled), and libp2p gossip/sync, all wired together by package node.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitcoin-sv/axiomd/node"
	"github.com/bitcoin-sv/axiomd/settings"
	"github.com/bitcoin-sv/axiomd/ulogger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "axiomd",
		Usage: "run an axiom consensus node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "datadir", Usage: "override node_dataDir"},
			&cli.BoolFlag{Name: "mine", Usage: "override mining_enabled"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := settings.Load()
	if dir := c.String("datadir"); dir != "" {
		cfg.DataDir = dir
	}
	if c.Bool("mine") {
		cfg.Mining.Enabled = true
	}

	logger := ulogger.New(cfg.NodeName, cfg.LogLevel, cfg.Pretty)

	n, err := node.New(logger, cfg)
	if err != nil {
		return fmt.Errorf("initializing node: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("[main] shutdown signal received")
		cancel()
	}()

	logger.Infof("[main] starting %s, peer host %s", cfg.NodeName, n.P2P.HostID())
	if err := n.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("node run: %w", err)
	}
	return nil
}
