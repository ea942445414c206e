//
//  Copyright © PageSentry Labs. All rights reserved.
//

// Package serve implements the pse serve subcommand.
package serve

import (
	"context"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/pagesentry/permengine/cmd/pse/common"
	"github.com/pagesentry/permengine/internal/logging"
	"github.com/pagesentry/permengine/pkg/decisionpoint"
	"github.com/pagesentry/permengine/pkg/decisionpoint/envoy"
	"github.com/pagesentry/permengine/pkg/decisionpoint/generic"
	"github.com/pagesentry/permengine/pkg/engine/options"
)

var logger = logging.GetLogger("permengine")

const agent string = "serve"

// Execute runs the serve command, starting a decision point server based
// on the configured protocol.  It supports both "generic" and "envoy"
// protocols and gracefully shuts down on interrupt signals.
func Execute(ctx context.Context, cmd *cli.Command) error {
	port := int(cmd.Int("port"))

	var (
		registry *prometheus.Registry
		extra    []options.EngineOption
	)
	if cmd.Bool("metrics") {
		registry = prometheus.NewRegistry()
		extra = append(extra, options.WithMetrics(registry))
	}

	eng, err := common.NewCliEngine(cmd, os.Stdout, extra...)
	if err != nil {
		return err
	}
	defer eng.Close()

	var server decisionpoint.Server
	switch cmd.String("protocol") {
	case "generic":
		var gatherer prometheus.Gatherer
		if registry != nil {
			gatherer = registry
		}
		server, err = generic.CreateServer(eng, port, gatherer)
	case "envoy":
		server, err = envoy.CreateServer(eng, port)
	}
	if err != nil {
		return err
	}

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	logger.Info(agent, "shutdown", "Shutting down server...")

	if err := server.Stop(ctx); err != nil {
		return err
	}

	logger.Info(agent, "shutdown", "Server exited gracefully.")
	return nil
}
