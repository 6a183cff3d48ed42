/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/rotblauer/routr/common"
	"github.com/rotblauer/routr/daemon/routed"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/state"
	"github.com/spf13/cobra"
)

var optHTTPAddr string
var optHTTPNetwork string
var optDaemonLedger string

// routedCmd represents the routed command
var routedCmd = &cobra.Command{
	Use:   "routed",
	Short: "Start the routing daemon",
	Long: `Serves land-avoidance routing over HTTP.

Routes:

  GET    /ping             healthcheck
  GET    /status           uptime, loaded barrier layers, outcome tallies
  PUT    /barriers/{layer} load a FeatureCollection of polygons as a layer
  DELETE /barriers/{layer} drop a layer
  POST   /route/{layer}    route a FeatureCollection of point fixes

Layers expire after a period without use. If ROUTR_TOKEN is set,
layer and route requests need "Authorization: Bearer $ROUTR_TOKEN".`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		config := params.DefaultRouteDaemonConfig()
		config.Address = optHTTPAddr
		config.Network = optHTTPNetwork
		rc, err := routeConfig()
		if err != nil {
			slog.Error("Invalid route config", "error", err)
			os.Exit(1)
		}
		config.RouteConfig = rc

		var ledger *state.Ledger
		if optDaemonLedger != "" {
			ledger, err = state.OpenLedger(optDaemonLedger, false)
			if err != nil {
				slog.Error("Failed to open ledger", "error", err)
				os.Exit(1)
			}
			defer ledger.Close()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			sig := <-common.Interrupted()
			slog.Warn("Received signal, shutting down", "signal", sig)
			cancel()
		}()

		if err := routed.NewRouteDaemon(config, ledger).Run(ctx); err != nil {
			slog.Error("Route daemon failed", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(routedCmd)

	defaults := params.DefaultRouteDaemonConfig()
	pFlags := routedCmd.PersistentFlags()
	pFlags.StringVar(&optHTTPAddr, "address", defaults.Address, "HTTP address to listen on")
	pFlags.StringVar(&optHTTPNetwork, "network", defaults.Network, "network to listen on: tcp, tcp4, tcp6, unix")
	pFlags.StringVar(&optDaemonLedger, "ledger", "", "record outcomes in this bbolt ledger")
}
