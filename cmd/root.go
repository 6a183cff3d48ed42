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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/routr/common"
	"github.com/rotblauer/routr/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "routr",
	Short: "Reroute predicted animal tracks around land",
	Long: `routr moves the segments of predicted animal tracks that cross land
onto the shortest water path around it, and splices the detours back in
with interpolated times.

Coordinates must be projected, in meters.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.routr.yaml)")
	pFlags.String("verbosity", "info", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("verbosity", pFlags.Lookup("verbosity"))

	for _, fs := range []*pflag.FlagSet{routingFlags(), influxFlags()} {
		pFlags.AddFlagSet(fs)
		_ = viper.BindPFlags(fs)
	}
}

// routingFlags are the flags that make up a params.RouteConfig.
func routingFlags() *pflag.FlagSet {
	defaults := params.DefaultRouteConfig()
	fs := pflag.NewFlagSet("routing", pflag.ExitOnError)
	fs.Float64("buffer", defaults.BufferDistance, "initial search buffer around a land-crossing segment, in meters")
	fs.Int("max-expansions", defaults.MaxBufferExpansions, "how many times the buffer may grow before a segment fails")
	fs.Float64("expansion-factor", defaults.ExpansionFactor, "buffer growth factor per expansion")
	fs.String("tie-break", string(defaults.TieBreak), "equal-length path tie-break: fewestHops or none")
	fs.Int("workers", defaults.Workers, "parallel reroute workers")
	fs.Duration("search-timeout", defaults.SearchTimeout, "per-segment search timeout (0 = none)")
	fs.Int("cache-size", defaults.DetourCacheSize, "detour cache entries (0 = disabled)")
	return fs
}

func influxFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("influx", pflag.ExitOnError)
	fs.String("influx-url", "", "export outcomes to this InfluxDB v2 server")
	fs.String("influx-token", "", "InfluxDB API token")
	fs.String("influx-org", "", "InfluxDB organization")
	fs.String("influx-bucket", "routr", "InfluxDB bucket")
	return fs
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".routr" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".routr")
	}

	viper.SetEnvPrefix("ROUTR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaultSlog(cmd *cobra.Command, args []string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("verbosity"))); err != nil {
		level = slog.LevelInfo
	}
	common.SetDefaultSlog(level)
}

// routeConfig builds the routing config from flags, env and config file.
func routeConfig() (*params.RouteConfig, error) {
	c := params.DefaultRouteConfig()
	c.BufferDistance = viper.GetFloat64("buffer")
	c.MaxBufferExpansions = viper.GetInt("max-expansions")
	c.ExpansionFactor = viper.GetFloat64("expansion-factor")
	c.TieBreak = params.TieBreak(viper.GetString("tie-break"))
	c.Workers = viper.GetInt("workers")
	c.SearchTimeout = viper.GetDuration("search-timeout")
	c.DetourCacheSize = viper.GetInt("cache-size")
	return c, c.Validate()
}

func influxConfig() *params.InfluxConfig {
	return &params.InfluxConfig{
		URL:    viper.GetString("influx-url"),
		Token:  viper.GetString("influx-token"),
		Org:    viper.GetString("influx-org"),
		Bucket: viper.GetString("influx-bucket"),
	}
}
