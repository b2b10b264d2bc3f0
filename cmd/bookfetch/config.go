// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/bookfetch/pkg/types"
)

// loadConfig builds the pipeline configuration: compiled defaults first,
// then whatever the config file or environment overrides.
func loadConfig() (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()

	if viper.IsSet("http.connect_timeout") {
		cfg.ConnectTimeout = viper.GetDuration("http.connect_timeout")
	}
	if viper.IsSet("http.total_timeout") {
		cfg.TotalTimeout = viper.GetDuration("http.total_timeout")
	}
	if viper.IsSet("http.user_agent") {
		cfg.UserAgent = viper.GetString("http.user_agent")
	}
	if viper.IsSet("http.request_interval") {
		cfg.RequestInterval = viper.GetDuration("http.request_interval")
	}
	if viper.IsSet("http.scratch_dir") {
		cfg.ScratchDir = viper.GetString("http.scratch_dir")
	}

	if viper.IsSet("catalogs.libgen_mirrors") {
		cfg.Catalogs.LibgenMirrors = viper.GetStringSlice("catalogs.libgen_mirrors")
	}
	if viper.IsSet("catalogs.annas_mirrors") {
		cfg.Catalogs.AnnasMirrors = viper.GetStringSlice("catalogs.annas_mirrors")
	}
	if viper.IsSet("catalogs.delivery_endpoints") {
		cfg.Catalogs.DeliveryEndpoints = viper.GetStringSlice("catalogs.delivery_endpoints")
	}

	if viper.IsSet("download.output_dir") {
		cfg.Download.OutputDir = viper.GetString("download.output_dir")
	}
	if viper.IsSet("download.min_valid_bytes") {
		cfg.Download.MinValidBytes = viper.GetInt64("download.min_valid_bytes")
	}
	if viper.IsSet("download.download_delay") {
		cfg.Download.DownloadDelay = viper.GetDuration("download.download_delay")
	}

	if viper.IsSet("query_delay") {
		cfg.QueryDelay = viper.GetDuration("query_delay")
	}
	if viper.IsSet("max_name_length") {
		cfg.MaxNameLength = viper.GetInt("max_name_length")
	}

	if err := cfg.Validate(); err != nil {
		return types.PipelineConfig{}, err
	}
	return cfg, nil
}
