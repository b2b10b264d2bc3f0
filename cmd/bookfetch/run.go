// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pdiddy/bookfetch/internal/fetch"
	"github.com/pdiddy/bookfetch/internal/pipeline"
	"github.com/pdiddy/bookfetch/internal/resolve"
)

var runCmd = &cobra.Command{
	Use:   "run <query-file>",
	Short: "Download books for every query in a file",
	Long: `Run reads search queries from a file (one per line, blank lines and
#-comments skipped), resolves each against the configured catalogs, and
downloads the matching files into the output directory. One query failing
never stops the batch; a summary is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	runCmd.Flags().String("output-dir", "", "directory for downloaded files (default: downloads)")
	runCmd.Flags().Duration("query-delay", 0, "pause between consecutive queries (default 2s)")
	runCmd.Flags().Int64("min-bytes", 0, "size floor below which a download is discarded (default 1000)")
	runCmd.Flags().String("report", "", "write a YAML run report to this path")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address for the run's duration")

	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.Download.OutputDir = dir
	}
	if delay, _ := cmd.Flags().GetDuration("query-delay"); delay > 0 {
		cfg.QueryDelay = delay
	}
	if minBytes, _ := cmd.Flags().GetInt64("min-bytes"); minBytes > 0 {
		cfg.Download.MinValidBytes = minBytes
	}

	queries, err := pipeline.ReadQueries(args[0])
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("query file %s contains no queries", args[0])
	}

	if err := os.MkdirAll(cfg.Download.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(cfg.HTTPConfig)
	chain := resolve.NewChain(os.Stdout,
		resolve.NewLibGen(client, cfg.Catalogs),
		resolve.NewAnnas(client, cfg.Catalogs),
	)
	metrics := pipeline.NewMetrics()
	driver := pipeline.NewDriver(cfg, client, chain, metrics, os.Stdout)

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
		defer server.Close()
		fmt.Fprintf(os.Stderr, "Serving metrics on %s/metrics\n", addr)
	}

	summary, runErr := driver.Run(ctx, queries)

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := pipeline.WriteReport(reportPath, summary); err != nil {
			fmt.Fprintf(os.Stderr, "writing report: %v\n", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.AllFailed() {
		return fmt.Errorf("all %d queries failed", summary.Failed)
	}
	return nil
}
