// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bookfetch/internal/probe"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check which configured mirrors are reachable",
	Long: `Probe sends a lightweight request to every configured catalog mirror
and reports which ones answer. Useful before a long run, or to diagnose a
network that blocks the libraries outright.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().Duration("timeout", 5*time.Second, "per-mirror probe timeout")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	mirrors := append([]string{}, cfg.Catalogs.LibgenMirrors...)
	mirrors = append(mirrors, cfg.Catalogs.AnnasMirrors...)

	fmt.Printf("Probing %d mirrors:\n", len(mirrors))
	p := probe.New(os.Stdout, timeout)
	results := p.CheckAll(cmd.Context(), mirrors)

	reachable := probe.CountReachable(results)
	fmt.Printf("%d of %d mirrors reachable\n", reachable, len(mirrors))
	if reachable == 0 {
		return fmt.Errorf("no mirror is reachable; check your network or VPN")
	}
	return nil
}
