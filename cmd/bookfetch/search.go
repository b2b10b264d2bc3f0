// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bookfetch/internal/fetch"
	"github.com/pdiddy/bookfetch/internal/resolve"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Resolve a single query without downloading",
	Long: `Search runs one query through the catalog chain and prints what the
download stage would receive: the matched record and the direct URL or
delivery candidates. Nothing is written to disk.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Bool("yaml", false, "print the matched record as YAML")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	client := fetch.NewClient(cfg.HTTPConfig)
	chain := resolve.NewChain(os.Stdout,
		resolve.NewLibGen(client, cfg.Catalogs),
		resolve.NewAnnas(client, cfg.Catalogs),
	)

	res, err := chain.Resolve(cmd.Context(), query)
	if err != nil {
		return err
	}
	if res.Kind == resolve.NotFound {
		return fmt.Errorf("no catalog produced a result for %q", query)
	}

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		data, err := yaml.Marshal(res.Record)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	} else if res.Record.Title != "" {
		fmt.Printf("Matched: %s (%s)\n", res.Record.Title, res.Record.Identifier)
	} else {
		fmt.Printf("Matched: %s\n", res.Record.Identifier)
	}

	switch res.Kind {
	case resolve.DirectURL:
		fmt.Printf("Direct URL: %s\n", res.URL)
	case resolve.Delivery:
		fmt.Println("Delivery candidates:")
		for _, c := range res.Candidates {
			fmt.Printf("  %s\n", c)
		}
	}
	return nil
}
