// Package main provides the phenograph CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orneryd/phenograph/pkg/builtin"
	"github.com/orneryd/phenograph/pkg/config"
	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/obo"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/snapshot"
	"github.com/orneryd/phenograph/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "phenograph",
		Short: "phenograph - Human Phenotype Ontology toolkit",
		Long: `phenograph loads the Human Phenotype Ontology with its gene and disease
annotations and answers questions about it.

Features:
  • Term lookup, search and path queries
  • Seven term similarity measures with set level combiners
  • Hypergeometric gene and disease enrichment
  • Hierarchical clustering of term sets
  • Binary snapshots and a badger backed snapshot store
  • HTTP JSON API with Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			handler, err := cfg.Logging.Handler(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(handler))
			cfg.Pool.Apply()
			if err := cfg.Runtime.Apply(); err != nil {
				return err
			}
			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("data-dir", "", "Directory with hp.obo, phenotype.hpoa and the gene annotation file")
	flags.Bool("transitive", false, "Read phenotype_to_genes.txt instead of genes_to_phenotype.txt")
	flags.String("snapshot-file", "", "Load a binary snapshot file")
	flags.String("store-dir", "", "Snapshot store directory")
	flags.String("snapshot", "", "Load a named snapshot from the store")
	flags.Int("workers", 0, "Parallel workers for batch operations (0 = one per CPU)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")
	flags.Bool("json", false, "Print results as JSON")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phenograph v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show ontology version and counts",
		Args:  cobra.NoArgs,
		RunE:  runInfo,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "term [query]",
		Short: "Show a term by id, HP: id or exact name",
		Args:  cobra.ExactArgs(1),
		RunE:  runTerm,
	})

	searchCmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Find terms whose name contains text",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().Int("limit", 25, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "path [a] [b]",
		Short: "Show the path between two terms through their nearest common ancestor",
		Args:  cobra.ExactArgs(2),
		RunE:  runPath,
	})

	similarityCmd := &cobra.Command{
		Use:   "similarity [set-a] [set-b]",
		Short: "Score two comma separated term sets",
		Args:  cobra.ExactArgs(2),
		RunE:  runSimilarity,
	}
	addScoringFlags(similarityCmd)
	rootCmd.AddCommand(similarityCmd)

	enrichCmd := &cobra.Command{
		Use:   "enrich [set]",
		Short: "Hypergeometric enrichment of genes or diseases in a comma separated term set",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnrich,
	}
	enrichCmd.Flags().String("kind", "gene", "Entity kind (gene, omim, orpha)")
	enrichCmd.Flags().String("method", "hypergeom", "Enrichment method")
	enrichCmd.Flags().Int("limit", 10, "Maximum number of results (0 = all)")
	rootCmd.AddCommand(enrichCmd)

	linkageCmd := &cobra.Command{
		Use:   "linkage [set]...",
		Short: "Cluster comma separated term sets hierarchically",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLinkage,
	}
	addScoringFlags(linkageCmd)
	linkageCmd.Flags().String("linkage", "", "Linkage method (single, complete, average, union)")
	rootCmd.AddCommand(linkageCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Snapshot file and store operations",
	}
	snapshotCmd.AddCommand(&cobra.Command{
		Use:   "build [file]",
		Short: "Write the loaded ontology to a binary snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotBuild,
	})
	snapshotCmd.AddCommand(&cobra.Command{
		Use:   "save [name]",
		Short: "Save the loaded ontology into the snapshot store",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotSave,
	})
	snapshotCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots in the store",
		Args:  cobra.NoArgs,
		RunE:  runSnapshotList,
	})
	snapshotCmd.AddCommand(&cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a snapshot from the store",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotDelete,
	})
	rootCmd.AddCommand(snapshotCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().String("address", "", "Address to bind to")
	serveCmd.Flags().Int("port", 0, "Port to listen on")
	rootCmd.AddCommand(serveCmd)

	return rootCmd
}

func addScoringFlags(cmd *cobra.Command) {
	cmd.Flags().String("method", "", "Similarity method (graphic, resnik, lin, jc, rel, ic, dist)")
	cmd.Flags().String("kind", "", "Information content kind (omim, orpha, gene, custom)")
	cmd.Flags().String("combiner", "", "Set combiner (funSimAvg, funSimMax, BMA)")
}

// =============================================================================
// Configuration and ontology loading
// =============================================================================

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// resolveConfig layers defaults, the config file, the environment and
// finally any flags given on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Data.Dir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("transitive") {
		cfg.Data.Transitive, _ = flags.GetBool("transitive")
	}
	if flags.Changed("snapshot-file") {
		cfg.Data.SnapshotFile, _ = flags.GetString("snapshot-file")
	}
	if flags.Changed("store-dir") {
		cfg.Data.StoreDir, _ = flags.GetString("store-dir")
	}
	if flags.Changed("snapshot") {
		cfg.Data.Snapshot, _ = flags.GetString("snapshot")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadOntology opens the source selected by cfg.
func loadOntology(ctx context.Context, cfg *config.Config) (*ontology.Ontology, error) {
	switch {
	case cfg.Data.Snapshot != "":
		store, err := storage.Open(storage.Options{DataDir: cfg.Data.StoreDir, Logger: slog.Default()})
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Load(cfg.Data.Snapshot)
	case cfg.Data.SnapshotFile != "":
		return snapshot.ReadFile(cfg.Data.SnapshotFile)
	case cfg.Data.Dir != "":
		return obo.LoadDir(ctx, cfg.Data.Dir, obo.Options{
			Transitive: cfg.Data.Transitive,
			Logger:     slog.Default(),
		})
	default:
		return builtin.Load()
	}
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	if cfg.Data.StoreDir == "" {
		return nil, errors.New("no snapshot store configured (use --store-dir or PHENOGRAPH_STORE_DIR)")
	}
	return storage.Open(storage.Options{DataDir: cfg.Data.StoreDir, Logger: slog.Default()})
}

// parseSet resolves a comma separated list of term queries.
func parseSet(ont *ontology.Ontology, arg string) (*hposet.Set, error) {
	var queries []string
	for _, q := range strings.Split(arg, ",") {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return hposet.FromQueries(ont, queries...)
}
