package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/orneryd/phenograph/pkg/enrichment"
	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/linkage"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/server"
	"github.com/orneryd/phenograph/pkg/similarity"
	"github.com/orneryd/phenograph/pkg/snapshot"
)

// printer writes either JSON or the human readable form.
func printer(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

func load(cmd *cobra.Command) (*ontology.Ontology, error) {
	start := time.Now()
	ont, err := loadOntology(cmd.Context(), configFrom(cmd))
	if err != nil {
		return nil, err
	}
	slog.Debug("ontology ready", "terms", ont.Len(), "version", ont.Version(), "elapsed", time.Since(start))
	return ont, nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	info := struct {
		Version       string `json:"version"`
		Terms         int    `json:"terms"`
		Genes         int    `json:"genes"`
		OmimDiseases  int    `json:"omim_diseases"`
		OrphaDiseases int    `json:"orpha_diseases"`
	}{
		Version:       ont.Version(),
		Terms:         ont.Len(),
		Genes:         ont.EntityCount(ontology.KindGene),
		OmimDiseases:  ont.EntityCount(ontology.KindOmim),
		OrphaDiseases: ont.EntityCount(ontology.KindOrpha),
	}
	return printer(cmd, info, func(w io.Writer) {
		fmt.Fprintf(w, "Version:        %s\n", info.Version)
		fmt.Fprintf(w, "Terms:          %d\n", info.Terms)
		fmt.Fprintf(w, "Genes:          %d\n", info.Genes)
		fmt.Fprintf(w, "OMIM diseases:  %d\n", info.OmimDiseases)
		fmt.Fprintf(w, "ORPHA diseases: %d\n", info.OrphaDiseases)
	})
}

func runTerm(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	t, err := ont.TermByQuery(args[0])
	if err != nil {
		return err
	}
	ic := t.InformationContent()
	view := map[string]any{
		"id":                  t.ID().String(),
		"name":                t.Name(),
		"obsolete":            t.IsObsolete(),
		"parents":             termList(ont, t.Parents()),
		"children":            termList(ont, t.Children()),
		"categories":          termList(ont, t.Categories()),
		"information_content": ic,
	}
	return printer(cmd, view, func(w io.Writer) {
		fmt.Fprintln(w, t)
		if t.IsObsolete() {
			if id, ok := t.ReplacedBy(); ok {
				fmt.Fprintf(w, "  obsolete, replaced by %s\n", id)
			} else {
				fmt.Fprintln(w, "  obsolete")
			}
		}
		printTerms(w, "parents", ont, t.Parents())
		printTerms(w, "children", ont, t.Children())
		printTerms(w, "categories", ont, t.Categories())
		fmt.Fprintf(w, "  IC: gene=%.4f omim=%.4f orpha=%.4f\n", ic.Gene, ic.Omim, ic.Orpha)
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	matches := ont.Search(args[0])
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	ids := make([]ontology.TermID, len(matches))
	for i, t := range matches {
		ids[i] = t.ID()
	}
	return printer(cmd, termList(ont, ontology.NewGroup(ids...)), func(w io.Writer) {
		for _, t := range matches {
			fmt.Fprintln(w, t)
		}
	})
}

func runPath(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	a, err := ont.TermByQuery(args[0])
	if err != nil {
		return err
	}
	b, err := ont.TermByQuery(args[1])
	if err != nil {
		return err
	}
	p, err := ont.PathBetween(a.ID(), b.ID())
	if err != nil {
		return err
	}
	return printer(cmd, p, func(w io.Writer) {
		fmt.Fprintf(w, "distance %d (%d up, %d down) via %s\n",
			p.Distance, p.StepsUp, p.StepsDown, ont.MustTerm(p.CommonAncestor))
		for _, id := range p.Terms {
			fmt.Fprintf(w, "  %s\n", ont.MustTerm(id))
		}
	})
}

func groupSimilarity(cmd *cobra.Command) (*similarity.GroupSimilarity, error) {
	cfg := configFrom(cmd)
	method, _ := cmd.Flags().GetString("method")
	kind, _ := cmd.Flags().GetString("kind")
	combiner, _ := cmd.Flags().GetString("combiner")
	return similarity.NewGroupByName(
		cmp.Or(method, cfg.Similarity.Method),
		cmp.Or(kind, cfg.Similarity.Kind),
		cmp.Or(combiner, cfg.Similarity.Combiner),
	)
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	group, err := groupSimilarity(cmd)
	if err != nil {
		return err
	}
	a, err := parseSet(ont, args[0])
	if err != nil {
		return err
	}
	b, err := parseSet(ont, args[1])
	if err != nil {
		return err
	}
	score := group.Score(a, b)
	result := map[string]any{
		"method":   group.Term().Method().String(),
		"combiner": group.Combiner().String(),
		"score":    score,
	}
	return printer(cmd, result, func(w io.Writer) {
		fmt.Fprintf(w, "%.6f\n", score)
	})
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	kindName, _ := cmd.Flags().GetString("kind")
	method, _ := cmd.Flags().GetString("method")
	limit, _ := cmd.Flags().GetInt("limit")

	kind, err := ontology.ParseEntityKind(kindName)
	if err != nil {
		return err
	}
	model, err := enrichment.NewModel(ont, kind)
	if err != nil {
		return err
	}
	set, err := parseSet(ont, args[0])
	if err != nil {
		return err
	}
	results, err := model.Enrichment(method, set)
	if err != nil {
		return err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	type row struct {
		Entity string  `json:"entity"`
		Count  int     `json:"count"`
		PValue float64 `json:"pvalue"`
		Fold   float64 `json:"enrichment"`
	}
	rows := make([]row, len(results))
	for i, r := range results {
		rows[i] = row{Entity: r.Entity.String(), Count: r.Count, PValue: r.PValue, Fold: r.Fold}
	}
	return printer(cmd, rows, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ENTITY\tCOUNT\tP-VALUE\tENRICHMENT")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%.4g\t%.3f\n", r.Entity, r.Count, r.PValue, r.Fold)
		}
		tw.Flush()
	})
}

func runLinkage(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	cfg := configFrom(cmd)
	group, err := groupSimilarity(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("linkage")
	method, err := linkage.ParseMethod(cmp.Or(name, cfg.Similarity.Linkage))
	if err != nil {
		return err
	}

	sets := make([]*hposet.Set, len(args))
	for i, arg := range args {
		if sets[i], err = parseSet(ont, arg); err != nil {
			return err
		}
	}
	clusters, err := linkage.Linkage(cmd.Context(), sets, linkage.Options{
		Method:     method,
		Similarity: group,
		Workers:    cfg.Workers,
	})
	if err != nil {
		return err
	}
	return printer(cmd, clusters, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CLUSTER\tLEFT\tRIGHT\tDISTANCE\tSIZE")
		for i, c := range clusters {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%.6f\t%d\n", len(sets)+i, c.Left, c.Right, c.Distance, c.Size)
		}
		tw.Flush()
	})
}

// =============================================================================
// Snapshots
// =============================================================================

func runSnapshotBuild(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(args[0], ont); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d terms, version %s)\n", args[0], ont.Len(), ont.Version())
	return nil
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	ont, err := load(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(configFrom(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	meta, err := store.Save(args[0], ont)
	if err != nil {
		return err
	}
	return printer(cmd, meta, func(w io.Writer) {
		fmt.Fprintf(w, "saved %s (%d terms, version %s, checksum %s)\n",
			meta.Name, meta.Terms, meta.Version, meta.Checksum[:12])
	})
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	store, err := openStore(configFrom(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List()
	if err != nil {
		return err
	}
	return printer(cmd, list, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tVERSION\tTERMS\tGENES\tOMIM\tORPHA\tCREATED")
		for _, m := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				m.Name, m.Version, m.Terms, m.Genes, m.OmimDiseases, m.OrphaDiseases,
				m.CreatedAt.Format(time.RFC3339))
		}
		tw.Flush()
	})
}

func runSnapshotDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore(configFrom(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

// =============================================================================
// Server
// =============================================================================

func runServe(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd)
	if cmd.Flags().Changed("address") {
		cfg.Server.Address, _ = cmd.Flags().GetString("address")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	slog.Info("starting phenograph", "version", version, "config", cfg.String())
	ont, err := load(cmd)
	if err != nil {
		return err
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Address = cfg.Server.Address
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = cfg.Server.ReadTimeout
	serverConfig.WriteTimeout = cfg.Server.WriteTimeout
	serverConfig.CacheSize = cfg.Server.CacheSize
	serverConfig.CacheTTL = cfg.Server.CacheTTL
	serverConfig.Workers = cfg.Workers
	serverConfig.Kind = cfg.Similarity.Kind
	serverConfig.Method = cfg.Similarity.Method
	serverConfig.Combiner = cfg.Similarity.Combiner
	serverConfig.Linkage = cfg.Similarity.Linkage

	httpServer, err := server.New(ont, serverConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "phenograph %s serving %d terms on http://%s\n",
		ont.Version(), ont.Len(), httpServer.Addr())

	// Block until shutdown signal
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}

// =============================================================================
// Output helpers
// =============================================================================

type termView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func termList(ont *ontology.Ontology, g ontology.Group) []termView {
	out := make([]termView, 0, g.Len())
	for id := range g.All() {
		out = append(out, termView{ID: id.String(), Name: ont.MustTerm(id).Name()})
	}
	return out
}

func printTerms(w io.Writer, label string, ont *ontology.Ontology, g ontology.Group) {
	if g.IsEmpty() {
		return
	}
	names := make([]string, 0, g.Len())
	for id := range g.All() {
		names = append(names, ont.MustTerm(id).String())
	}
	fmt.Fprintf(w, "  %s:\n    %s\n", label, strings.Join(names, "\n    "))
}
