// Package obo builds an ontology from the HPO text distribution: hp.obo,
// phenotype.hpoa and genes_to_phenotype.txt (or phenotype_to_genes.txt in
// transitive mode).
package obo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orneryd/phenograph/pkg/ontology"
)

// Source file names inside a data directory.
const (
	OntologyFile       = "hp.obo"
	DiseaseFile        = "phenotype.hpoa"
	GeneFile           = "genes_to_phenotype.txt"
	TransitiveGeneFile = "phenotype_to_genes.txt"
)

const scannerBufferSize = 1 << 20 // 1 MB

var tracer = otel.Tracer("phenograph.obo")

// Options controls how sources are read.
type Options struct {
	// Transitive reads gene annotations from phenotype_to_genes.txt, which
	// already lists every ancestor term per gene.
	Transitive bool
	Logger     *slog.Logger
}

// LineError locates a parse failure within a source file.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// LoadDir reads all source files from dir and builds an ontology.
func LoadDir(ctx context.Context, dir string, opts Options) (*ontology.Ontology, error) {
	return Load(ctx, os.DirFS(dir), dir, opts)
}

// Load reads all source files from fsys and builds an ontology. label
// prefixes file names in errors and logs.
func Load(ctx context.Context, fsys fs.FS, label string, opts Options) (*ontology.Ontology, error) {
	_, span := tracer.Start(ctx, "obo.Load", trace.WithAttributes(
		attribute.String("source", label),
		attribute.Bool("transitive", opts.Transitive),
	))
	defer span.End()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	b := ontology.NewBuilder().WithLogger(logger)
	geneFile, parseGenes := GeneFile, ParseGenes
	if opts.Transitive {
		geneFile, parseGenes = TransitiveGeneFile, ParseTransitiveGenes
	}
	steps := []struct {
		name  string
		parse func(io.Reader, *ontology.Builder) error
	}{
		{OntologyFile, ParseTerms},
		{geneFile, parseGenes},
		{DiseaseFile, ParseDiseases},
	}
	for _, step := range steps {
		if err := parseFile(fsys, label, step.name, b, step.parse); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "parse failed")
			return nil, err
		}
	}

	ont, err := b.Build()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("terms", ont.Len()),
		attribute.Int("genes", ont.EntityCount(ontology.KindGene)),
	)
	logger.Info("ontology loaded",
		"source", label,
		"version", ont.Version(),
		"terms", ont.Len(),
		"genes", ont.EntityCount(ontology.KindGene),
		"omim_diseases", ont.EntityCount(ontology.KindOmim),
		"orpha_diseases", ont.EntityCount(ontology.KindOrpha),
		"elapsed", time.Since(start))
	return ont, nil
}

func parseFile(fsys fs.FS, label, name string, b *ontology.Builder, parse func(io.Reader, *ontology.Builder) error) error {
	display := filepath.Join(label, name)
	f, err := fsys.Open(name)
	if err != nil {
		return &ontology.FileError{Path: display, Err: err}
	}
	defer f.Close()

	if err := parse(f, b); err != nil {
		var le *LineError
		if errors.As(err, &le) {
			return &ontology.FileError{Path: display, Line: le.Line, Err: le.Err}
		}
		return &ontology.FileError{Path: display, Err: err}
	}
	return nil
}
