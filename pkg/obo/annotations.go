package obo

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/orneryd/phenograph/pkg/ontology"
)

// column layout of a tab separated gene annotation file
type geneColumns struct {
	header  string
	gene    int
	symbol  int
	term    int
	disease int
	minimum int
}

var (
	directGeneColumns = geneColumns{
		header: "ncbi_gene_id", gene: 0, symbol: 1, term: 2, disease: 5, minimum: 3,
	}
	transitiveGeneColumns = geneColumns{
		header: "hpo_id", gene: 2, symbol: 3, term: 0, disease: 4, minimum: 4,
	}
)

// ParseGenes reads genes_to_phenotype.txt:
// ncbi_gene_id, gene_symbol, hpo_id, hpo_name, frequency, disease_id.
func ParseGenes(r io.Reader, b *ontology.Builder) error {
	return parseGenes(r, b, directGeneColumns)
}

// ParseTransitiveGenes reads phenotype_to_genes.txt:
// hpo_id, hpo_name, ncbi_gene_id, gene_symbol, disease_id.
func ParseTransitiveGenes(r io.Reader, b *ontology.Builder) error {
	return parseGenes(r, b, transitiveGeneColumns)
}

func parseGenes(r io.Reader, b *ontology.Builder, cols geneColumns) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, cols.header) {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < cols.minimum {
			return &LineError{Line: lineNo, Err: fmt.Errorf("expected at least %d columns, got %d", cols.minimum, len(fields))}
		}

		geneID, err := parseGeneID(fields[cols.gene])
		if err != nil {
			return &LineError{Line: lineNo, Err: err}
		}
		term, err := ontology.ParseTermID(fields[cols.term])
		if err != nil {
			return &LineError{Line: lineNo, Err: err}
		}

		b.AddEntity(ontology.KindGene, geneID, strings.TrimSpace(fields[cols.symbol]))
		if err := b.Annotate(ontology.KindGene, geneID, term); err != nil {
			return &LineError{Line: lineNo, Err: err}
		}

		if cols.disease < len(fields) {
			prefix, disease, err := ontology.ParsePrefixedID(fields[cols.disease])
			if err == nil && prefix == "OMIM" {
				b.LinkGeneDisease(ontology.GeneID(geneID), ontology.OmimDiseaseID(disease))
			}
		}
	}
	return scanner.Err()
}

func parseGeneID(s string) (uint32, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "NCBIGene:")
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid gene id %q", ontology.ErrInvalidInput, s)
	}
	return uint32(n), nil
}

// ParseDiseases reads phenotype.hpoa. OMIM and ORPHA rows are kept, other
// databases are skipped, as are rows qualified with NOT.
func ParseDiseases(r io.Reader, b *ontology.Builder) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "database_id") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return &LineError{Line: lineNo, Err: fmt.Errorf("expected at least 4 columns, got %d", len(fields))}
		}
		if strings.TrimSpace(fields[2]) == "NOT" {
			continue
		}

		prefix, id, err := ontology.ParsePrefixedID(fields[0])
		if err != nil {
			return &LineError{Line: lineNo, Err: err}
		}
		var kind ontology.EntityKind
		switch prefix {
		case "OMIM":
			kind = ontology.KindOmim
		case "ORPHA":
			kind = ontology.KindOrpha
		default:
			continue
		}

		term, err := ontology.ParseTermID(fields[3])
		if err != nil {
			return &LineError{Line: lineNo, Err: err}
		}
		b.AddEntity(kind, id, strings.TrimSpace(fields[1]))
		if err := b.Annotate(kind, id, term); err != nil {
			return &LineError{Line: lineNo, Err: err}
		}
	}
	return scanner.Err()
}
