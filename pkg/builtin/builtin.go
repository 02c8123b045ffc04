// Package builtin ships a small HPO subset inside the binary so the engine
// works without any data files.
//
// The subset holds 40 terms (slices of the head, eye, nervous system,
// cardiovascular, onset and inheritance branches), 8 genes, 6 OMIM and 3 Orphanet diseases. It is
// sized for tests, demos and smoke checks, not for clinical scoring: load a
// full release with --data-dir, or a snapshot made from one with
// "phenograph snapshot build", for real work.
//
// The files are embedded in their text form and parsed on first use with
// the same loader as a data directory.
package builtin

import (
	"context"
	"embed"
	"io/fs"
	"sync"

	"github.com/orneryd/phenograph/pkg/obo"
	"github.com/orneryd/phenograph/pkg/ontology"
)

//go:embed data/hp.obo data/phenotype.hpoa data/genes_to_phenotype.txt
var files embed.FS

// Label names the builtin source in logs and errors.
const Label = "builtin"

var load = sync.OnceValues(func() (*ontology.Ontology, error) {
	return obo.Load(context.Background(), FS(), Label, obo.Options{})
})

// FS exposes the embedded source files laid out like a data directory.
func FS() fs.FS {
	sub, err := fs.Sub(files, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Load returns the builtin ontology. It is built on first use and shared
// afterwards.
func Load() (*ontology.Ontology, error) {
	return load()
}
