package server

import (
	"cmp"
	"net/http"
	"strings"
	"time"

	"github.com/orneryd/phenograph/pkg/enrichment"
	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/linkage"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/similarity"
)

// TermResponse describes one term.
type TermResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Obsolete           bool     `json:"obsolete"`
	ReplacedBy         string   `json:"replaced_by,omitempty"`
	Parents            []string `json:"parents"`
	Children           []string `json:"children"`
	Categories         []string `json:"categories"`
	InformationContent ICValues `json:"information_content"`
	Genes              int      `json:"genes"`
	OmimDiseases       int      `json:"omim_diseases"`
	OrphaDiseases      int      `json:"orpha_diseases"`
}

// ICValues is the information content of a term per kind.
type ICValues struct {
	Gene   float64 `json:"gene"`
	Omim   float64 `json:"omim"`
	Orpha  float64 `json:"orpha"`
	Custom float64 `json:"custom"`
}

// TermSummary is the short form of a term used in listings.
type TermSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PathResponse is the answer to GET /path.
type PathResponse struct {
	Distance       int           `json:"distance"`
	Terms          []TermSummary `json:"terms"`
	StepsUp        int           `json:"steps_up"`
	StepsDown      int           `json:"steps_down"`
	CommonAncestor string        `json:"common_ancestor"`
}

// SetPair is two term sets given as ids, HP: ids or names.
type SetPair struct {
	A []string `json:"a"`
	B []string `json:"b"`
}

// SimilarityRequest is the body of POST /similarity. Empty choices fall
// back to the server defaults.
type SimilarityRequest struct {
	Pairs    []SetPair `json:"pairs"`
	Method   string    `json:"method"`
	Kind     string    `json:"kind"`
	Combiner string    `json:"combiner"`
	// Preset reduces every set before scoring: none, basic or pheno.
	Preset string `json:"preset"`
}

// SimilarityResponse holds one score per requested pair.
type SimilarityResponse struct {
	Method   string    `json:"method"`
	Kind     string    `json:"kind"`
	Combiner string    `json:"combiner"`
	Scores   []float64 `json:"scores"`
}

// EnrichmentRequest is the body of POST /enrichment.
type EnrichmentRequest struct {
	Sets [][]string `json:"sets"`
	// Kind is gene, omim or orpha (default gene).
	Kind   string `json:"kind"`
	Method string `json:"method"`
	// Limit keeps the best results per set, 0 keeps all.
	Limit  int    `json:"limit"`
	Preset string `json:"preset"`
}

// EnrichmentRow is one enriched entity.
type EnrichmentRow struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	PValue float64 `json:"pvalue"`
	Fold   float64 `json:"enrichment"`
}

// EnrichmentResponse holds the results per requested set.
type EnrichmentResponse struct {
	Kind    string            `json:"kind"`
	Results [][]EnrichmentRow `json:"results"`
}

// LinkageRequest is the body of POST /linkage.
type LinkageRequest struct {
	Sets             [][]string `json:"sets"`
	Method           string     `json:"method"`
	SimilarityMethod string     `json:"similarity_method"`
	Kind             string     `json:"kind"`
	Combiner         string     `json:"combiner"`
	Preset           string     `json:"preset"`
}

// LinkageResponse lists the merges in order.
type LinkageResponse struct {
	Method   string            `json:"method"`
	Clusters []linkage.Cluster `json:"clusters"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"time":           time.Now().Format(time.RFC3339),
		"uptime_seconds": time.Since(s.started).Seconds(),
		"version":        s.ont.Version(),
		"terms":          s.ont.Len(),
	})
}

func (s *Server) handleTerm(w http.ResponseWriter, r *http.Request) {
	t, err := s.ont.TermByQuery(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ic := t.InformationContent()
	resp := TermResponse{
		ID:         t.ID().String(),
		Name:       t.Name(),
		Obsolete:   t.IsObsolete(),
		Parents:    idStrings(t.Parents()),
		Children:   idStrings(t.Children()),
		Categories: idStrings(t.Categories()),
		InformationContent: ICValues{
			Gene:   ic.Gene,
			Omim:   ic.Omim,
			Orpha:  ic.Orpha,
			Custom: ic.Custom,
		},
		Genes:         len(t.Genes()),
		OmimDiseases:  len(t.OmimDiseases()),
		OrphaDiseases: len(t.OrphaDiseases()),
	}
	if id, ok := t.ReplacedBy(); ok {
		resp.ReplacedBy = id.String()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := parseIntQuery(r, "limit", 25)
	matches := s.ont.Search(q)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]TermSummary, len(matches))
	for i, t := range matches {
		out[i] = summary(t)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"query": q, "terms": out})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	a, err := s.ont.TermByQuery(r.URL.Query().Get("a"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.ont.TermByQuery(r.URL.Query().Get("b"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.ont.PathBetween(a.ID(), b.ID())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	terms := make([]TermSummary, len(p.Terms))
	for i, id := range p.Terms {
		terms[i] = summary(s.ont.MustTerm(id))
	}
	s.writeJSON(w, http.StatusOK, PathResponse{
		Distance:       p.Distance,
		Terms:          terms,
		StepsUp:        p.StepsUp,
		StepsDown:      p.StepsDown,
		CommonAncestor: p.CommonAncestor.String(),
	})
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	var req SimilarityRequest
	if err := s.readJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	method := cmp.Or(req.Method, s.config.Method)
	kind := cmp.Or(req.Kind, s.config.Kind)
	combiner := cmp.Or(req.Combiner, s.config.Combiner)
	group, err := similarity.NewGroupByName(method, kind, combiner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	preset, err := hposet.ParsePreset(req.Preset)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	pairs := make([]similarity.SetPair, len(req.Pairs))
	for i, p := range req.Pairs {
		if pairs[i].A, err = hposet.FromQueries(s.ont, p.A...); err != nil {
			s.fail(w, r, err)
			return
		}
		if pairs[i].B, err = hposet.FromQueries(s.ont, p.B...); err != nil {
			s.fail(w, r, err)
			return
		}
		pairs[i].A, pairs[i].B = preset.Apply(pairs[i].A), preset.Apply(pairs[i].B)
	}
	scores, err := similarity.BatchSetSimilarity(r.Context(), group, pairs, s.config.Workers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SimilarityResponse{
		Method:   group.Term().Method().String(),
		Kind:     kind,
		Combiner: group.Combiner().String(),
		Scores:   scores,
	})
}

func (s *Server) handleEnrichment(w http.ResponseWriter, r *http.Request) {
	var req EnrichmentRequest
	if err := s.readJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := enrichment.CheckMethod(req.Method); err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := ontology.ParseEntityKind(cmp.Or(req.Kind, "gene"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	model, err := enrichment.NewModel(s.ont, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sets, err := s.resolveSets(req.Sets, req.Preset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	batches, err := enrichment.Batch(r.Context(), model, sets, s.config.Workers)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := EnrichmentResponse{Kind: kind.String(), Results: make([][]EnrichmentRow, len(batches))}
	for i, results := range batches {
		if req.Limit > 0 && len(results) > req.Limit {
			results = results[:req.Limit]
		}
		rows := make([]EnrichmentRow, len(results))
		for j, res := range results {
			rows[j] = EnrichmentRow{
				ID:     entityID(res.Entity),
				Name:   res.Entity.Name(),
				Count:  res.Count,
				PValue: res.PValue,
				Fold:   res.Fold,
			}
		}
		resp.Results[i] = rows
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLinkage(w http.ResponseWriter, r *http.Request) {
	var req LinkageRequest
	if err := s.readJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	opts, err := linkage.OptionsFromNames(
		cmp.Or(req.Method, s.config.Linkage),
		cmp.Or(req.SimilarityMethod, s.config.Method),
		cmp.Or(req.Kind, s.config.Kind),
		cmp.Or(req.Combiner, s.config.Combiner),
	)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts.Workers = s.config.Workers

	sets, err := s.resolveSets(req.Sets, req.Preset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	clusters, err := linkage.Linkage(r.Context(), sets, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LinkageResponse{Method: opts.Method.String(), Clusters: clusters})
}

func (s *Server) resolveSets(queries [][]string, presetName string) ([]*hposet.Set, error) {
	preset, err := hposet.ParsePreset(presetName)
	if err != nil {
		return nil, err
	}
	sets := make([]*hposet.Set, len(queries))
	for i, q := range queries {
		set, err := hposet.FromQueries(s.ont, q...)
		if err != nil {
			return nil, err
		}
		sets[i] = preset.Apply(set)
	}
	return sets, nil
}

func summary(t ontology.Term) TermSummary {
	return TermSummary{ID: t.ID().String(), Name: t.Name()}
}

func idStrings(g ontology.Group) []string {
	out := make([]string, 0, g.Len())
	for id := range g.All() {
		out = append(out, id.String())
	}
	return out
}

func entityID(a ontology.Annotation) string {
	switch e := a.(type) {
	case ontology.Gene:
		return e.ID().String()
	case ontology.OmimDisease:
		return e.ID().String()
	case ontology.OrphaDisease:
		return e.ID().String()
	default:
		return a.Kind().String()
	}
}
