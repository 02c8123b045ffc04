package obo

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/orneryd/phenograph/pkg/ontology"
)

const releasePrefix = "hp/releases/"

// ParseTerms reads the [Term] stanzas of an OBO document into b. Only id,
// name, is_a, is_obsolete and replaced_by are used; other stanzas and tags
// are skipped. The data-version header becomes the ontology version.
func ParseTerms(r io.Reader, b *ontology.Builder) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	var (
		cur       *ontology.RawTerm
		inHeader  = true
		lineNo    int
		startLine int
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		t := *cur
		cur = nil
		if t.ID == 0 {
			return &LineError{Line: startLine, Err: errors.New("term stanza without id")}
		}
		if err := b.AddTerm(t); err != nil {
			return &LineError{Line: startLine, Err: err}
		}
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			if err := flush(); err != nil {
				return err
			}
			inHeader = false
			if line == "[Term]" {
				cur = &ontology.RawTerm{}
				startLine = lineNo
			}
			continue
		}
		if line == "" || line[0] == '!' {
			continue
		}

		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if inHeader {
			if key == "data-version" {
				b.SetVersion(strings.TrimPrefix(val, releasePrefix))
			}
			continue
		}
		if cur == nil {
			continue // inside a non-Term stanza
		}

		switch key {
		case "id":
			id, err := ontology.ParseTermID(val)
			if err != nil {
				return &LineError{Line: lineNo, Err: err}
			}
			cur.ID = id
		case "name":
			cur.Name = val
		case "is_a":
			target, _, _ := strings.Cut(val, " ! ")
			id, err := ontology.ParseTermID(target)
			if err != nil {
				return &LineError{Line: lineNo, Err: err}
			}
			cur.Parents = append(cur.Parents, id)
		case "is_obsolete":
			cur.Obsolete = val == "true"
		case "replaced_by":
			id, err := ontology.ParseTermID(val)
			if err != nil {
				return &LineError{Line: lineNo, Err: err}
			}
			cur.ReplacedBy = id
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}
