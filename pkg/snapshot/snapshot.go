// Package snapshot encodes an ontology into a compact binary form and
// rebuilds it again.
//
// Layout:
//
//	"PHG1" | zstd(payload) | blake2b-256(magic | compressed payload)
//
// The payload is big-endian: the version string, then every term (id,
// name, flags, replacement, parents), then genes, OMIM diseases and
// Orphanet diseases (id, name, annotated terms; genes also list their OMIM
// diseases). Decoding runs the same validation as any other source.
package snapshot

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/orneryd/phenograph/pkg/ontology"
)

const (
	magic        = "PHG1"
	checksumSize = blake2b.Size256

	flagObsolete = 1 << 0
)

// ErrCorrupt is returned for snapshots that fail the magic or checksum
// check or end early. It wraps ontology.ErrConstruction.
var ErrCorrupt = fmt.Errorf("%w: corrupt snapshot", ontology.ErrConstruction)

var (
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecOnce sync.Once
	codecErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return encoder, decoder, codecErr
}

// Encode serializes o.
func Encode(o *ontology.Ontology) ([]byte, error) {
	if o == nil {
		return nil, ontology.ErrNotInitialized
	}
	enc, _, err := codecs()
	if err != nil {
		return nil, err
	}

	w := &writer{}
	w.string(o.Version())

	w.u32(uint32(o.Len()))
	for term := range o.Terms() {
		w.u32(uint32(term.ID()))
		w.string(term.Name())
		var flags uint8
		if term.IsObsolete() {
			flags |= flagObsolete
		}
		w.u8(flags)
		repl, _ := term.ReplacedBy()
		w.u32(uint32(repl))
		w.terms(term.Parents())
	}

	genes := o.Genes()
	w.u32(uint32(len(genes)))
	for _, g := range genes {
		w.u32(uint32(g.ID()))
		w.string(g.Symbol())
		w.terms(g.Terms())
		diseases := g.OmimDiseases()
		w.u32(uint32(len(diseases)))
		for _, d := range diseases {
			w.u32(uint32(d))
		}
	}

	omim := o.OmimDiseases()
	w.u32(uint32(len(omim)))
	for _, d := range omim {
		w.u32(uint32(d.ID()))
		w.string(d.Name())
		w.terms(d.Terms())
	}

	orpha := o.OrphaDiseases()
	w.u32(uint32(len(orpha)))
	for _, d := range orpha {
		w.u32(uint32(d.ID()))
		w.string(d.Name())
		w.terms(d.Terms())
	}

	out := make([]byte, 0, len(w.buf)/3+len(magic)+checksumSize)
	out = append(out, magic...)
	out = enc.EncodeAll(w.buf, out)
	sum := blake2b.Sum256(out)
	return append(out, sum[:]...), nil
}

// Decode rebuilds an ontology from data produced by Encode.
func Decode(data []byte) (*ontology.Ontology, error) {
	payload, err := verify(data)
	if err != nil {
		return nil, err
	}
	_, dec, err := codecs()
	if err != nil {
		return nil, err
	}
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	r := &reader{buf: raw}
	b := ontology.NewBuilder()
	b.SetVersion(r.string())

	for n := r.u32(); n > 0 && r.err == nil; n-- {
		t := ontology.RawTerm{ID: ontology.TermID(r.u32()), Name: r.string()}
		t.Obsolete = r.u8()&flagObsolete != 0
		t.ReplacedBy = ontology.TermID(r.u32())
		t.Parents = r.terms()
		if r.err != nil {
			break
		}
		if err := b.AddTerm(t); err != nil {
			return nil, err
		}
	}

	for n := r.u32(); n > 0 && r.err == nil; n-- {
		id, name, terms := r.u32(), r.string(), r.terms()
		b.AddEntity(ontology.KindGene, id, name)
		for _, t := range terms {
			if err := b.Annotate(ontology.KindGene, id, t); err != nil {
				return nil, err
			}
		}
		for m := r.u32(); m > 0 && r.err == nil; m-- {
			b.LinkGeneDisease(ontology.GeneID(id), ontology.OmimDiseaseID(r.u32()))
		}
	}
	for _, kind := range []ontology.EntityKind{ontology.KindOmim, ontology.KindOrpha} {
		for n := r.u32(); n > 0 && r.err == nil; n-- {
			id, name, terms := r.u32(), r.string(), r.terms()
			b.AddEntity(kind, id, name)
			for _, t := range terms {
				if err := b.Annotate(kind, id, t); err != nil {
					return nil, err
				}
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != r.pos {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.buf)-r.pos)
	}
	return b.Build()
}

func verify(data []byte) ([]byte, error) {
	if len(data) < len(magic)+checksumSize || !bytes.HasPrefix(data, []byte(magic)) {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	body, sum := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	want := blake2b.Sum256(body)
	if !bytes.Equal(want[:], sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return body[len(magic):], nil
}

// Checksum returns the hex encoded checksum stored in a snapshot.
func Checksum(data []byte) (string, error) {
	if _, err := verify(data); err != nil {
		return "", err
	}
	return hex.EncodeToString(data[len(data)-checksumSize:]), nil
}

// WriteFile encodes o into path.
func WriteFile(path string, o *ontology.Ontology) error {
	data, err := Encode(o)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes the snapshot stored at path. Failures name the file.
func ReadFile(path string) (*ontology.Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ontology.FileError{Path: path, Err: err}
	}
	o, err := Decode(data)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return nil, &ontology.FileError{Path: path, Err: err}
		}
		return nil, err
	}
	return o, nil
}
