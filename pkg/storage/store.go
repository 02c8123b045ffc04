// Package storage keeps named ontology snapshots in BadgerDB.
//
// Key Structure:
//   - Snapshot data: 0x01 + name -> snapshot bytes (see package snapshot)
//   - Metadata:      0x02 + name -> JSON(Metadata)
//
// Example:
//
//	store, err := storage.Open(storage.Options{DataDir: "./data/store"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	meta, err := store.Save("hpo-2024-04-26", ont)
//	...
//	ont, err = store.Load("hpo-2024-04-26")
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/snapshot"
)

const (
	prefixSnapshot = byte(0x01) // snapshot:name -> bytes
	prefixMetadata = byte(0x02) // metadata:name -> JSON
)

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("snapshot store closed")

// Metadata describes a stored snapshot.
type Metadata struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	Terms         int       `json:"terms"`
	Genes         int       `json:"genes"`
	OmimDiseases  int       `json:"omim_diseases"`
	OrphaDiseases int       `json:"orpha_diseases"`
	Checksum      string    `json:"checksum"`
	Size          int       `json:"size"`
	CreatedAt     time.Time `json:"created_at"`
}

// Options configures the store.
type Options struct {
	// DataDir is the badger directory. Required unless InMemory is set.
	DataDir string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool

	// Logger receives badger's internal messages. Nil keeps badger quiet.
	Logger *slog.Logger
}

// Store is a badger-backed snapshot store. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool

	// now is replaced in tests.
	now func() time.Time
}

// Open opens or creates a store.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" && !opts.InMemory {
		return nil, fmt.Errorf("%w: snapshot store needs a data directory", ontology.ErrInvalidInput)
	}
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(badgerLogger{opts.Logger})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// Snapshots are a few MB at most; keep badger's footprint small.
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

func snapshotKey(name string) []byte {
	return append([]byte{prefixSnapshot}, name...)
}

func metadataKey(name string) []byte {
	return append([]byte{prefixMetadata}, name...)
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty snapshot name", ontology.ErrInvalidInput)
	}
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save encodes o and stores it under name, replacing any earlier snapshot
// with the same name.
func (s *Store) Save(name string, o *ontology.Ontology) (Metadata, error) {
	if err := validName(name); err != nil {
		return Metadata{}, err
	}
	if err := s.checkOpen(); err != nil {
		return Metadata{}, err
	}

	data, err := snapshot.Encode(o)
	if err != nil {
		return Metadata{}, err
	}
	sum, err := snapshot.Checksum(data)
	if err != nil {
		return Metadata{}, err
	}
	meta := Metadata{
		Name:          name,
		Version:       o.Version(),
		Terms:         o.Len(),
		Genes:         o.EntityCount(ontology.KindGene),
		OmimDiseases:  o.EntityCount(ontology.KindOmim),
		OrphaDiseases: o.EntityCount(ontology.KindOrpha),
		Checksum:      sum,
		Size:          len(data),
		CreatedAt:     s.now().UTC(),
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return Metadata{}, fmt.Errorf("marshaling metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(snapshotKey(name), data); err != nil {
			return err
		}
		return txn.Set(metadataKey(name), encoded)
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	s.logger.Info("snapshot saved", "name", name, "version", meta.Version, "bytes", meta.Size)
	return meta, nil
}

// Load rebuilds the ontology stored under name.
func (s *Store) Load(name string) (*ontology.Ontology, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(name))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: snapshot %q", ontology.ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	o, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", name, err)
	}
	return o, nil
}

// Metadata returns the metadata stored for name.
func (s *Store) Metadata(name string) (Metadata, error) {
	if err := s.checkOpen(); err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(name))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: snapshot %q", ontology.ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeMetadata(val, &meta)
		})
	})
	return meta, err
}

// List returns the metadata of every stored snapshot ordered by name.
func (s *Store) List() ([]Metadata, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixMetadata}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var meta Metadata
			if err := it.Item().Value(func(val []byte) error {
				return decodeMetadata(val, &meta)
			}); err != nil {
				return err
			}
			out = append(out, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b Metadata) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Delete removes the snapshot stored under name.
func (s *Store) Delete(name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metadataKey(name)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: snapshot %q", ontology.ErrNotFound, name)
		} else if err != nil {
			return err
		}
		if err := txn.Delete(snapshotKey(name)); err != nil {
			return err
		}
		return txn.Delete(metadataKey(name))
	})
	if err != nil {
		return err
	}
	s.logger.Info("snapshot deleted", "name", name)
	return nil
}

// RunGC runs garbage collection on the value log. badger.ErrNoRewrite
// means there was nothing to collect and is not reported.
func (s *Store) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return err
	}
	return nil
}

// Close closes the store. Calling it twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func decodeMetadata(data []byte, meta *Metadata) error {
	if err := json.Unmarshal(data, meta); err != nil {
		return fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return nil
}

// badgerLogger forwards badger's printf-style logging to slog.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
