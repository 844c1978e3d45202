package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Store accessors when the named entry does not
// exist in the document.
var ErrNotFound = errors.New("not found")

// Store owns the on-disk topology document. A compiler or reconciler run
// obtains one snapshot at its start and never re-reads mid-run; later edits
// through the Store become visible on the next Load.
type Store struct {
	path string

	mu  sync.Mutex // guards doc
	doc *Document

	upMu sync.Mutex // serializes Update read-modify-write cycles
}

// NewStore creates a store for the document at path. Nothing is read until
// Load or Snapshot is called.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and parses the document from disk, applying defaults and
// capturing stream declaration order. It refuses documents that are not
// format version 2.0.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read topology document: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return doc, nil
}

// Parse decodes a topology document from raw JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse topology document: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("topology document version %q not supported, migrate to %q first", doc.Version, Version)
	}

	doc.initCollections()
	doc.applyDefaults()
	return &doc, nil
}

// Snapshot returns the cached document, loading it on first use.
func (s *Store) Snapshot() (*Document, error) {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	if doc != nil {
		return doc, nil
	}
	return s.Load()
}

// Save rewrites the whole document, first copying the previous version to
// <path>.bak. The write itself goes through a same-directory temp file and
// rename so readers never observe a partial document.
func (s *Store) Save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal topology document: %w", err)
	}
	data = append(data, '\n')

	if err := s.backup(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snappy-doc-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install document: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// backup copies the current document to <path>.bak if it exists.
func (s *Store) backup() error {
	src, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open document for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(s.path + ".bak")
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	return dst.Close()
}

// Update applies fn to the current document and saves the result.
// Read-modify-write cycles are serialized so concurrent HTTP edits cannot
// lose updates.
func (s *Store) Update(fn func(doc *Document) error) error {
	s.upMu.Lock()
	defer s.upMu.Unlock()

	doc, err := s.Snapshot()
	if err != nil {
		return err
	}
	// Work on a copy so a rejected mutation never leaks into the cache.
	copied, err := doc.Clone()
	if err != nil {
		return err
	}
	if err := fn(copied); err != nil {
		return err
	}
	return s.Save(copied)
}
