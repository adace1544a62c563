// Package session manages the lifecycle of a single open index: directory
// resolution, opening and closing readers, write locking, and change
// notification through the event bus.
package session

import (
	stderrs "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/seekerlabs/indexscope/internal/errors"
)

// DirScorch is the on-disk directory implementation.
const DirScorch = "scorch"

// DirMem is the in-memory directory implementation, mostly for tests and
// scratch sessions.
const DirMem = "mem"

// Directory abstracts how an index at a path gets validated and opened.
type Directory interface {
	Name() string
	Validate(path string) error
	Open(path string, readOnly bool) (bleve.Index, error)
}

var (
	dirMu    sync.RWMutex
	dirImpls = map[string]Directory{
		DirScorch: scorchDirectory{},
		DirMem:    memDirectory{},
	}
)

// RegisterDirectory adds a directory implementation to the registry,
// replacing any previous implementation with the same name.
func RegisterDirectory(d Directory) {
	dirMu.Lock()
	defer dirMu.Unlock()
	dirImpls[d.Name()] = d
}

// LookupDirectory resolves a directory implementation by name.
func LookupDirectory(name string) (Directory, error) {
	dirMu.RLock()
	defer dirMu.RUnlock()
	d, ok := dirImpls[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownDirImpl,
			fmt.Sprintf("unknown directory implementation %q", name), nil).
			WithSuggestion(fmt.Sprintf("available implementations: %v", directoryNamesLocked()))
	}
	return d, nil
}

// DirectoryNames lists the registered implementations in sorted order.
func DirectoryNames() []string {
	dirMu.RLock()
	defer dirMu.RUnlock()
	return directoryNamesLocked()
}

func directoryNamesLocked() []string {
	names := make([]string, 0, len(dirImpls))
	for name := range dirImpls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// scorchDirectory opens persistent indexes from disk.
type scorchDirectory struct{}

func (scorchDirectory) Name() string { return DirScorch }

func (scorchDirectory) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.New(errors.ErrCodeIndexNotFound,
			fmt.Sprintf("index path %s does not exist", path), err)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeInvalidPath,
			fmt.Sprintf("index path %s is not a directory", path), nil)
	}
	if _, err := os.Stat(filepath.Join(path, "index_meta.json")); err != nil {
		return errors.New(errors.ErrCodeIndexCorrupt,
			fmt.Sprintf("index path %s has no index metadata", path), err).
			WithSuggestion("verify the path points at an index root, not its parent")
	}
	return nil
}

func (scorchDirectory) Open(path string, readOnly bool) (bleve.Index, error) {
	runtimeConfig := map[string]interface{}{}
	if readOnly {
		runtimeConfig["read_only"] = true
	}
	idx, err := bleve.OpenUsing(path, runtimeConfig)
	if err != nil {
		return nil, mapOpenError(path, err)
	}
	return idx, nil
}

func mapOpenError(path string, err error) error {
	switch {
	case stderrs.Is(err, bleve.ErrorIndexPathDoesNotExist):
		return errors.New(errors.ErrCodeIndexNotFound,
			fmt.Sprintf("no index at %s", path), err)
	case stderrs.Is(err, bleve.ErrorIndexMetaMissing),
		stderrs.Is(err, bleve.ErrorIndexMetaCorrupt):
		return errors.New(errors.ErrCodeIndexCorrupt,
			fmt.Sprintf("index metadata at %s is missing or corrupt", path), err)
	default:
		return errors.New(errors.ErrCodeIndexOpen,
			fmt.Sprintf("open index at %s", path), err)
	}
}

// memDirectory builds throwaway in-memory indexes. Any path is accepted
// and acts only as a session label.
type memDirectory struct{}

func (memDirectory) Name() string { return DirMem }

func (memDirectory) Validate(string) error { return nil }

func (memDirectory) Open(path string, readOnly bool) (bleve.Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, errors.New(errors.ErrCodeIndexOpen,
			fmt.Sprintf("create in-memory index for %s", path), err)
	}
	return idx, nil
}
