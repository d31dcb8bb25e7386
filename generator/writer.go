package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/erraggy/toolsetgen/internal/fileutil"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/tserrors"
)

// Output file names.
const (
	ModuleFile   = "toolset.go"
	RegistryFile = "registry.go"
	IndexFile    = "toolsets.json"
)

// Module is one generated toolset ready to persist.
type Module struct {
	// Name is the toolset name
	Name string
	// Package is the Go package name, used as the directory name
	Package string
	// Source is the formatted Go source
	Source []byte
}

// Writer is the output collaborator.
type Writer interface {
	// WriteModule persists one toolset module.
	WriteModule(ctx context.Context, m Module) error
	// WriteRegistry persists the registry source and index.
	WriteRegistry(ctx context.Context, r *Registry) error
}

// IndexReader is implemented by writers that keep the registry of earlier
// runs. Generate merges into it so a filtered run keeps the other entries.
type IndexReader interface {
	// ReadRegistry returns the persisted registry, or nil when there is none.
	ReadRegistry(ctx context.Context) (*Registry, error)
}

// Registry is the index of the toolsets a run generated successfully.
type Registry struct {
	// ModulePath is the import path of the output directory
	ModulePath string
	// GeneratorVersion is the version that produced the registry
	GeneratorVersion string
	// Entries are in selection order, one per toolset name
	Entries []rendercontext.RegistryEntry
	// Source is the rendered registry.go
	Source []byte
}

// Names returns the toolset names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Name)
	}
	return names
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (rendercontext.RegistryEntry, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return rendercontext.RegistryEntry{}, false
}

// Index maps toolset name to the import path of its module.
func (r *Registry) Index() map[string]string {
	idx := make(map[string]string, len(r.Entries))
	for _, e := range r.Entries {
		idx[e.Name] = e.ImportPath
	}
	return idx
}

// indexDocument is the JSON form of the registry written to toolsets.json.
type indexDocument struct {
	GeneratorVersion string       `json:"generator_version"`
	ModulePath       string       `json:"module_path"`
	Toolsets         []indexEntry `json:"toolsets"`
}

type indexEntry struct {
	Name        string `json:"name"`
	Package     string `json:"package"`
	ImportPath  string `json:"import_path"`
	DisplayName string `json:"display_name"`
	Operations  int    `json:"operations"`
}

// MarshalIndex returns the toolsets.json document.
func (r *Registry) MarshalIndex() ([]byte, error) {
	doc := indexDocument{
		GeneratorVersion: r.GeneratorVersion,
		ModulePath:       r.ModulePath,
		Toolsets:         make([]indexEntry, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		doc.Toolsets = append(doc.Toolsets, indexEntry(e))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ReadIndex loads the registry index from dir/toolsets.json. The returned
// registry has no Source.
func ReadIndex(dir string) (*Registry, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}
	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("generator: decode %s: %w", IndexFile, err)
	}
	reg := &Registry{ModulePath: doc.ModulePath, GeneratorVersion: doc.GeneratorVersion}
	for _, e := range doc.Toolsets {
		reg.Entries = append(reg.Entries, rendercontext.RegistryEntry(e))
	}
	return reg, nil
}

// DirWriter writes toolsets below a root directory:
//
//	<root>/<package>/toolset.go
//	<root>/registry.go
//	<root>/toolsets.json
//
// Existing module files are overwritten. The index accumulates across runs
// until Clean removes it.
type DirWriter struct {
	root string
}

// NewDirWriter returns a DirWriter rooted at root.
func NewDirWriter(root string) *DirWriter {
	return &DirWriter{root: root}
}

// Root returns the output directory.
func (w *DirWriter) Root() string {
	return w.root
}

// WriteModule implements Writer.
func (w *DirWriter) WriteModule(_ context.Context, m Module) error {
	if m.Package == "" || filepath.Base(m.Package) != m.Package || m.Package == "." || m.Package == ".." {
		return &tserrors.OutputError{Target: m.Name, Message: fmt.Sprintf("invalid package directory %q", m.Package)}
	}
	dir := filepath.Join(w.root, m.Package)
	if err := os.MkdirAll(dir, fileutil.DirReadableByAll); err != nil {
		return &tserrors.OutputError{Target: m.Name, Message: "create directory", Cause: err}
	}
	if err := os.WriteFile(filepath.Join(dir, ModuleFile), m.Source, fileutil.ReadableByAll); err != nil {
		return &tserrors.OutputError{Target: m.Name, Message: "write " + ModuleFile, Cause: err}
	}
	return nil
}

// ReadRegistry implements IndexReader.
func (w *DirWriter) ReadRegistry(_ context.Context) (*Registry, error) {
	reg, err := ReadIndex(w.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return reg, err
}

// WriteRegistry implements Writer.
func (w *DirWriter) WriteRegistry(_ context.Context, r *Registry) error {
	if err := os.MkdirAll(w.root, fileutil.DirReadableByAll); err != nil {
		return &tserrors.OutputError{Target: "registry", Message: "create directory", Cause: err}
	}
	index, err := r.MarshalIndex()
	if err != nil {
		return &tserrors.OutputError{Target: IndexFile, Message: "encode index", Cause: err}
	}
	files := []struct {
		name string
		data []byte
	}{
		{RegistryFile, r.Source},
		{IndexFile, index},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(w.root, f.name), f.data, fileutil.ReadableByAll); err != nil {
			return &tserrors.OutputError{Target: f.name, Cause: err}
		}
	}
	return nil
}

// Clean removes the output listed in root/toolsets.json: every package
// directory, the registry source and the index itself. It returns the
// removed paths. A missing index removes nothing.
func Clean(root string) ([]string, error) {
	reg, err := ReadIndex(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range reg.Entries {
		if e.Package == "" || filepath.Base(e.Package) != e.Package {
			continue
		}
		dir := filepath.Join(root, e.Package)
		if err := os.RemoveAll(dir); err != nil {
			return removed, err
		}
		removed = append(removed, dir)
	}
	for _, name := range []string{RegistryFile, IndexFile} {
		p := filepath.Join(root, name)
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}
