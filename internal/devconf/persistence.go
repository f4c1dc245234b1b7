package devconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

// versionKey is the one top-level key that is not a subsystem section.
const versionKey = "schemaVersion"

// Persistence reads and writes device configuration files. The format is
// chosen by extension: .yaml/.yml is YAML, anything else JSON.
type Persistence struct {
	fs    afero.Fs
	store *Store
}

// NewPersistence creates a persistence layer over fs. A nil fs means the
// real OS filesystem; tests pass afero.NewMemMapFs().
func NewPersistence(fs afero.Fs, store *Store) *Persistence {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if store == nil {
		store = NewStore()
	}
	return &Persistence{fs: fs, store: store}
}

// Read parses the file at path, migrates its schema if needed, and returns
// the canonicalized, default-filled tree. A missing file is a NotFound
// error; everything else wrong with the content is a Parse error naming
// the file.
func (p *Persistence) Read(path string) (interfaces.Tree, error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewNotFoundError(path)
		}
		return nil, NewParseError(path, "cannot read file", err)
	}

	decoded, err := decodeDocument(path, data)
	if err != nil {
		return nil, NewParseError(path, "malformed document", err)
	}
	doc, ok := canonicalValue(decoded).(map[string]any)
	if !ok {
		return nil, NewParseError(path, "document root must be a mapping", nil)
	}

	version := 1
	if raw, present := doc[versionKey]; present {
		v, isInt := raw.(int64)
		if !isInt {
			detail := fmt.Sprintf("%s must be an integer, got %v", versionKey, raw)
			return nil, NewParseError(path, detail, nil)
		}
		version = int(v)
	}

	tree := make(interfaces.Tree, len(doc))
	for key, value := range doc {
		if key == versionKey {
			continue
		}
		section, isMap := value.(map[string]any)
		if !isMap {
			detail := fmt.Sprintf("subsystem section '%s' must be a mapping, got %T", key, value)
			return nil, NewParseError(path, detail, nil)
		}
		tree[key] = interfaces.SubsystemConfig(section)
	}

	tree, err = migrate(path, version, tree)
	if err != nil {
		return nil, err
	}
	return p.store.Validate(tree), nil
}

// Write serializes the full tree, unrecognized keys included, plus the
// current schemaVersion. The document lands in a temp file in the target
// directory and is renamed into place, so a failure at any point leaves
// the previous file intact.
func (p *Persistence) Write(path string, tree interfaces.Tree) error {
	doc := make(map[string]any, len(tree)+1)
	doc[versionKey] = CurrentSchemaVersion
	for name, section := range canonicalTree(tree) {
		doc[name] = map[string]any(section)
	}

	data, err := encodeDocument(path, doc)
	if err != nil {
		return NewWriteError(path, err)
	}

	dir := filepath.Dir(path)
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return NewWriteError(path, err)
	}

	tmp, err := afero.TempFile(p.fs, dir, "."+filepath.Base(path)+".")
	if err != nil {
		return NewWriteError(path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		p.fs.Remove(tmpName)
		return NewWriteError(path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		p.fs.Remove(tmpName)
		return NewWriteError(path, err)
	}
	if err := tmp.Close(); err != nil {
		p.fs.Remove(tmpName)
		return NewWriteError(path, err)
	}

	if err := p.fs.Rename(tmpName, path); err != nil {
		p.fs.Remove(tmpName)
		return NewWriteError(path, err)
	}
	return nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// decodeDocument parses raw file content into a generic document. An empty
// or whitespace-only file is an empty document, which validation then fills
// with the defaults.
func decodeDocument(path string, data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	if isYAMLPath(path) {
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			doc = map[string]any{}
		}
		return doc, nil
	}
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func encodeDocument(path string, doc map[string]any) ([]byte, error) {
	if isYAMLPath(path) {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
