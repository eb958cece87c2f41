package treefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Node kinds accepted by the tree document.
const (
	nodeKindFile      = "file"
	nodeKindDirectory = "directory"
)

// macosCacheFileNames are zero-byte entries synthesized into the root
// directory. Their presence stops Spotlight from indexing the volume,
// which would otherwise flood the mount with metadata reads.
var macosCacheFileNames = []string{
	".metadata_never_index",
	".metadata_never_index_unless_rootfs",
	".metadata_direct_scope_only",
}

// docNode mirrors one record of the tree document. Pointer fields
// distinguish "absent" from zero values during validation; unknown
// fields are ignored by both decoders.
type docNode struct {
	Type     *string   `json:"type" yaml:"type"`
	Name     *string   `json:"name" yaml:"name"`
	Size     *int64    `json:"size" yaml:"size"`
	Contents []docNode `json:"contents" yaml:"contents"`
}

// LoadFile reads a tree document and builds the directory index.
// Documents ending in .yaml or .yml decode as YAML, anything else as
// JSON. Any failure wraps ErrInvalidDocument so callers can map it to
// the document-failure exit path.
func LoadFile(path string, opts *Options) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidDocument, path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadDocument(data, true, opts)
	default:
		return LoadDocument(data, false, opts)
	}
}

// LoadDocument builds the directory index from document bytes. The top
// level must be a sequence of nodes, the first of them the enumerated
// root directory; every top-level node is mounted under its name in
// "/". The loader is the only code that writes the index; the returned
// Tree is immutable.
func LoadDocument(data []byte, yamlDoc bool, opts *Options) (*Tree, error) {
	if opts == nil {
		opts = DefaultOptions("")
	}

	var nodes []docNode
	var err error
	if yamlDoc {
		err = yaml.Unmarshal(data, &nodes)
	} else {
		err = json.Unmarshal(data, &nodes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: top level is not a sequence of nodes: %v", ErrInvalidDocument, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidDocument)
	}
	if nodes[0].Type == nil || *nodes[0].Type != nodeKindDirectory {
		return nil, invalidDocumentf("/", "first node must be a directory")
	}

	san, err := newSanitizer(opts.Normalization)
	if err != nil {
		return nil, err
	}

	l := &loader{
		san:   san,
		index: make(map[string]*Entry),
	}

	root := &Entry{Dir: true, Ino: 1}
	l.nextIno = 1
	l.index["/"] = root

	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Name == nil {
			return nil, invalidDocumentf("/", "node missing name")
		}
		name := san.CleanName(*n.Name)
		if _, dup := seen[name]; dup {
			return nil, invalidDocumentf("/", "duplicate child name %q after normalization", name)
		}
		seen[name] = struct{}{}

		e, err := l.walk(n, childPath("/", name))
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, e)
	}

	if opts.MacOSCacheFiles {
		if err := l.addCacheControlFiles(root); err != nil {
			return nil, err
		}
	}

	t := &Tree{
		Root:       root,
		TotalFiles: l.files,
		TotalBytes: l.bytes,
		index:      l.index,
		san:        san,
	}

	log := opts.logger()
	log.Infof("loaded %d entries: %d files, %s total",
		len(l.index), t.TotalFiles, HumanizeBytes(t.TotalBytes))
	if log.IsLevelEnabled(logrus.DebugLevel) {
		logStructure(log, root, 0)
	}

	return t, nil
}

// loader carries the single-pass build state. The index is written
// here and nowhere else.
type loader struct {
	san     *sanitizer
	index   map[string]*Entry
	nextIno uint64
	files   uint64
	bytes   uint64
}

// walk validates one document node, inserts it under the given index
// path, and recurses into directory contents.
func (l *loader) walk(n docNode, path string) (*Entry, error) {
	if n.Type == nil {
		return nil, invalidDocumentf(path, "missing type")
	}
	if *n.Type != nodeKindFile && *n.Type != nodeKindDirectory {
		return nil, invalidDocumentf(path, "unknown type %q", *n.Type)
	}
	if n.Name == nil {
		return nil, invalidDocumentf(path, "missing name")
	}
	if strings.ContainsAny(*n.Name, "/\x00") {
		return nil, invalidDocumentf(path, "name %q contains a path separator or NUL", *n.Name)
	}
	if n.Size == nil {
		return nil, invalidDocumentf(path, "missing size")
	}
	if *n.Size < 0 {
		return nil, invalidDocumentf(path, "negative size %d", *n.Size)
	}

	l.nextIno++
	e := &Entry{
		Name: l.san.CleanName(*n.Name),
		Dir:  *n.Type == nodeKindDirectory,
		Size: uint64(*n.Size),
		Ino:  l.nextIno,
	}
	l.index[path] = e

	if !e.Dir {
		l.files++
		l.bytes += e.Size
		return e, nil
	}

	seen := make(map[string]struct{}, len(n.Contents))
	for _, child := range n.Contents {
		if child.Name == nil {
			return nil, invalidDocumentf(path, "child missing name")
		}
		name := l.san.CleanName(*child.Name)
		if _, dup := seen[name]; dup {
			return nil, invalidDocumentf(path, "duplicate child name %q after normalization", name)
		}
		seen[name] = struct{}{}

		ce, err := l.walk(child, childPath(path, name))
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, ce)
	}
	return e, nil
}

// addCacheControlFiles appends the indexer-suppression entries to the
// root directory. They are indistinguishable from declared files at
// the callback boundary.
func (l *loader) addCacheControlFiles(root *Entry) error {
	for _, name := range macosCacheFileNames {
		path := childPath("/", name)
		if _, exists := l.index[path]; exists {
			return invalidDocumentf(path, "collides with reserved cache-control name")
		}
		l.nextIno++
		e := &Entry{Name: name, Ino: l.nextIno}
		l.index[path] = e
		root.Children = append(root.Children, e)
		l.files++
	}
	return nil
}

// logStructure dumps the first levels of the loaded tree, capped at
// five children per directory.
func logStructure(log structureLogger, e *Entry, depth int) {
	if depth > 2 {
		return
	}
	indent := strings.Repeat("  ", depth)
	kind := "file"
	if e.Dir {
		kind = "directory"
	}
	name := e.Name
	if name == "" {
		name = "/"
	}
	log.Debugf("%s%s (%s, %s)", indent, name, kind, HumanizeBytes(e.Size))
	if !e.Dir {
		return
	}
	for i, c := range e.Children {
		if i == 5 {
			log.Debugf("%s  ... (%d more entries)", indent, len(e.Children)-5)
			break
		}
		logStructure(log, c, depth+1)
	}
}

// structureLogger is the slice of the logger the dump needs.
type structureLogger interface {
	Debugf(format string, args ...interface{})
}
