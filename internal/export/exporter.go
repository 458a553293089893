// Package export validates and writes the five dashboard documents.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"filesdash/xref/internal/logger"
)

// SizeRecorder receives the size of every written document.
type SizeRecorder interface {
	SetOutputBytes(file string, n int64)
}

// File describes one written document.
type File struct {
	Name string
	Path string
	Size int64
}

// Option applies a configuration option to the Exporter.
type Option func(*Exporter)

// WithAssetRoot sets the directory relative image paths are checked against.
func WithAssetRoot(root string) Option {
	return func(e *Exporter) {
		if root != "" {
			e.assetRoot = root
		}
	}
}

// WithAssetCheck enables or disables the image existence check.
func WithAssetCheck(enabled bool) Option {
	return func(e *Exporter) {
		e.checkAssets = enabled
	}
}

// WithIndent sets the JSON indent. An empty indent writes compact documents.
func WithIndent(indent string) Option {
	return func(e *Exporter) {
		e.indent = indent
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the recorder for document sizes.
func WithMetrics(r SizeRecorder) Option {
	return func(e *Exporter) {
		if r != nil {
			e.metrics = r
		}
	}
}

// Exporter writes a Bundle. Every check runs before the first byte is written.
type Exporter struct {
	assetRoot   string
	checkAssets bool
	indent      string
	logger      logger.Logger
	metrics     SizeRecorder
	validate    *validator.Validate
}

// New creates an Exporter. Asset checking is on by default.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		assetRoot:   ".",
		checkAssets: true,
		indent:      "  ",
		logger:      logger.Nop(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Write checks assets, validates the bundle and writes the five documents to
// outDir. The documents replace the previous ones as a set: on failure no new
// document is left behind.
func (e *Exporter) Write(ctx context.Context, outDir string, b *Bundle) ([]File, error) {
	if e.checkAssets {
		if err := e.CheckAssets(b); err != nil {
			return nil, err
		}
	}
	if err := e.Validate(b); err != nil {
		return nil, err
	}

	encoded := make(map[string][]byte, len(Files))
	for _, name := range Files {
		data, err := e.encode(b, name)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		encoded[name] = data
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := commit(outDir, encoded); err != nil {
		return nil, err
	}

	files := make([]File, 0, len(Files))
	for _, name := range Files {
		size := int64(len(encoded[name]))
		files = append(files, File{Name: name, Path: filepath.Join(outDir, name), Size: size})
		if e.metrics != nil {
			e.metrics.SetOutputBytes(name, size)
		}
		e.logger.Info(ctx, "document written",
			logger.String("file", name),
			logger.String("size", humanize.Bytes(uint64(size))))
	}
	return files, nil
}

// CheckAssets returns a MissingAssetError for the first image reference with
// no file under the asset root, after logging every missing reference.
func (e *Exporter) CheckAssets(b *Bundle) error {
	var first *MissingAssetError
	total := 0
	checked := make(map[string]bool)
	for _, p := range b.Persons {
		for _, img := range p.Images {
			exists, seen := checked[img.Path]
			if !seen {
				exists = e.assetExists(img.Path)
				checked[img.Path] = exists
			}
			if exists {
				continue
			}
			total++
			e.logger.Error(context.Background(), "image asset missing",
				logger.String("person", p.ID),
				logger.String("path", img.Path))
			if first == nil {
				first = &MissingAssetError{PersonID: p.ID, Path: img.Path}
			}
		}
	}
	if first != nil {
		first.Total = total
		return first
	}
	return nil
}

func (e *Exporter) assetExists(path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.assetRoot, filepath.FromSlash(path))
	}
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks struct constraints on every document and the consistency
// of the network document.
func (e *Exporter) Validate(b *Bundle) error {
	if err := e.validate.Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return violation(verrs[0])
		}
		return &SchemaViolationError{Document: "bundle", Reason: err.Error()}
	}
	return checkNetwork(b.Network)
}

func violation(fe validator.FieldError) *SchemaViolationError {
	// Namespace is Bundle.<Document>[i].<Field>...
	ns := strings.TrimPrefix(fe.Namespace(), "Bundle.")
	field := ns
	doc := ns
	if i := strings.IndexAny(ns, ".["); i >= 0 {
		doc = ns[:i]
	}
	if name, ok := documentFor[doc]; ok {
		doc = name
	}
	return &SchemaViolationError{
		Document: doc,
		Field:    field,
		Reason:   fmt.Sprintf("failed %q constraint", fe.Tag()),
	}
}

// checkNetwork enforces unique node ids, unique unordered pairs, no self
// loops, and link endpoints that are nodes.
func checkNetwork(n NetworkDoc) error {
	fail := func(format string, args ...any) error {
		return &SchemaViolationError{Document: NetworkFile, Reason: fmt.Sprintf(format, args...)}
	}

	ids := make(map[string]bool, len(n.Nodes))
	for _, node := range n.Nodes {
		if ids[node.ID] {
			return fail("duplicate node %s", node.ID)
		}
		ids[node.ID] = true
	}

	type pair struct{ a, b string }
	seen := make(map[pair]bool, len(n.Links))
	for _, l := range n.Links {
		if l.Source == l.Target {
			return fail("self loop on %s", l.Source)
		}
		if !ids[l.Source] || !ids[l.Target] {
			return fail("link %s-%s references a missing node", l.Source, l.Target)
		}
		k := pair{l.Source, l.Target}
		if k.a > k.b {
			k = pair{k.b, k.a}
		}
		if seen[k] {
			return fail("duplicate link %s-%s", k.a, k.b)
		}
		seen[k] = true
	}
	return nil
}

func (e *Exporter) encode(b *Bundle, name string) ([]byte, error) {
	v, err := b.content(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if e.indent != "" {
		enc.SetIndent("", e.indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// commit replaces the documents in outDir as a set. Every document is staged
// in a temp file first; previous documents are moved aside and restored if
// any rename fails, so a failed commit leaves the old set in place.
func commit(outDir string, encoded map[string][]byte) error {
	staged := make(map[string]string, len(Files))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for _, name := range Files {
		path := filepath.Join(outDir, name)
		if info, err := os.Stat(path); err == nil && !info.Mode().IsRegular() {
			return fmt.Errorf("writing %s: %s is not a regular file", name, path)
		}
		tmp, err := stage(path, encoded[name])
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		staged[name] = tmp
	}

	type swap struct{ path, backup string }
	var done []swap
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			os.Remove(done[i].path)
			if done[i].backup != "" {
				os.Rename(done[i].backup, done[i].path)
			}
		}
	}

	for _, name := range Files {
		path := filepath.Join(outDir, name)
		s := swap{path: path}
		if _, err := os.Lstat(path); err == nil {
			s.backup = staged[name] + ".prev"
			if err := os.Rename(path, s.backup); err != nil {
				rollback()
				return fmt.Errorf("writing %s: %w", name, err)
			}
		}
		if err := os.Rename(staged[name], path); err != nil {
			if s.backup != "" {
				os.Rename(s.backup, path)
			}
			rollback()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		delete(staged, name)
		done = append(done, s)
	}

	for _, s := range done {
		if s.backup != "" {
			os.Remove(s.backup)
		}
	}
	return nil
}

// stage writes data to a temp file next to path and returns its name.
func stage(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
