package vision

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // register BMP for imaging.Decode
)

var (
	// ErrTemplateLoad wraps missing or undecodable template resources.
	ErrTemplateLoad = errors.New("template load")
	// ErrTemplateNotLoaded is returned by Get for names never loaded.
	ErrTemplateNotLoaded = errors.New("template not loaded")
)

// Template is a preprocessed reference bitmap. It is immutable once built.
type Template struct {
	Name   string
	Image  *image.Gray
	Width  int
	Height int
}

// NewTemplate preprocesses img into a Template.
func NewTemplate(name string, img image.Image, opts ThresholdOptions) *Template {
	g := Preprocess(img, opts)
	return &Template{Name: name, Image: g, Width: g.Rect.Dx(), Height: g.Rect.Dy()}
}

// StoreOptions configures template loading.
type StoreOptions struct {
	Threshold ThresholdOptions
	// DumpDir, when set, receives a copy of every binarized template.
	DumpDir string
}

// Store loads templates once at startup and serves them read-only for the
// lifetime of the process. Load is not safe for concurrent use; Get is once
// loading has finished.
type Store struct {
	fsys      fs.FS
	opts      StoreOptions
	logger    *slog.Logger
	templates map[string]*Template
}

// NewStore returns a store reading resources from fsys.
func NewStore(fsys fs.FS, opts StoreOptions, logger *slog.Logger) *Store {
	return &Store{fsys: fsys, opts: opts, logger: logger, templates: map[string]*Template{}}
}

// Load decodes, preprocesses and caches the named resource. Loading an
// already loaded name returns the cached template.
func (s *Store) Load(name string) (*Template, error) {
	if t, ok := s.templates[name]; ok {
		return t, nil
	}
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateLoad, name, err)
	}
	defer f.Close()
	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrTemplateLoad, name, err)
	}
	t := NewTemplate(name, img, s.opts.Threshold)
	if t.Width == 0 || t.Height == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrTemplateLoad, name)
	}
	if s.opts.DumpDir != "" {
		if err := Dump(t.Image, s.opts.DumpDir, name); err != nil && s.logger != nil {
			s.logger.Warn("template dump failed", "template", name, "error", err)
		}
	}
	s.templates[name] = t
	if s.logger != nil {
		s.logger.Debug("template loaded", "template", name, "width", t.Width, "height", t.Height)
	}
	return t, nil
}

// LoadAll loads every name, stopping at the first failure.
func (s *Store) LoadAll(names ...string) error {
	for _, n := range names {
		if _, err := s.Load(n); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a previously loaded template.
func (s *Store) Get(name string) (*Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotLoaded, name)
	}
	return t, nil
}

// Len reports how many templates are loaded.
func (s *Store) Len() int { return len(s.templates) }

// Dump writes img under dir for inspection; the format follows the name's
// extension.
func Dump(img image.Image, dir, name string) error {
	path := filepath.Join(dir, filepath.Base(name))
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return imaging.Save(img, path)
}
